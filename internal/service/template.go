package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"portalapi/internal/apperr"
	"portalapi/internal/model"
	"portalapi/internal/repository"
)

// TemplateCreateCommand creates an active document template.
type TemplateCreateCommand struct {
	Name         string
	Type         string
	TemplateData json.RawMessage
}

func (c TemplateCreateCommand) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Validation("name is required")
	}
	if c.Type == "" {
		return apperr.Validation("type is required")
	}
	if len(c.TemplateData) == 0 {
		return apperr.Validation("template_data is required")
	}
	if !json.Valid(c.TemplateData) {
		return apperr.Validation("template_data must be valid JSON")
	}
	return nil
}

// TemplateUpdateCommand is a partial template update; nil fields keep their
// current value.
type TemplateUpdateCommand struct {
	Name         *string
	Type         *string
	TemplateData json.RawMessage
}

func (c TemplateUpdateCommand) validate() error {
	if c.Name == nil && c.Type == nil && c.TemplateData == nil {
		return apperr.Validation("no fields to update")
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return apperr.Validation("name must not be empty")
	}
	if c.TemplateData != nil && !json.Valid(c.TemplateData) {
		return apperr.Validation("template_data must be valid JSON")
	}
	return nil
}

// TemplateService manages document templates. Deletion is always a
// soft-delete: deactivated templates disappear from every read path but
// their rows stay.
type TemplateService interface {
	Create(ctx context.Context, cmd TemplateCreateCommand) (*model.Template, error)
	Get(ctx context.Context, id string) (*model.Template, error)
	ListActive(ctx context.Context) ([]model.Template, error)
	ListByType(ctx context.Context, docType string) ([]model.Template, error)
	Update(ctx context.Context, id string, cmd TemplateUpdateCommand) (*model.Template, error)
	Deactivate(ctx context.Context, id string) error
}

type templateService struct {
	db   repository.Querier
	tpls repository.TemplateRepository
}

// NewTemplateService constructs a TemplateService on the given pool.
func NewTemplateService(db repository.Querier, tpls repository.TemplateRepository) TemplateService {
	return &templateService{db: db, tpls: tpls}
}

func (s *templateService) Create(ctx context.Context, cmd TemplateCreateCommand) (*model.Template, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	tpl := &model.Template{
		ID:           uuid.NewString(),
		Name:         cmd.Name,
		Type:         cmd.Type,
		TemplateData: cmd.TemplateData,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.tpls.Create(ctx, s.db, tpl)
	if err != nil {
		return nil, apperr.Storage(err, "create template")
	}
	return stored, nil
}

func (s *templateService) Get(ctx context.Context, id string) (*model.Template, error) {
	return s.find(ctx, id)
}

func (s *templateService) ListActive(ctx context.Context) ([]model.Template, error) {
	tpls, err := s.tpls.ListActive(ctx, s.db)
	if err != nil {
		return nil, apperr.Storage(err, "list templates")
	}
	return tpls, nil
}

func (s *templateService) ListByType(ctx context.Context, docType string) ([]model.Template, error) {
	if docType == "" {
		return nil, apperr.Validation("type is required")
	}
	tpls, err := s.tpls.ListByType(ctx, s.db, docType)
	if err != nil {
		return nil, apperr.Storage(err, "list templates by type")
	}
	return tpls, nil
}

func (s *templateService) Update(ctx context.Context, id string, cmd TemplateUpdateCommand) (*model.Template, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.Validation("template id is required")
	}
	tpl, err := s.tpls.Update(ctx, s.db, id, repository.TemplateFieldUpdate{
		Name:         cmd.Name,
		Type:         cmd.Type,
		TemplateData: cmd.TemplateData,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("template %s not found", id)
		}
		return nil, apperr.Storage(err, "update template")
	}
	return tpl, nil
}

func (s *templateService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.tpls.Deactivate(ctx, s.db, id); err != nil {
		return apperr.Storage(err, "deactivate template")
	}
	return nil
}

func (s *templateService) find(ctx context.Context, id string) (*model.Template, error) {
	if id == "" {
		return nil, apperr.Validation("template id is required")
	}
	tpl, err := s.tpls.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("template %s not found", id)
		}
		return nil, apperr.Storage(err, "find template")
	}
	return tpl, nil
}
