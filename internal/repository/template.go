package repository

import (
	"context"
	"encoding/json"

	"portalapi/internal/model"
)

// TemplateFieldUpdate carries a partial template update; nil fields are left
// unchanged.
type TemplateFieldUpdate struct {
	Name         *string
	Type         *string
	TemplateData json.RawMessage
}

// TemplateRepository defines data access for document templates. Templates
// are soft-deleted via is_active; all read paths filter inactive rows.
type TemplateRepository interface {
	Create(ctx context.Context, q Querier, tpl *model.Template) (*model.Template, error)

	// FindByID returns an active template by ID.
	FindByID(ctx context.Context, q Querier, id string) (*model.Template, error)

	// ListActive returns all active templates ordered by type then name.
	ListActive(ctx context.Context, q Querier) ([]model.Template, error)

	// ListByType returns active templates of one document kind, by name.
	ListByType(ctx context.Context, q Querier, docType string) ([]model.Template, error)

	// Update applies a partial update and returns the stored row.
	Update(ctx context.Context, q Querier, id string, upd TemplateFieldUpdate) (*model.Template, error)

	// Deactivate soft-deletes the template.
	Deactivate(ctx context.Context, q Querier, id string) error
}
