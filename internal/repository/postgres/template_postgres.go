package postgres

import (
	"context"

	"portalapi/internal/model"
	"portalapi/internal/repository"
)

const templateColumns = `id, name, type, template_data, is_active, created_at`

// TemplatePostgres is a PostgreSQL implementation of repository.TemplateRepository.
type TemplatePostgres struct{}

// NewTemplatePostgres creates a new TemplatePostgres repository.
func NewTemplatePostgres() *TemplatePostgres {
	return &TemplatePostgres{}
}

var _ repository.TemplateRepository = (*TemplatePostgres)(nil)

func scanTemplate(sc rowScanner) (*model.Template, error) {
	var t model.Template
	var data []byte
	if err := sc.Scan(
		&t.ID,
		&t.Name,
		&t.Type,
		&data,
		&t.IsActive,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.TemplateData = data
	return &t, nil
}

// Create inserts a new template row and returns the stored record.
func (r *TemplatePostgres) Create(ctx context.Context, q repository.Querier, tpl *model.Template) (*model.Template, error) {
	query := `
		INSERT INTO document_templates (id, name, type, template_data, is_active, created_at)
		VALUES ($1, $2, $3, $4, true, $5)
		RETURNING ` + templateColumns
	row := q.QueryRowContext(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Type,
		[]byte(tpl.TemplateData),
		tpl.CreatedAt,
	)
	return scanTemplate(row)
}

// FindByID fetches an active template by ID. Deactivated templates scan as
// no rows.
func (r *TemplatePostgres) FindByID(ctx context.Context, q repository.Querier, id string) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM document_templates WHERE id = $1 AND is_active`
	return scanTemplate(q.QueryRowContext(ctx, query, id))
}

// ListActive returns all active templates ordered by type, then name.
func (r *TemplatePostgres) ListActive(ctx context.Context, q repository.Querier) ([]model.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_templates
		WHERE is_active
		ORDER BY type, name`
	return r.list(ctx, q, query)
}

// ListByType returns active templates of one document kind ordered by name.
func (r *TemplatePostgres) ListByType(ctx context.Context, q repository.Querier, docType string) ([]model.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_templates
		WHERE type = $1 AND is_active
		ORDER BY name`
	return r.list(ctx, q, query, docType)
}

func (r *TemplatePostgres) list(ctx context.Context, q repository.Querier, query string, args ...any) ([]model.Template, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// Update applies a partial update via COALESCE and returns the stored row.
// Only active templates can be updated.
func (r *TemplatePostgres) Update(ctx context.Context, q repository.Querier, id string, upd repository.TemplateFieldUpdate) (*model.Template, error) {
	var data any
	if upd.TemplateData != nil {
		data = []byte(upd.TemplateData)
	}
	query := `
		UPDATE document_templates
		SET name          = COALESCE($2, name),
		    type          = COALESCE($3, type),
		    template_data = COALESCE($4, template_data)
		WHERE id = $1 AND is_active
		RETURNING ` + templateColumns
	row := q.QueryRowContext(ctx, query, id, upd.Name, upd.Type, data)
	return scanTemplate(row)
}

// Deactivate soft-deletes the template; reads filter on is_active.
func (r *TemplatePostgres) Deactivate(ctx context.Context, q repository.Querier, id string) error {
	const query = `UPDATE document_templates SET is_active = false WHERE id = $1 AND is_active`
	_, err := q.ExecContext(ctx, query, id)
	return err
}
