package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"portalapi/internal/apperr"
	"portalapi/internal/model"
	"portalapi/internal/repository"
)

const documentColumns = `id, title, type, content, department_id, due_date, status, created_by,
		approved_by, rejected_by, submitted_at, attachment_count, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Methods take a repository.Querier so they run against the pool or inside a
// transaction interchangeably.
type DocumentPostgres struct{}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres() *DocumentPostgres {
	return &DocumentPostgres{}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc rowScanner) (*model.Document, error) {
	var d model.Document
	var content, departmentID, approvedBy, rejectedBy sql.NullString
	var dueDate, submittedAt sql.NullTime
	if err := sc.Scan(
		&d.ID,
		&d.Title,
		&d.Type,
		&content,
		&departmentID,
		&dueDate,
		&d.Status,
		&d.CreatedBy,
		&approvedBy,
		&rejectedBy,
		&submittedAt,
		&d.AttachmentCount,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if content.Valid {
		d.Content = &content.String
	}
	if departmentID.Valid {
		d.DepartmentID = &departmentID.String
	}
	if dueDate.Valid {
		d.DueDate = &dueDate.Time
	}
	if approvedBy.Valid {
		d.ApprovedBy = &approvedBy.String
	}
	if rejectedBy.Valid {
		d.RejectedBy = &rejectedBy.String
	}
	if submittedAt.Valid {
		d.SubmittedAt = &submittedAt.Time
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, q repository.Querier, doc *model.Document) (*model.Document, error) {
	query := `
		INSERT INTO documents (id, title, type, content, department_id, due_date, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + documentColumns
	row := q.QueryRowContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Type,
		doc.Content,
		doc.DepartmentID,
		doc.DueDate,
		doc.Status,
		doc.CreatedBy,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, q repository.Querier, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(q.QueryRowContext(ctx, query, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, q repository.Querier, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := q.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := q.QueryContext(ctx, query, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// CountByStatus aggregates documents per status.
func (r *DocumentPostgres) CountByStatus(ctx context.Context, q repository.Querier) ([]model.StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM documents GROUP BY status ORDER BY status`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]model.StatusCount, 0)
	for rows.Next() {
		var c model.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// UpdateFields applies a partial update via COALESCE; nil parameters keep the
// current column value.
func (r *DocumentPostgres) UpdateFields(ctx context.Context, q repository.Querier, id string, upd repository.DocumentFieldUpdate) (*model.Document, error) {
	query := `
		UPDATE documents
		SET title         = COALESCE($2, title),
		    content       = COALESCE($3, content),
		    department_id = COALESCE($4, department_id),
		    due_date      = COALESCE($5, due_date),
		    updated_at    = now()
		WHERE id = $1
		RETURNING ` + documentColumns
	row := q.QueryRowContext(ctx, query, id, upd.Title, upd.Content, upd.DepartmentID, upd.DueDate)
	return scanDocument(row)
}

// UpdateStatus performs the conditional status transition. The WHERE clause
// matches both the ID and the expected prior status in one statement, which
// is what arbitrates concurrent transitions: the loser matches zero rows. A
// zero-row result is then classified by re-reading the current status.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, q repository.Querier, id string, upd repository.StatusUpdate) (*model.Document, error) {
	sets := []string{"status = $2", "updated_at = now()"}
	args := []any{id, upd.To}
	if upd.SetSubmittedAt {
		sets = append(sets, "submitted_at = now()")
	}
	if upd.ClearRejectedBy {
		sets = append(sets, "rejected_by = NULL")
	}
	if upd.ApprovedBy != nil {
		args = append(args, *upd.ApprovedBy)
		sets = append(sets, fmt.Sprintf("approved_by = $%d", len(args)))
	}
	if upd.RejectedBy != nil {
		args = append(args, *upd.RejectedBy)
		sets = append(sets, fmt.Sprintf("rejected_by = $%d", len(args)))
	}

	from := make([]string, 0, len(upd.From))
	for _, st := range upd.From {
		args = append(args, st)
		from = append(from, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE documents
		SET %s
		WHERE id = $1 AND status IN (%s)
		RETURNING %s`,
		strings.Join(sets, ", "), strings.Join(from, ", "), documentColumns)

	doc, err := scanDocument(q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Zero rows matched: either the document is gone or its status moved.
	var current string
	err = q.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("document %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return nil, apperr.Conflict("document %s is %s, expected %s", id, current, statusList(upd.From))
}

func statusList(sts []model.DocumentStatus) string {
	parts := make([]string, len(sts))
	for i, st := range sts {
		parts[i] = string(st)
	}
	return strings.Join(parts, " or ")
}

// RecountAttachments recomputes the derived attachment count from the live
// rows and persists it, returning the new value.
func (r *DocumentPostgres) RecountAttachments(ctx context.Context, q repository.Querier, id string) (int, error) {
	const query = `
		UPDATE documents
		SET attachment_count = (SELECT COUNT(*) FROM document_attachments WHERE document_id = $1),
		    updated_at       = now()
		WHERE id = $1
		RETURNING attachment_count`
	var count int
	if err := q.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a document row by ID.
func (r *DocumentPostgres) Delete(ctx context.Context, q repository.Querier, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	_, err := q.ExecContext(ctx, query, id)
	return err
}
