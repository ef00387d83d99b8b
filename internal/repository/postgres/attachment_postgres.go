package postgres

import (
	"context"

	"portalapi/internal/model"
	"portalapi/internal/repository"
)

const attachmentColumns = `id, document_id, file_name, storage_path, size, content_type, uploaded_at`

// AttachmentPostgres is a PostgreSQL implementation of repository.AttachmentRepository.
type AttachmentPostgres struct{}

// NewAttachmentPostgres creates a new AttachmentPostgres repository.
func NewAttachmentPostgres() *AttachmentPostgres {
	return &AttachmentPostgres{}
}

var _ repository.AttachmentRepository = (*AttachmentPostgres)(nil)

func scanAttachment(sc rowScanner) (*model.Attachment, error) {
	var a model.Attachment
	if err := sc.Scan(
		&a.ID,
		&a.DocumentID,
		&a.FileName,
		&a.StoragePath,
		&a.Size,
		&a.ContentType,
		&a.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Insert stores one attachment metadata row and returns the stored record.
func (r *AttachmentPostgres) Insert(ctx context.Context, q repository.Querier, att *model.Attachment) (*model.Attachment, error) {
	query := `
		INSERT INTO document_attachments (id, document_id, file_name, storage_path, size, content_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + attachmentColumns
	row := q.QueryRowContext(ctx, query,
		att.ID,
		att.DocumentID,
		att.FileName,
		att.StoragePath,
		att.Size,
		att.ContentType,
		att.UploadedAt,
	)
	return scanAttachment(row)
}

// FindByID fetches one attachment scoped to its owning document. An ID owned
// by a different document scans as no rows.
func (r *AttachmentPostgres) FindByID(ctx context.Context, q repository.Querier, documentID, id string) (*model.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM document_attachments WHERE id = $1 AND document_id = $2`
	return scanAttachment(q.QueryRowContext(ctx, query, id, documentID))
}

// ListByDocument returns all attachments of a document, oldest first.
func (r *AttachmentPostgres) ListByDocument(ctx context.Context, q repository.Querier, documentID string) ([]model.Attachment, error) {
	query := `
		SELECT ` + attachmentColumns + `
		FROM document_attachments
		WHERE document_id = $1
		ORDER BY uploaded_at ASC, id ASC`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

// Delete removes one attachment row scoped to its owning document.
func (r *AttachmentPostgres) Delete(ctx context.Context, q repository.Querier, documentID, id string) error {
	const query = `DELETE FROM document_attachments WHERE id = $1 AND document_id = $2`
	_, err := q.ExecContext(ctx, query, id, documentID)
	return err
}

// DeleteByDocument removes all attachment rows of a document.
func (r *AttachmentPostgres) DeleteByDocument(ctx context.Context, q repository.Querier, documentID string) error {
	const query = `DELETE FROM document_attachments WHERE document_id = $1`
	_, err := q.ExecContext(ctx, query, documentID)
	return err
}
