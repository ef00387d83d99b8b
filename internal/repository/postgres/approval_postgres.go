package postgres

import (
	"context"
	"database/sql"

	"portalapi/internal/model"
	"portalapi/internal/repository"
)

// ApprovalPostgres is the PostgreSQL approval ledger. Append is the only
// mutation outside the document-delete cascade; rows are never updated.
type ApprovalPostgres struct{}

// NewApprovalPostgres creates a new ApprovalPostgres repository.
func NewApprovalPostgres() *ApprovalPostgres {
	return &ApprovalPostgres{}
}

var _ repository.ApprovalRepository = (*ApprovalPostgres)(nil)

// Append inserts one ledger entry and returns it with ID and timestamp set.
func (r *ApprovalPostgres) Append(ctx context.Context, q repository.Querier, rec *model.ApprovalRecord) (*model.ApprovalRecord, error) {
	const query = `
		INSERT INTO document_approvals (id, document_id, actor_id, decision, comment, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, document_id, actor_id, decision, comment, decided_at`
	row := q.QueryRowContext(ctx, query,
		rec.ID,
		rec.DocumentID,
		rec.ActorID,
		rec.Decision,
		rec.Comment,
		rec.DecidedAt,
	)
	var out model.ApprovalRecord
	var comment sql.NullString
	if err := row.Scan(
		&out.ID,
		&out.DocumentID,
		&out.ActorID,
		&out.Decision,
		&comment,
		&out.DecidedAt,
	); err != nil {
		return nil, err
	}
	if comment.Valid {
		out.Comment = &comment.String
	}
	return &out, nil
}

// ListByDocument returns the full approval trail for a document, oldest first.
func (r *ApprovalPostgres) ListByDocument(ctx context.Context, q repository.Querier, documentID string) ([]model.ApprovalRecord, error) {
	const query = `
		SELECT id, document_id, actor_id, decision, comment, decided_at
		FROM document_approvals
		WHERE document_id = $1
		ORDER BY decided_at ASC, id ASC`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ApprovalRecord, 0)
	for rows.Next() {
		var rec model.ApprovalRecord
		var comment sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.DocumentID,
			&rec.ActorID,
			&rec.Decision,
			&comment,
			&rec.DecidedAt,
		); err != nil {
			return nil, err
		}
		if comment.Valid {
			rec.Comment = &comment.String
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// DeleteByDocument removes a document's trail as part of deleting the document.
func (r *ApprovalPostgres) DeleteByDocument(ctx context.Context, q repository.Querier, documentID string) error {
	const query = `DELETE FROM document_approvals WHERE document_id = $1`
	_, err := q.ExecContext(ctx, query, documentID)
	return err
}
