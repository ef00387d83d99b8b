package repository

import (
	"context"
	"time"

	"portalapi/internal/model"
)

// DocumentFieldUpdate carries a partial field update; nil fields are left
// unchanged.
type DocumentFieldUpdate struct {
	Title        *string
	Content      *string
	DepartmentID *string
	DueDate      *time.Time
}

// StatusUpdate describes one conditional status transition. The write only
// applies while the document's current status is in From; this compare-and-set
// is the sole arbiter of concurrent transitions, so implementations must not
// replace it with a read-then-write pair.
type StatusUpdate struct {
	From            []model.DocumentStatus
	To              model.DocumentStatus
	ApprovedBy      *string
	RejectedBy      *string
	SetSubmittedAt  bool
	ClearRejectedBy bool
}

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document row and returns the stored record.
	Create(ctx context.Context, q Querier, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, q Querier, id string) (*model.Document, error)

	// List returns a paginated list of documents (newest first) and the total
	// row count.
	List(ctx context.Context, q Querier, pq PageQuery) (*PageResult[model.Document], error)

	// CountByStatus aggregates live documents per status.
	CountByStatus(ctx context.Context, q Querier) ([]model.StatusCount, error)

	// UpdateFields applies a partial field update and returns the stored row.
	UpdateFields(ctx context.Context, q Querier, id string, upd DocumentFieldUpdate) (*model.Document, error)

	// UpdateStatus atomically moves the document from one of upd.From to
	// upd.To, writing any extra fields in the same statement. Returns a
	// KindNotFound error if the row is absent and a KindConflict error if the
	// current status no longer matches.
	UpdateStatus(ctx context.Context, q Querier, id string, upd StatusUpdate) (*model.Document, error)

	// RecountAttachments recomputes the persisted attachment count from the
	// live attachment rows. Must run in the same transaction as any
	// attachment mutation.
	RecountAttachments(ctx context.Context, q Querier, id string) (int, error)

	// Delete removes a document row by ID.
	Delete(ctx context.Context, q Querier, id string) error
}

// AttachmentRepository defines data access for attachment metadata rows.
type AttachmentRepository interface {
	// Insert stores one attachment metadata row.
	Insert(ctx context.Context, q Querier, att *model.Attachment) (*model.Attachment, error)

	// FindByID returns an attachment scoped to its owning document, so an ID
	// belonging to another document behaves as missing.
	FindByID(ctx context.Context, q Querier, documentID, id string) (*model.Attachment, error)

	// ListByDocument returns all attachments of a document, oldest first.
	ListByDocument(ctx context.Context, q Querier, documentID string) ([]model.Attachment, error)

	// Delete removes one attachment row scoped to its owning document.
	Delete(ctx context.Context, q Querier, documentID, id string) error

	// DeleteByDocument removes all attachment rows of a document.
	DeleteByDocument(ctx context.Context, q Querier, documentID string) error
}

// ApprovalRepository is the append-only approval ledger. Entries are never
// updated; DeleteByDocument exists solely for the document-delete cascade.
type ApprovalRepository interface {
	// Append inserts one ledger entry and returns it with ID and timestamp
	// assigned.
	Append(ctx context.Context, q Querier, rec *model.ApprovalRecord) (*model.ApprovalRecord, error)

	// ListByDocument returns the full trail for a document, oldest first.
	ListByDocument(ctx context.Context, q Querier, documentID string) ([]model.ApprovalRecord, error)

	// DeleteByDocument removes the trail as part of deleting the document.
	DeleteByDocument(ctx context.Context, q Querier, documentID string) error
}
