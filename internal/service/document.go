package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"portalapi/internal/apperr"
	"portalapi/internal/config"
	"portalapi/internal/model"
	"portalapi/internal/repository"
	"portalapi/internal/storage"
)

// allowedContentTypes is the attachment content-type allow-list enforced
// before any bytes reach the object store.
var allowedContentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
	"image/jpeg": {},
	"image/png":  {},
}

// presignExpiry bounds how long an attachment download link stays valid.
const presignExpiry = 15 * time.Minute

// CreateCommand creates a document in draft for its creator.
type CreateCommand struct {
	Title        string
	Type         string
	Content      *string
	DepartmentID *string
	DueDate      *time.Time
	CreatorID    string
}

func (c CreateCommand) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return apperr.Validation("title is required")
	}
	if c.Type == "" {
		return apperr.Validation("type is required")
	}
	if !model.ValidDocumentType(c.Type) {
		return apperr.Validation("unknown document type %q", c.Type)
	}
	if c.CreatorID == "" {
		return apperr.Validation("creator id is required")
	}
	return nil
}

// UpdateCommand is a partial field update; nil fields are left unchanged.
type UpdateCommand struct {
	Title        *string
	Content      *string
	DepartmentID *string
	DueDate      *time.Time
}

func (c UpdateCommand) validate() error {
	if c.Title == nil && c.Content == nil && c.DepartmentID == nil && c.DueDate == nil {
		return apperr.Validation("no fields to update")
	}
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return apperr.Validation("title must not be empty")
	}
	return nil
}

// SubmitCommand moves a document into the pending state.
type SubmitCommand struct {
	DocumentID string
}

// ApproveCommand records an approval decision by ActorID.
type ApproveCommand struct {
	DocumentID string
	ActorID    string
	Comment    *string
}

// RejectCommand records a rejection. The comment is a business invariant,
// not a UI nicety, so it is validated here even though the presentation
// layer enforces it too.
type RejectCommand struct {
	DocumentID string
	ActorID    string
	Comment    string
}

// FileUpload is one file of an attach batch.
type FileUpload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

// AttachCommand attaches up to the configured number of files to a document.
type AttachCommand struct {
	DocumentID string
	Files      []FileUpload
}

func (c AttachCommand) validate(limits config.UploadConfig) error {
	if len(c.Files) == 0 {
		return apperr.Validation("at least one file is required")
	}
	if len(c.Files) > limits.MaxFiles {
		return apperr.Validation("at most %d files per request, got %d", limits.MaxFiles, len(c.Files))
	}
	for _, f := range c.Files {
		if f.Reader == nil {
			return apperr.Validation("file %q has no content", f.FileName)
		}
		if f.FileName == "" {
			return apperr.Validation("file name is required")
		}
		if f.Size <= 0 {
			return apperr.Validation("file %q is empty", f.FileName)
		}
		if f.Size > limits.MaxFileBytes {
			return apperr.Validation("file %q exceeds the %d byte limit", f.FileName, limits.MaxFileBytes)
		}
		if _, ok := allowedContentTypes[f.ContentType]; !ok {
			return apperr.Validation("content type %q is not allowed", f.ContentType)
		}
	}
	return nil
}

// RemoveAttachmentCommand detaches one file from its document.
type RemoveAttachmentCommand struct {
	DocumentID   string
	AttachmentID string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentDetail is a document together with its attachment metadata.
type DocumentDetail struct {
	model.Document
	Attachments []model.Attachment `json:"attachments"`
}

// DocumentService is the lifecycle orchestrator. It enforces the
// draft -> pending -> {approved, rejected} state machine, wraps each
// multi-row write in one transaction and compensates non-transactional blob
// writes when a later step fails. No operation is retried implicitly:
// retrying a decided transition could double-record a ledger entry, so
// conflicts surface to the caller as-is.
type DocumentService interface {
	Create(ctx context.Context, cmd CreateCommand) (*model.Document, error)
	Get(ctx context.Context, id string) (*DocumentDetail, error)
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
	StatusCounts(ctx context.Context) ([]model.StatusCount, error)
	Update(ctx context.Context, id string, cmd UpdateCommand) (*model.Document, error)

	// Submit moves draft -> pending. Rejected documents may be resubmitted:
	// the transition then also clears the rejector so the pending document
	// carries neither decision mark.
	Submit(ctx context.Context, cmd SubmitCommand) (*model.Document, error)

	// Approve moves pending -> approved and appends a ledger entry in the
	// same transaction. Under concurrent decisions the conditional status
	// write picks the single winner; losers get a conflict error.
	Approve(ctx context.Context, cmd ApproveCommand) (*model.Document, error)

	// Reject is symmetric to Approve and additionally requires a non-empty
	// comment.
	Reject(ctx context.Context, cmd RejectCommand) (*model.Document, error)

	// Attach writes blobs first (binary I/O is not transactional), then
	// inserts metadata and recounts in one transaction. Every failure path
	// deletes the blobs already written in this batch before returning.
	Attach(ctx context.Context, cmd AttachCommand) ([]model.Attachment, error)

	// RemoveAttachment deletes metadata transactionally and only then the
	// blob. A failed blob delete is logged as a reclaimable orphan and does
	// not fail the operation: the metadata is authoritative. Attachments of
	// approved and rejected documents are frozen, like Attach.
	RemoveAttachment(ctx context.Context, cmd RemoveAttachmentCommand) error

	// AttachmentURL returns a presigned download URL for one attachment.
	AttachmentURL(ctx context.Context, documentID, attachmentID string) (string, error)

	ApprovalHistory(ctx context.Context, documentID string) ([]model.ApprovalRecord, error)

	// Delete removes the document with its attachment rows and ledger trail
	// in one transaction, after best-effort deletion of the blobs.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	db     repository.Querier
	tx     repository.TxRunner
	store  storage.Storage
	docs   repository.DocumentRepository
	atts   repository.AttachmentRepository
	ledger repository.ApprovalRepository
	limits config.UploadConfig
}

// NewDocumentService constructs the orchestrator. db is the connection pool
// used for single-statement operations; tx runs the multi-row ones.
func NewDocumentService(
	db repository.Querier,
	tx repository.TxRunner,
	store storage.Storage,
	docs repository.DocumentRepository,
	atts repository.AttachmentRepository,
	ledger repository.ApprovalRepository,
	limits config.UploadConfig,
) DocumentService {
	return &documentService{
		db:     db,
		tx:     tx,
		store:  store,
		docs:   docs,
		atts:   atts,
		ledger: ledger,
		limits: limits,
	}
}

func (s *documentService) Create(ctx context.Context, cmd CreateCommand) (*model.Document, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	doc := &model.Document{
		ID:           uuid.NewString(),
		Title:        cmd.Title,
		Type:         cmd.Type,
		Content:      cmd.Content,
		DepartmentID: cmd.DepartmentID,
		DueDate:      cmd.DueDate,
		Status:       model.StatusDraft,
		CreatedBy:    cmd.CreatorID,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.docs.Create(ctx, s.db, doc)
	if err != nil {
		return nil, apperr.Storage(err, "create document")
	}
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.getDocument(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	atts, err := s.atts.ListByDocument(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Storage(err, "list attachments")
	}
	return &DocumentDetail{Document: *doc, Attachments: atts}, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.docs.List(ctx, s.db, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.Storage(err, "list documents")
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) StatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	counts, err := s.docs.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, apperr.Storage(err, "count documents by status")
	}
	return counts, nil
}

func (s *documentService) Update(ctx context.Context, id string, cmd UpdateCommand) (*model.Document, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	doc, err := s.getDocument(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !doc.Editable() {
		return nil, apperr.Conflict("document %s is %s and cannot be edited", id, doc.Status)
	}
	updated, err := s.docs.UpdateFields(ctx, s.db, id, repository.DocumentFieldUpdate{
		Title:        cmd.Title,
		Content:      cmd.Content,
		DepartmentID: cmd.DepartmentID,
		DueDate:      cmd.DueDate,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document %s not found", id)
		}
		return nil, apperr.Storage(err, "update document")
	}
	return updated, nil
}

func (s *documentService) Submit(ctx context.Context, cmd SubmitCommand) (*model.Document, error) {
	doc, err := s.docs.UpdateStatus(ctx, s.db, cmd.DocumentID, repository.StatusUpdate{
		From:            []model.DocumentStatus{model.StatusDraft, model.StatusRejected},
		To:              model.StatusPending,
		SetSubmittedAt:  true,
		ClearRejectedBy: true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "submit document")
	}
	return doc, nil
}

func (s *documentService) Approve(ctx context.Context, cmd ApproveCommand) (*model.Document, error) {
	if cmd.ActorID == "" {
		return nil, apperr.Validation("approver id is required")
	}
	return s.decide(ctx, cmd.DocumentID, model.DecisionApproved, cmd.ActorID, cmd.Comment)
}

func (s *documentService) Reject(ctx context.Context, cmd RejectCommand) (*model.Document, error) {
	if cmd.ActorID == "" {
		return nil, apperr.Validation("rejector id is required")
	}
	if strings.TrimSpace(cmd.Comment) == "" {
		return nil, apperr.Validation("a rejection comment is required")
	}
	comment := cmd.Comment
	return s.decide(ctx, cmd.DocumentID, model.DecisionRejected, cmd.ActorID, &comment)
}

// decide runs one approve/reject cycle: the conditional status write and the
// ledger append commit together or not at all.
func (s *documentService) decide(ctx context.Context, documentID string, decision model.Decision, actorID string, comment *string) (*model.Document, error) {
	upd := repository.StatusUpdate{
		From: []model.DocumentStatus{model.StatusPending},
	}
	if decision == model.DecisionApproved {
		upd.To = model.StatusApproved
		upd.ApprovedBy = &actorID
	} else {
		upd.To = model.StatusRejected
		upd.RejectedBy = &actorID
	}

	var doc *model.Document
	err := s.tx.WithinTx(ctx, func(q repository.Querier) error {
		var err error
		doc, err = s.docs.UpdateStatus(ctx, q, documentID, upd)
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, string(decision)+" document")
		}
		_, err = s.ledger.Append(ctx, q, &model.ApprovalRecord{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ActorID:    actorID,
			Decision:   decision,
			Comment:    comment,
			DecidedAt:  time.Now().UTC(),
		})
		if err != nil {
			return apperr.Storage(err, "append approval record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Attach(ctx context.Context, cmd AttachCommand) ([]model.Attachment, error) {
	if err := cmd.validate(s.limits); err != nil {
		return nil, err
	}
	doc, err := s.getDocument(ctx, s.db, cmd.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Terminal() {
		return nil, apperr.Conflict("document %s is %s and no longer accepts attachments", doc.ID, doc.Status)
	}

	// Phase one: physical writes, before any transaction opens. If one file
	// of the batch fails, every blob already written in this batch is
	// deleted so partial batches never survive.
	written := make([]model.Attachment, 0, len(cmd.Files))
	for _, f := range cmd.Files {
		key := attachmentKey(f.FileName)
		info, putErr := s.store.Put(ctx, key, f.Reader, storage.PutObjectOptions{
			Size:        f.Size,
			ContentType: f.ContentType,
			Metadata:    map[string]string{"original-filename": f.FileName},
		})
		if putErr != nil {
			s.cleanupBlobs(ctx, written)
			return nil, apperr.Storage(putErr, "upload %s", f.FileName)
		}
		written = append(written, model.Attachment{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			FileName:    f.FileName,
			StoragePath: info.Key,
			Size:        f.Size,
			ContentType: f.ContentType,
			UploadedAt:  time.Now().UTC(),
		})
	}

	// Phase two: metadata rows plus one recount, atomically.
	stored := make([]model.Attachment, 0, len(written))
	err = s.tx.WithinTx(ctx, func(q repository.Querier) error {
		for i := range written {
			att, insErr := s.atts.Insert(ctx, q, &written[i])
			if insErr != nil {
				return apperr.Storage(insErr, "insert attachment %s", written[i].FileName)
			}
			stored = append(stored, *att)
		}
		if _, recErr := s.docs.RecountAttachments(ctx, q, doc.ID); recErr != nil {
			return apperr.Storage(recErr, "recount attachments")
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, so the just-written blobs have no
		// metadata; delete them rather than leak orphans.
		s.cleanupBlobs(ctx, written)
		return nil, err
	}
	return stored, nil
}

// cleanupBlobs deletes blobs written earlier in a failed batch. A delete
// that itself fails leaves an orphan with no metadata row, the reclaimable
// kind of leak, so it is only logged.
func (s *documentService) cleanupBlobs(ctx context.Context, atts []model.Attachment) {
	for _, a := range atts {
		if err := s.store.Delete(ctx, a.StoragePath); err != nil {
			logOrphan(a.StoragePath, err)
		}
	}
}

func (s *documentService) RemoveAttachment(ctx context.Context, cmd RemoveAttachmentCommand) error {
	doc, err := s.getDocument(ctx, s.db, cmd.DocumentID)
	if err != nil {
		return err
	}
	if doc.Terminal() {
		return apperr.Conflict("document %s is %s and its attachments are frozen", doc.ID, doc.Status)
	}
	att, err := s.getAttachment(ctx, cmd.DocumentID, cmd.AttachmentID)
	if err != nil {
		return err
	}
	err = s.tx.WithinTx(ctx, func(q repository.Querier) error {
		if delErr := s.atts.Delete(ctx, q, cmd.DocumentID, cmd.AttachmentID); delErr != nil {
			return apperr.Storage(delErr, "delete attachment row")
		}
		if _, recErr := s.docs.RecountAttachments(ctx, q, cmd.DocumentID); recErr != nil {
			return apperr.Storage(recErr, "recount attachments")
		}
		return nil
	})
	if err != nil {
		return err
	}
	// The metadata row is gone and it is authoritative. A failed blob delete
	// leaves a reclaimable leak, logged for out-of-band cleanup; it must not
	// fail the operation.
	if delErr := s.store.Delete(ctx, att.StoragePath); delErr != nil {
		logOrphan(att.StoragePath, delErr)
	}
	return nil
}

func (s *documentService) AttachmentURL(ctx context.Context, documentID, attachmentID string) (string, error) {
	att, err := s.getAttachment(ctx, documentID, attachmentID)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, att.StoragePath, presignExpiry)
	if err != nil {
		return "", apperr.Storage(err, "presign attachment url")
	}
	return u, nil
}

func (s *documentService) ApprovalHistory(ctx context.Context, documentID string) ([]model.ApprovalRecord, error) {
	if _, err := s.getDocument(ctx, s.db, documentID); err != nil {
		return nil, err
	}
	recs, err := s.ledger.ListByDocument(ctx, s.db, documentID)
	if err != nil {
		return nil, apperr.Storage(err, "list approval records")
	}
	return recs, nil
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.getDocument(ctx, s.db, id)
	if err != nil {
		return err
	}
	atts, err := s.atts.ListByDocument(ctx, s.db, id)
	if err != nil {
		return apperr.Storage(err, "list attachments")
	}

	// Best-effort blob cleanup: attempt every deletion, remember failures,
	// and proceed regardless. Once this point is reached the document is
	// going away; leftover blobs are logged leaks, not errors.
	var orphaned int
	for _, a := range atts {
		if delErr := s.store.Delete(ctx, a.StoragePath); delErr != nil {
			orphaned++
			logOrphan(a.StoragePath, delErr)
		}
	}
	if orphaned > 0 {
		logJSON(map[string]any{
			"level":        "warn",
			"component":    "documents",
			"event":        "document_delete_blob_failures",
			"document_id":  doc.ID,
			"orphan_count": orphaned,
		})
	}

	return s.tx.WithinTx(ctx, func(q repository.Querier) error {
		if delErr := s.atts.DeleteByDocument(ctx, q, id); delErr != nil {
			return apperr.Storage(delErr, "delete attachment rows")
		}
		if delErr := s.ledger.DeleteByDocument(ctx, q, id); delErr != nil {
			return apperr.Storage(delErr, "delete approval records")
		}
		if delErr := s.docs.Delete(ctx, q, id); delErr != nil {
			return apperr.Storage(delErr, "delete document")
		}
		return nil
	})
}

func (s *documentService) getDocument(ctx context.Context, q repository.Querier, id string) (*model.Document, error) {
	if id == "" {
		return nil, apperr.Validation("document id is required")
	}
	doc, err := s.docs.FindByID(ctx, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document %s not found", id)
		}
		return nil, apperr.Storage(err, "find document")
	}
	return doc, nil
}

func (s *documentService) getAttachment(ctx context.Context, documentID, attachmentID string) (*model.Attachment, error) {
	if documentID == "" || attachmentID == "" {
		return nil, apperr.Validation("document id and attachment id are required")
	}
	att, err := s.atts.FindByID(ctx, s.db, documentID, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("attachment %s not found on document %s", attachmentID, documentID)
		}
		return nil, apperr.Storage(err, "find attachment")
	}
	return att, nil
}

// attachmentKey generates a collision-free storage key; the original name
// contributes only its extension.
func attachmentKey(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	return filepath.ToSlash(filepath.Join("documents", uuid.NewString()+ext))
}

func logOrphan(key string, err error) {
	logJSON(map[string]any{
		"level":        "warn",
		"component":    "documents",
		"event":        "blob_orphaned",
		"storage_path": key,
		"error":        err.Error(),
	})
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
