package model

import "time"

// DocumentStatus is the approval-workflow state of a document.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusPending  DocumentStatus = "pending"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

// documentTypes is the fixed catalog of valid document kinds.
var documentTypes = map[string]struct{}{
	"attendance_report": {},
	"leave_request":     {},
	"expense_report":    {},
	"purchase_request":  {},
	"general":           {},
}

// ValidDocumentType reports whether t belongs to the document kind catalog.
func ValidDocumentType(t string) bool {
	_, ok := documentTypes[t]
	return ok
}

// Document represents a unit of work moving through the approval workflow.
// This is a pure domain model with no database-specific dependencies or tags.
// Exactly one of ApprovedBy/RejectedBy is set, and only in the matching
// terminal status; both are nil while draft or pending.
type Document struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Type            string         `json:"type"`
	Content         *string        `json:"content,omitempty"`
	DepartmentID    *string        `json:"department_id,omitempty"`
	DueDate         *time.Time     `json:"due_date,omitempty"`
	Status          DocumentStatus `json:"status"`
	CreatedBy       string         `json:"created_by"`
	ApprovedBy      *string        `json:"approved_by,omitempty"`
	RejectedBy      *string        `json:"rejected_by,omitempty"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	AttachmentCount int            `json:"attachment_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Editable reports whether the document's fields may currently be changed.
// Rejected documents stay editable so they can be fixed up and resubmitted.
func (d *Document) Editable() bool {
	return d.Status == StatusDraft || d.Status == StatusRejected
}

// Terminal reports whether the document has been decided in this cycle.
func (d *Document) Terminal() bool {
	return d.Status == StatusApproved || d.Status == StatusRejected
}

// StatusCount is one row of the per-status document aggregation.
type StatusCount struct {
	Status DocumentStatus `json:"status"`
	Count  int            `json:"count"`
}
