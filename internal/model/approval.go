package model

import "time"

// Decision is the outcome recorded in one approval ledger entry.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApprovalRecord is one immutable ledger entry. Rows are only ever inserted,
// always in the same transaction as the matching document status change.
type ApprovalRecord struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ActorID    string    `json:"actor_id"`
	Decision   Decision  `json:"decision"`
	Comment    *string   `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}
