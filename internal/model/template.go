package model

import (
	"encoding/json"
	"time"
)

// Template is a reusable form definition for a document kind. Templates are
// soft-deleted: Deactivate flips IsActive and every read path filters on it.
type Template struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	TemplateData json.RawMessage `json:"template_data"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}
