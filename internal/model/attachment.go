package model

import "time"

// Attachment is the metadata row for one uploaded file bound to exactly one
// document. StoragePath is the opaque object-store key; every row is expected
// to have a readable object behind it.
type Attachment struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
