package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalapi/internal/model"
)

var attachmentRows = []string{
	"id", "document_id", "file_name", "storage_path", "size", "content_type", "uploaded_at",
}

func TestAttachmentPostgres_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	att := &model.Attachment{
		ID:          "att-id",
		DocumentID:  "doc-id",
		FileName:    "report.pdf",
		StoragePath: "documents/att-id.pdf",
		Size:        1024,
		ContentType: "application/pdf",
		UploadedAt:  time.Now().UTC(),
	}

	mock.ExpectQuery("INSERT INTO document_attachments").
		WithArgs(att.ID, att.DocumentID, att.FileName, att.StoragePath, att.Size, att.ContentType, att.UploadedAt).
		WillReturnRows(sqlmock.NewRows(attachmentRows).
			AddRow(att.ID, att.DocumentID, att.FileName, att.StoragePath, att.Size, att.ContentType, att.UploadedAt))

	stored, err := NewAttachmentPostgres().Insert(context.Background(), db, att)

	assert.NoError(t, err)
	assert.Equal(t, att.StoragePath, stored.StoragePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAttachmentPostgres()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM document_attachments WHERE id = (.+) AND document_id = ?").
			WithArgs("att-id", "doc-id").
			WillReturnRows(sqlmock.NewRows(attachmentRows).
				AddRow("att-id", "doc-id", "report.pdf", "documents/att-id.pdf", 1024, "application/pdf", time.Now()))

		att, err := repo.FindByID(ctx, db, "doc-id", "att-id")

		assert.NoError(t, err)
		assert.Equal(t, "att-id", att.ID)
	})

	t.Run("owned by another document", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM document_attachments WHERE id = (.+) AND document_id = ?").
			WithArgs("att-id", "other-doc").
			WillReturnError(sql.ErrNoRows)

		att, err := repo.FindByID(ctx, db, "other-doc", "att-id")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, att)
	})
}

func TestAttachmentPostgres_ListByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM document_attachments").
		WithArgs("doc-id").
		WillReturnRows(sqlmock.NewRows(attachmentRows).
			AddRow("a1", "doc-id", "one.pdf", "documents/a1.pdf", 10, "application/pdf", time.Now()).
			AddRow("a2", "doc-id", "two.png", "documents/a2.png", 20, "image/png", time.Now()))

	atts, err := NewAttachmentPostgres().ListByDocument(context.Background(), db, "doc-id")

	assert.NoError(t, err)
	assert.Len(t, atts, 2)
	assert.Equal(t, "one.pdf", atts[0].FileName)
}

func TestAttachmentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM document_attachments WHERE id = (.+) AND document_id = ?").
		WithArgs("att-id", "doc-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewAttachmentPostgres().Delete(context.Background(), db, "doc-id", "att-id")

	assert.NoError(t, err)
}

func TestAttachmentPostgres_DeleteByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM document_attachments WHERE document_id = ?").
		WithArgs("doc-id").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err = NewAttachmentPostgres().DeleteByDocument(context.Background(), db, "doc-id")

	assert.NoError(t, err)
}
