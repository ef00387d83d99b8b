package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalapi/internal/apperr"
	"portalapi/internal/model"
	"portalapi/internal/repository"
)

var documentRows = []string{
	"id", "title", "type", "content", "department_id", "due_date", "status", "created_by",
	"approved_by", "rejected_by", "submitted_at", "attachment_count", "created_at", "updated_at",
}

func documentRow(id string, status model.DocumentStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(documentRows).
		AddRow(id, "Q3 report", "attendance_report", nil, nil, nil, status, "1",
			nil, nil, nil, 0, now, now)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres()
	ctx := context.Background()

	doc := &model.Document{
		ID:        "doc-id",
		Title:     "Q3 report",
		Type:      "attendance_report",
		Status:    model.StatusDraft,
		CreatedBy: "1",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Title, doc.Type, nil, nil, nil, "draft", doc.CreatedBy, doc.CreatedAt).
		WillReturnRows(documentRow(doc.ID, model.StatusDraft))

	stored, err := repo.Create(ctx, db, doc)

	assert.NoError(t, err)
	assert.Equal(t, doc.ID, stored.ID)
	assert.Equal(t, model.StatusDraft, stored.Status)
	assert.Nil(t, stored.ApprovedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("doc-id").
			WillReturnRows(documentRow("doc-id", model.StatusPending))

		doc, err := repo.FindByID(ctx, db, "doc-id")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, doc.Status)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, db, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM documents ORDER BY created_at DESC").
		WithArgs(10, 0).
		WillReturnRows(documentRow("doc-id", model.StatusDraft))

	res, err := repo.List(ctx, db, repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_CountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM documents GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("draft", 3).
			AddRow("pending", 1))

	counts, err := repo.CountByStatus(context.Background(), db)

	assert.NoError(t, err)
	assert.Equal(t, []model.StatusCount{
		{Status: model.StatusDraft, Count: 3},
		{Status: model.StatusPending, Count: 1},
	}, counts)
}

func TestDocumentPostgres_UpdateFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres()
	title := "Updated title"

	mock.ExpectQuery("UPDATE documents").
		WithArgs("doc-id", &title, nil, nil, nil).
		WillReturnRows(documentRow("doc-id", model.StatusDraft))

	doc, err := repo.UpdateFields(context.Background(), db, "doc-id", repository.DocumentFieldUpdate{Title: &title})

	assert.NoError(t, err)
	assert.Equal(t, "doc-id", doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("winner takes the transition", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		approver := "2"
		mock.ExpectQuery("UPDATE documents").
			WithArgs("doc-id", "approved", approver, "pending").
			WillReturnRows(documentRow("doc-id", model.StatusApproved))

		doc, err := NewDocumentPostgres().UpdateStatus(ctx, db, "doc-id", repository.StatusUpdate{
			From:       []model.DocumentStatus{model.StatusPending},
			To:         model.StatusApproved,
			ApprovedBy: &approver,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusApproved, doc.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status moved concurrently", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		// Zero rows match, follow-up read shows the document already decided.
		mock.ExpectQuery("UPDATE documents").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM documents").
			WithArgs("doc-id").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

		_, err = NewDocumentPostgres().UpdateStatus(ctx, db, "doc-id", repository.StatusUpdate{
			From: []model.DocumentStatus{model.StatusPending},
			To:   model.StatusRejected,
		})

		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("document gone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("UPDATE documents").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM documents").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err = NewDocumentPostgres().UpdateStatus(ctx, db, "missing", repository.StatusUpdate{
			From: []model.DocumentStatus{model.StatusDraft},
			To:   model.StatusPending,
		})

		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestDocumentPostgres_RecountAttachments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE documents").
		WithArgs("doc-id").
		WillReturnRows(sqlmock.NewRows([]string{"attachment_count"}).AddRow(2))

	count, err := NewDocumentPostgres().RecountAttachments(context.Background(), db, "doc-id")

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM documents WHERE id = ?").
		WithArgs("doc-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewDocumentPostgres().Delete(context.Background(), db, "doc-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
