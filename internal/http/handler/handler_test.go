package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portalapi/internal/apperr"
	"portalapi/internal/model"
	"portalapi/internal/service"
	svcMocks "portalapi/internal/service/mocks"
)

const (
	docID = "0b9fbd9e-3f2e-4f0a-9a0e-0a5d0c0e1f2a"
	attID = "4c1dfe7a-2b3c-4d5e-8f90-a1b2c3d4e5f6"
	tplID = "7e8f9a0b-1c2d-3e4f-8a9b-0c1d2e3f4a5b"
)

type handlerMocks struct {
	sqlMock sqlmock.Sqlmock
	docSvc  *svcMocks.MockDocumentService
	tplSvc  *svcMocks.MockTemplateService
}

func newTestApp(t *testing.T) (*fiber.App, *handlerMocks) {
	t.Helper()
	db, sqlMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := &handlerMocks{
		sqlMock: sqlMock,
		docSvc:  new(svcMocks.MockDocumentService),
		tplSvc:  new(svcMocks.MockTemplateService),
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, db, m.docSvc, m.tplSvc)
	return app, m
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app, m := newTestApp(t)
		m.sqlMock.ExpectPing()

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("database down", func(t *testing.T) {
		app, m := newTestApp(t)
		m.sqlMock.ExpectPing().WillReturnError(assert.AnError)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	})
}

func TestCreateDocument(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Create", mock.Anything, service.CreateCommand{
			Title:     "Q3 report",
			Type:      "attendance_report",
			CreatorID: "1",
		}).Return(&model.Document{ID: docID, Status: model.StatusDraft}, nil)

		res, err := app.Test(jsonRequest(http.MethodPost, "/documents", fiber.Map{
			"title":      "Q3 report",
			"type":       "attendance_report",
			"created_by": "1",
		}))

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		var doc model.Document
		decodeBody(t, res, &doc)
		assert.Equal(t, model.StatusDraft, doc.Status)
		m.docSvc.AssertExpectations(t)
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, apperr.Validation("title is required"))

		res, err := app.Test(jsonRequest(http.MethodPost, "/documents", fiber.Map{"type": "general"}))

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		var payload errorPayload
		decodeBody(t, res, &payload)
		assert.Equal(t, "VALIDATION_ERROR", payload.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		app, m := newTestApp(t)

		req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		res, err := app.Test(req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		m.docSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetDocument(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Get", mock.Anything, docID).Return(&service.DocumentDetail{
			Document:    model.Document{ID: docID, Status: model.StatusPending},
			Attachments: []model.Attachment{{ID: attID}},
		}, nil)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m.docSvc.AssertExpectations(t)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Get", mock.Anything, docID).
			Return(nil, apperr.NotFound("document %s not found", docID))

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID, nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("malformed id never reaches the service", func(t *testing.T) {
		app, m := newTestApp(t)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		var payload errorPayload
		decodeBody(t, res, &payload)
		assert.Equal(t, "INVALID_ID", payload.Error.Code)
		m.docSvc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestListDocuments(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("List", mock.Anything, 5, 10).Return(&service.DocumentListResult{
		Items: []model.Document{{ID: docID}},
		Total: 1,
	}, nil)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=5&offset=10", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func TestStatusCount(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("StatusCounts", mock.Anything).Return([]model.StatusCount{
		{Status: model.StatusPending, Count: 3},
	}, nil)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/status-count", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var counts []model.StatusCount
	decodeBody(t, res, &counts)
	require.Len(t, counts, 1)
	assert.Equal(t, 3, counts[0].Count)
}

func TestSubmitDocument(t *testing.T) {
	t.Run("submitted", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Submit", mock.Anything, service.SubmitCommand{DocumentID: docID}).
			Return(&model.Document{ID: docID, Status: model.StatusPending}, nil)

		res, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/submit", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m.docSvc.AssertExpectations(t)
	})

	t.Run("conflict maps to 409", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, apperr.Conflict("document %s is pending, expected draft or rejected", docID))

		res, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+docID+"/submit", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, res.StatusCode)
		var payload errorPayload
		decodeBody(t, res, &payload)
		assert.Equal(t, "CONFLICT", payload.Error.Code)
	})
}

func TestApproveDocument(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("Approve", mock.Anything, service.ApproveCommand{
		DocumentID: docID,
		ActorID:    "2",
	}).Return(&model.Document{ID: docID, Status: model.StatusApproved}, nil)

	res, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+docID+"/approve", fiber.Map{
		"approver_id": "2",
	}))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func TestRejectDocument(t *testing.T) {
	t.Run("rejected with comment", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Reject", mock.Anything, service.RejectCommand{
			DocumentID: docID,
			ActorID:    "3",
			Comment:    "needs numbers",
		}).Return(&model.Document{ID: docID, Status: model.StatusRejected}, nil)

		res, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+docID+"/reject", fiber.Map{
			"rejector_id": "3",
			"comments":    "needs numbers",
		}))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m.docSvc.AssertExpectations(t)
	})

	t.Run("missing comment maps to 400", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Reject", mock.Anything, mock.Anything).
			Return(nil, apperr.Validation("a rejection comment is required"))

		res, err := app.Test(jsonRequest(http.MethodPost, "/documents/"+docID+"/reject", fiber.Map{
			"rejector_id": "3",
		}))

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestApprovalHistory(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("ApprovalHistory", mock.Anything, docID).Return([]model.ApprovalRecord{
		{ID: attID, Decision: model.DecisionApproved},
	}, nil)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/approvals", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func multipartRequest(t *testing.T, target string, filenames ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range filenames {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAttachFiles(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Attach", mock.Anything, mock.MatchedBy(func(cmd service.AttachCommand) bool {
			return cmd.DocumentID == docID && len(cmd.Files) == 2 &&
				cmd.Files[0].FileName == "a.pdf" && cmd.Files[1].FileName == "b.pdf"
		})).Return([]model.Attachment{{ID: attID}, {ID: tplID}}, nil)

		res, err := app.Test(multipartRequest(t, "/documents/"+docID+"/attachments", "a.pdf", "b.pdf"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		m.docSvc.AssertExpectations(t)
	})

	t.Run("empty form maps to 400", func(t *testing.T) {
		app, m := newTestApp(t)

		res, err := app.Test(multipartRequest(t, "/documents/"+docID+"/attachments"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		m.docSvc.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything)
	})

	t.Run("terminal document maps to 409", func(t *testing.T) {
		app, m := newTestApp(t)
		m.docSvc.On("Attach", mock.Anything, mock.Anything).
			Return(nil, apperr.Conflict("document %s is approved and no longer accepts attachments", docID))

		res, err := app.Test(multipartRequest(t, "/documents/"+docID+"/attachments", "a.pdf"))

		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, res.StatusCode)
	})
}

func TestDownloadAttachment(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("AttachmentURL", mock.Anything, docID, attID).
		Return("https://store.example/documents/x.pdf?sig=abc", nil)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+docID+"/attachments/"+attID, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "https://store.example/documents/x.pdf?sig=abc", res.Header.Get("Location"))
	m.docSvc.AssertExpectations(t)
}

func TestRemoveAttachment(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("RemoveAttachment", mock.Anything, service.RemoveAttachmentCommand{
		DocumentID:   docID,
		AttachmentID: attID,
	}).Return(nil)

	res, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+docID+"/attachments/"+attID, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func TestDeleteDocument(t *testing.T) {
	app, m := newTestApp(t)
	m.docSvc.On("Delete", mock.Anything, docID).Return(nil)

	res, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+docID, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func TestUpdateDocument(t *testing.T) {
	app, m := newTestApp(t)
	title := "Updated"
	m.docSvc.On("Update", mock.Anything, docID, service.UpdateCommand{Title: &title}).
		Return(&model.Document{ID: docID, Title: title}, nil)

	res, err := app.Test(jsonRequest(http.MethodPut, "/documents/"+docID, fiber.Map{"title": title}))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m.docSvc.AssertExpectations(t)
}

func TestTemplateRoutes(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		app, m := newTestApp(t)
		m.tplSvc.On("Create", mock.Anything, mock.MatchedBy(func(cmd service.TemplateCreateCommand) bool {
			return cmd.Name == "Weekly attendance" && cmd.Type == "attendance_report"
		})).Return(&model.Template{ID: tplID, IsActive: true}, nil)

		res, err := app.Test(jsonRequest(http.MethodPost, "/document-templates", fiber.Map{
			"name":          "Weekly attendance",
			"type":          "attendance_report",
			"template_data": fiber.Map{"fields": []string{"week"}},
		}))

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		m.tplSvc.AssertExpectations(t)
	})

	t.Run("list active", func(t *testing.T) {
		app, m := newTestApp(t)
		m.tplSvc.On("ListActive", mock.Anything).Return([]model.Template{{ID: tplID}}, nil)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/document-templates", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("list by type", func(t *testing.T) {
		app, m := newTestApp(t)
		m.tplSvc.On("ListByType", mock.Anything, "leave_request").Return([]model.Template{{ID: tplID}}, nil)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/document-templates/type/leave_request", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m.tplSvc.AssertExpectations(t)
	})

	t.Run("deactivate", func(t *testing.T) {
		app, m := newTestApp(t)
		m.tplSvc.On("Deactivate", mock.Anything, tplID).Return(nil)

		res, err := app.Test(httptest.NewRequest(http.MethodDelete, "/document-templates/"+tplID, nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m.tplSvc.AssertExpectations(t)
	})

	t.Run("deactivate unknown maps to 404", func(t *testing.T) {
		app, m := newTestApp(t)
		m.tplSvc.On("Deactivate", mock.Anything, tplID).
			Return(apperr.NotFound("template %s not found", tplID))

		res, err := app.Test(httptest.NewRequest(http.MethodDelete, "/document-templates/"+tplID, nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
