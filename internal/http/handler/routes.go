package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"portalapi/internal/service"
)

type createDocumentRequest struct {
	Title        string     `json:"title"`
	Type         string     `json:"type"`
	Content      *string    `json:"content"`
	DepartmentID *string    `json:"department_id"`
	DueDate      *time.Time `json:"due_date"`
	CreatedBy    string     `json:"created_by"`
}

type updateDocumentRequest struct {
	Title        *string    `json:"title"`
	Content      *string    `json:"content"`
	DepartmentID *string    `json:"department_id"`
	DueDate      *time.Time `json:"due_date"`
}

type approveRequest struct {
	ApproverID string  `json:"approver_id"`
	Comments   *string `json:"comments"`
}

type rejectRequest struct {
	RejectorID string `json:"rejector_id"`
	Comments   string `json:"comments"`
}

type createTemplateRequest struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	TemplateData json.RawMessage `json:"template_data"`
}

type updateTemplateRequest struct {
	Name         *string         `json:"name"`
	Type         *string         `json:"type"`
	TemplateData json.RawMessage `json:"template_data"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers only
// translate transport requests into service commands; every business rule
// lives behind the service interfaces.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, tplSvc service.TemplateService) {
	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	registerDocumentRoutes(app, docSvc)
	registerTemplateRoutes(app, tplSvc)
}

func registerDocumentRoutes(app *fiber.App, docSvc service.DocumentService) {
	app.Get("/documents", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/documents/status-count", func(c *fiber.Ctx) error {
		counts, err := docSvc.StatusCounts(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(counts)
	})

	app.Post("/documents", func(c *fiber.Ctx) error {
		var req createDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := docSvc.Create(c.UserContext(), service.CreateCommand{
			Title:        req.Title,
			Type:         req.Type,
			Content:      req.Content,
			DepartmentID: req.DepartmentID,
			DueDate:      req.DueDate,
			CreatorID:    req.CreatedBy,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	app.Put("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		var req updateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := docSvc.Update(c.UserContext(), id, service.UpdateCommand{
			Title:        req.Title,
			Content:      req.Content,
			DepartmentID: req.DepartmentID,
			DueDate:      req.DueDate,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/documents/:id/submit", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		doc, err := docSvc.Submit(c.UserContext(), service.SubmitCommand{DocumentID: id})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	app.Post("/documents/:id/approve", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		var req approveRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := docSvc.Approve(c.UserContext(), service.ApproveCommand{
			DocumentID: id,
			ActorID:    req.ApproverID,
			Comment:    req.Comments,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	app.Post("/documents/:id/reject", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		var req rejectRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := docSvc.Reject(c.UserContext(), service.RejectCommand{
			DocumentID: id,
			ActorID:    req.RejectorID,
			Comment:    req.Comments,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	app.Get("/documents/:id/approvals", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		recs, err := docSvc.ApprovalHistory(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(recs)
	})

	// Attach files (multipart/form-data, field name: files)
	app.Post("/documents/:id/attachments", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "multipart form is required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		files := make([]service.FileUpload, 0, len(headers))
		for _, fh := range headers {
			f, openErr := fh.Open()
			if openErr != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			ct := fh.Header.Get("Content-Type")
			files = append(files, service.FileUpload{
				Reader:      f,
				FileName:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		atts, err := docSvc.Attach(c.UserContext(), service.AttachCommand{DocumentID: id, Files: files})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(atts)
	})

	app.Get("/documents/:id/attachments/:attachmentID", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		attID, ok := parseID(c, "attachmentID")
		if !ok {
			return invalidID(c)
		}
		u, err := docSvc.AttachmentURL(c.UserContext(), id, attID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Redirect(u, fiber.StatusFound)
	})

	app.Delete("/documents/:id/attachments/:attachmentID", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		attID, ok := parseID(c, "attachmentID")
		if !ok {
			return invalidID(c)
		}
		if err := docSvc.RemoveAttachment(c.UserContext(), service.RemoveAttachmentCommand{
			DocumentID:   id,
			AttachmentID: attID,
		}); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func registerTemplateRoutes(app *fiber.App, tplSvc service.TemplateService) {
	app.Get("/document-templates", func(c *fiber.Ctx) error {
		tpls, err := tplSvc.ListActive(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tpls)
	})

	app.Get("/document-templates/type/:type", func(c *fiber.Ctx) error {
		tpls, err := tplSvc.ListByType(c.UserContext(), c.Params("type"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tpls)
	})

	app.Post("/document-templates", func(c *fiber.Ctx) error {
		var req createTemplateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tpl, err := tplSvc.Create(c.UserContext(), service.TemplateCreateCommand{
			Name:         req.Name,
			Type:         req.Type,
			TemplateData: req.TemplateData,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tpl)
	})

	app.Get("/document-templates/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		tpl, err := tplSvc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tpl)
	})

	app.Put("/document-templates/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		var req updateTemplateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		tpl, err := tplSvc.Update(c.UserContext(), id, service.TemplateUpdateCommand{
			Name:         req.Name,
			Type:         req.Type,
			TemplateData: req.TemplateData,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tpl)
	})

	app.Delete("/document-templates/:id", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return invalidID(c)
		}
		if err := tplSvc.Deactivate(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "template deactivated"})
	})
}

// parseID validates a UUID path parameter so malformed values never reach a
// service call.
func parseID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}
