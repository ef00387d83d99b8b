package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"portalapi/internal/model"
	"portalapi/internal/repository"
)

// MockTxRunner runs the transactional function inline with a nil Querier,
// mimicking a committed transaction. Set Err to simulate a begin failure.
type MockTxRunner struct {
	Err   error
	Calls int
}

func (m *MockTxRunner) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(nil)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, q repository.Querier, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, q, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, q repository.Querier, id string) (*model.Document, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, q repository.Querier, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, q, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) CountByStatus(ctx context.Context, q repository.Querier) ([]model.StatusCount, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusCount), args.Error(1)
}

func (m *MockDocumentRepository) UpdateFields(ctx context.Context, q repository.Querier, id string, upd repository.DocumentFieldUpdate) (*model.Document, error) {
	args := m.Called(ctx, q, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, q repository.Querier, id string, upd repository.StatusUpdate) (*model.Document, error) {
	args := m.Called(ctx, q, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) RecountAttachments(ctx context.Context, q repository.Querier, id string) (int, error) {
	args := m.Called(ctx, q, id)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, q repository.Querier, id string) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) Insert(ctx context.Context, q repository.Querier, att *model.Attachment) (*model.Attachment, error) {
	args := m.Called(ctx, q, att)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) FindByID(ctx context.Context, q repository.Querier, documentID, id string) (*model.Attachment, error) {
	args := m.Called(ctx, q, documentID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) ListByDocument(ctx context.Context, q repository.Querier, documentID string) ([]model.Attachment, error) {
	args := m.Called(ctx, q, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) Delete(ctx context.Context, q repository.Querier, documentID, id string) error {
	args := m.Called(ctx, q, documentID, id)
	return args.Error(0)
}

func (m *MockAttachmentRepository) DeleteByDocument(ctx context.Context, q repository.Querier, documentID string) error {
	args := m.Called(ctx, q, documentID)
	return args.Error(0)
}

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) Append(ctx context.Context, q repository.Querier, rec *model.ApprovalRecord) (*model.ApprovalRecord, error) {
	args := m.Called(ctx, q, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRepository) ListByDocument(ctx context.Context, q repository.Querier, documentID string) ([]model.ApprovalRecord, error) {
	args := m.Called(ctx, q, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRepository) DeleteByDocument(ctx context.Context, q repository.Querier, documentID string) error {
	args := m.Called(ctx, q, documentID)
	return args.Error(0)
}

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, q repository.Querier, tpl *model.Template) (*model.Template, error) {
	args := m.Called(ctx, q, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) FindByID(ctx context.Context, q repository.Querier, id string) (*model.Template, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) ListActive(ctx context.Context, q repository.Querier) ([]model.Template, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Template), args.Error(1)
}

func (m *MockTemplateRepository) ListByType(ctx context.Context, q repository.Querier, docType string) ([]model.Template, error) {
	args := m.Called(ctx, q, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Template), args.Error(1)
}

func (m *MockTemplateRepository) Update(ctx context.Context, q repository.Querier, id string, upd repository.TemplateFieldUpdate) (*model.Template, error) {
	args := m.Called(ctx, q, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) Deactivate(ctx context.Context, q repository.Querier, id string) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}
