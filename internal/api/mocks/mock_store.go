package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"secureshare/internal/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Login(ctx context.Context, email, password string) (string, model.Profile, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(model.Profile), args.Error(2)
}

func (m *MockStore) Register(ctx context.Context, name, email, password string) error {
	args := m.Called(ctx, name, email, password)
	return args.Error(0)
}

func (m *MockStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockStore) UploadDocument(ctx context.Context, r io.Reader, filename, contentType string) (model.Document, error) {
	args := m.Called(ctx, r, filename, contentType)
	return args.Get(0).(model.Document), args.Error(1)
}

func (m *MockStore) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) DownloadDocument(ctx context.Context, id string, w io.Writer) (int64, error) {
	args := m.Called(ctx, id, w)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ShareDocument(ctx context.Context, docID, granteeID string, level model.AccessLevel) error {
	args := m.Called(ctx, docID, granteeID, level)
	return args.Error(0)
}

func (m *MockStore) ResolveUserByEmail(ctx context.Context, email string) (model.Profile, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context) ([]model.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Profile), args.Error(1)
}

func (m *MockStore) ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditEntry), args.Error(1)
}

func (m *MockStore) ListFolders(ctx context.Context) ([]model.Folder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Folder), args.Error(1)
}

func (m *MockStore) CreateFolder(ctx context.Context, name string) (model.Folder, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.Folder), args.Error(1)
}

func (m *MockStore) DeleteFolder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
