package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewDocumentRepository(db), mock
}

func TestDocumentRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          "doc-1",
		Filename:    "leave_policy.pdf",
		Source:      "leave_policy.pdf",
		Type:        "pdf",
		StoragePath: "uploads/doc-1.pdf",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(doc.ID, doc.Filename, doc.Source, doc.Type, doc.StoragePath,
			string(doc.Status), doc.Error, doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepository_GetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "filename", "source", "doc_type", "storage_path",
		"status", "error_message", "chunk_count", "created_at", "updated_at",
	}).AddRow("doc-1", "handbook.txt", "handbook.txt", "txt", "uploads/doc-1.txt",
		"ready", nil, 12, now, now)

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != domain.StatusReady {
		t.Errorf("status = %q, want ready", doc.Status)
	}
	if doc.ChunkCount != 12 {
		t.Errorf("chunk count = %d, want 12", doc.ChunkCount)
	}
	if doc.Error != "" {
		t.Errorf("error message = %q, want empty", doc.Error)
	}
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("doc-1", "failed", "extract: unsupported format", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "doc-1", domain.StatusFailed, "extract: unsupported format")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
}

func TestDocumentRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("missing", "processing", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentRepository_SetChunkCount(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("doc-1", 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetChunkCount(context.Background(), "doc-1", 7); err != nil {
		t.Fatalf("set chunk count: %v", err)
	}
}
