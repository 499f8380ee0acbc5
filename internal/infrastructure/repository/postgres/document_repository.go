package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

// DocumentRepository is the registry of ingested source documents. The chunk
// corpus itself lives in the vector store; this table tracks provenance and
// processing state.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	source TEXT NOT NULL,
	doc_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	// Re-registering the same source is an upsert, mirroring the vector
	// store's deterministic chunk ids.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, source, doc_type, storage_path, status, error_message, chunk_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (source) DO UPDATE SET
	filename = EXCLUDED.filename,
	doc_type = EXCLUDED.doc_type,
	storage_path = EXCLUDED.storage_path,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		doc.ID, doc.Filename, doc.Source, doc.Type, doc.StoragePath,
		string(doc.Status), doc.Error, doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, source, doc_type, storage_path, status, error_message, chunk_count, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var status string
	var errMessage sql.NullString

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.Source, &doc.Type, &doc.StoragePath,
		&status, &errMessage, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	doc.Error = errMessage.String
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *DocumentRepository) SetChunkCount(ctx context.Context, id string, count int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET chunk_count = $2, updated_at = $3
WHERE id = $1
`, id, count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set chunk count: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "set chunk count", fmt.Errorf("id %s", id))
	}
	return nil
}
