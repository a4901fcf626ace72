package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/wander-backend-go/internal/database"
)

// AnyVersion makes Put overwrite regardless of the stored version
const AnyVersion int64 = -1

// Document is a stored blob and the version it was read at
type Document struct {
	Body    []byte
	Version int64
}

// DocumentStore persists one opaque blob per key
type DocumentStore interface {
	Get(ctx context.Context, key string) (Document, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Create stores body only if key is absent and reports whether it did
	Create(ctx context.Context, key string, body []byte) (bool, error)
	// Put replaces body if the stored version equals expectedVersion
	// (or unconditionally for AnyVersion, creating the key if needed)
	// and returns the new version.
	Put(ctx context.Context, key string, body []byte, expectedVersion int64) (int64, error)
}

// SQLDocumentRepository stores documents in the cell_documents table
type SQLDocumentRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLDocumentRepository creates a document repository over sqlite or postgres
func NewSQLDocumentRepository(db *sql.DB, dialect database.Dialect) *SQLDocumentRepository {
	return &SQLDocumentRepository{db: db, dialect: dialect}
}

func (r *SQLDocumentRepository) q(query string) string {
	return database.Rebind(r.dialect, query)
}

// Get reads a document
func (r *SQLDocumentRepository) Get(ctx context.Context, key string) (Document, error) {
	var (
		body string
		doc  Document
	)
	err := r.db.QueryRowContext(ctx, r.q(`SELECT body, version FROM cell_documents WHERE doc_key = ?`), key).
		Scan(&body, &doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	doc.Body = []byte(body)
	return doc, nil
}

// Exists checks whether a document has ever been created
func (r *SQLDocumentRepository) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM cell_documents WHERE doc_key = ?`), key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Create inserts the document unless it already exists
func (r *SQLDocumentRepository) Create(ctx context.Context, key string, body []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.q(`INSERT INTO cell_documents (doc_key, body, version) VALUES (?, ?, 1) ON CONFLICT (doc_key) DO NOTHING`),
		key, string(body))
	if err != nil {
		return false, fmt.Errorf("failed to create document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// Put writes the document with an optimistic version check
func (r *SQLDocumentRepository) Put(ctx context.Context, key string, body []byte, expectedVersion int64) (int64, error) {
	if expectedVersion == AnyVersion {
		var version int64
		err := r.db.QueryRowContext(ctx, r.q(`
			INSERT INTO cell_documents (doc_key, body, version) VALUES (?, ?, 1)
			ON CONFLICT (doc_key) DO UPDATE SET
				body = excluded.body,
				version = cell_documents.version + 1,
				updated_at = CURRENT_TIMESTAMP
			RETURNING version`), key, string(body)).Scan(&version)
		if err != nil {
			return 0, fmt.Errorf("failed to put document %s: %w: %w", key, ErrStoreUnavailable, err)
		}
		return version, nil
	}

	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE cell_documents
		SET body = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE doc_key = ? AND version = ?`), string(body), key, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to put document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to put document %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("failed to put document %s at version %d: %w", key, expectedVersion, ErrVersionConflict)
	}
	return expectedVersion + 1, nil
}
