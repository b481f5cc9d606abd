package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Backend in a single SQLite file (or ":memory:").
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and runs migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// migrate creates the documents table and adds columns introduced after
// the first release.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('documents') WHERE name = 'rev'`).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.ExecContext(ctx, `ALTER TABLE documents ADD COLUMN rev INTEGER NOT NULL DEFAULT 1`)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    owner TEXT NOT NULL DEFAULT '',
    body BLOB NOT NULL,
    rev INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_owner
    ON documents (collection, owner, created_at);
`

func (s *SQLite) Get(ctx context.Context, collection, id string) (*Document, error) {
	doc := Document{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, body, rev FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&doc.Owner, &doc.Body, &doc.Rev)
	if err == sql.ErrNoRows {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", collection, id, err)
	}
	return &doc, nil
}

func (s *SQLite) Create(ctx context.Context, collection string, doc Document) error {
	now := time.Now().UnixNano()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, owner, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, doc.ID, doc.Owner, doc.Body, now, now)
	if err != nil {
		return fmt.Errorf("failed to create %s %s: %w", collection, doc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return conflict(collection, doc.ID)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, collection string, doc Document) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET owner = ?, body = ?, rev = rev + 1, updated_at = ?
		WHERE collection = ? AND id = ? AND (? = 0 OR rev = ?)
	`, doc.Owner, doc.Body, time.Now().UnixNano(), collection, doc.ID, doc.Rev, doc.Rev)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", collection, doc.ID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, collection, doc.ID); err != nil {
		return err
	}
	return stale(collection, doc.ID, doc.Rev)
}

func (s *SQLite) Upsert(ctx context.Context, collection string, doc Document) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, owner, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			owner = excluded.owner,
			body = excluded.body,
			rev = documents.rev + 1,
			updated_at = excluded.updated_at
	`, collection, doc.ID, doc.Owner, doc.Body, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", collection, doc.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, collection, owner string) ([]Document, error) {
	query := `SELECT id, owner, body, rev FROM documents WHERE collection = ?`
	args := []any{collection}
	if owner != "" {
		query += ` AND owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Owner, &d.Body, &d.Rev); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
