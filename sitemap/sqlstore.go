package sitemap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a "sitemaps" table of a SQLite database,
// usually the same database that holds the posts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the sitemaps table exists on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sitemaps (
    kind TEXT PRIMARY KEY,
    xml BLOB NOT NULL,
    generated_at TEXT NOT NULL,
    version TEXT NOT NULL DEFAULT ''
);
`)
	if err != nil {
		return nil, fmt.Errorf("create sitemaps table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, kind Kind) (Document, error) {
	var (
		body        []byte
		generatedAt string
		version     string
	)
	err := s.db.QueryRowContext(ctx, `SELECT xml, generated_at, version FROM sitemaps WHERE kind = ?`, string(kind)).
		Scan(&body, &generatedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("select sitemap %s: %w", kind, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, generatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("parse generated_at for %s: %w", kind, err)
	}
	return Document{Kind: kind, XML: body, GeneratedAt: ts, Version: version}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sitemaps (kind, xml, generated_at, version) VALUES (?, ?, ?, ?)
        ON CONFLICT(kind) DO UPDATE SET xml=excluded.xml, generated_at=excluded.generated_at, version=excluded.version`,
		string(doc.Kind), doc.XML, doc.GeneratedAt.UTC().Format(time.RFC3339Nano), doc.Version)
	if err != nil {
		return fmt.Errorf("upsert sitemap %s: %w", doc.Kind, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, kind Kind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sitemaps WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("delete sitemap %s: %w", kind, err)
	}
	return nil
}

// PostgresStore keeps documents in a Postgres "sitemaps" table, for
// deployments running several instances behind a load balancer.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore connects to dsn, checks the connection and ensures the
// table exists.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS sitemaps (
    kind VARCHAR(32) PRIMARY KEY,
    xml BYTEA NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    version VARCHAR(64) NOT NULL DEFAULT ''
)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sitemaps table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, kind Kind) (Document, error) {
	doc := Document{Kind: kind}
	err := s.db.QueryRowContext(ctx, `SELECT xml, generated_at, version FROM sitemaps WHERE kind = $1`, string(kind)).
		Scan(&doc.XML, &doc.GeneratedAt, &doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("select sitemap %s: %w", kind, err)
	}
	return doc, nil
}

func (s *PostgresStore) Put(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sitemaps (kind, xml, generated_at, version)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (kind) DO UPDATE SET
            xml = EXCLUDED.xml,
            generated_at = EXCLUDED.generated_at,
            version = EXCLUDED.version
    `, string(doc.Kind), doc.XML, doc.GeneratedAt.UTC(), doc.Version)
	if err != nil {
		return fmt.Errorf("upsert sitemap %s: %w", doc.Kind, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind Kind) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sitemaps WHERE kind = $1`, string(kind)); err != nil {
		return fmt.Errorf("delete sitemap %s: %w", kind, err)
	}
	return nil
}
