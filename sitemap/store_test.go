package sitemap

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exerciseStore runs the contract every Store implementation must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, KindPosts); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store Get = %v, want ErrNotFound", err)
	}

	generated := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	doc := Document{Kind: KindPosts, XML: []byte("<urlset/>"), GeneratedAt: generated, Version: "v1"}
	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, KindPosts)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got.XML, doc.XML) || got.Version != "v1" || !got.GeneratedAt.Equal(generated) || got.Kind != KindPosts {
		t.Errorf("Get = %+v, want %+v", got, doc)
	}

	doc.XML = []byte("<urlset><url/></urlset>")
	doc.Version = "v2"
	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _ = s.Get(ctx, KindPosts)
	if got.Version != "v2" || string(got.XML) != "<urlset><url/></urlset>" {
		t.Errorf("overwrite not visible: %+v", got)
	}

	if _, err := s.Get(ctx, KindTags); !errors.Is(err, ErrNotFound) {
		t.Errorf("other kinds must stay empty, got %v", err)
	}

	if d, ok := s.(Deleter); ok {
		if err := d.Delete(ctx, KindPosts); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, KindPosts); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after Delete = %v, want ErrNotFound", err)
		}
		if err := d.Delete(ctx, KindPosts); err != nil {
			t.Errorf("deleting a missing document should succeed, got %v", err)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesXML(t *testing.T) {
	s := NewMemoryStore()
	body := []byte("<a/>")
	_ = s.Put(context.Background(), Document{Kind: KindIndex, XML: body})
	body[1] = 'b'
	got, _ := s.Get(context.Background(), KindIndex)
	if string(got.XML) != "<a/>" {
		t.Errorf("store aliased caller buffer: %s", got.XML)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sitemaps"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStoreWithoutMetaIsMissing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tags.xml"), []byte("<urlset/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), KindTags); !errors.Is(err, ErrNotFound) {
		t.Errorf("xml without sidecar should be a miss, got %v", err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	_ = s.Put(context.Background(), Document{Kind: KindIndex, XML: []byte("<sitemapindex/>"), GeneratedAt: time.Now()})
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected index.xml and index.meta.yaml, got %v", names)
	}
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sitemaps.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	exerciseStore(t, s)

	if _, err := NewSQLiteStore(db); err != nil {
		t.Errorf("schema setup should be idempotent: %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BLOGSITE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BLOGSITE_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgresStore(dsn)
	if err != nil {
		t.Fatalf("OpenPostgresStore failed: %v", err)
	}
	defer s.Close()
	for _, k := range Kinds() {
		_ = s.Delete(context.Background(), k)
	}
	exerciseStore(t, s)
}
