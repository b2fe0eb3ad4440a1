package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore keeps each document as <kind>.xml next to a <kind>.meta.yaml
// sidecar holding the generation time and content version. A document only
// exists once its sidecar does; the sidecar is always written last.
type FileStore struct {
	dir string
}

type fileMeta struct {
	Kind        Kind      `yaml:"kind"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Version     string    `yaml:"version"`
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sitemap dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) xmlPath(kind Kind) string  { return filepath.Join(s.dir, string(kind)+".xml") }
func (s *FileStore) metaPath(kind Kind) string { return filepath.Join(s.dir, string(kind)+".meta.yaml") }

func (s *FileStore) Get(_ context.Context, kind Kind) (Document, error) {
	raw, err := os.ReadFile(s.metaPath(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("read sitemap meta %s: %w", kind, err)
	}
	var meta fileMeta
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return Document{}, fmt.Errorf("decode sitemap meta %s: %w", kind, err)
	}
	body, err := os.ReadFile(s.xmlPath(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("read sitemap %s: %w", kind, err)
	}
	return Document{
		Kind:        kind,
		XML:         body,
		GeneratedAt: meta.GeneratedAt,
		Version:     meta.Version,
	}, nil
}

func (s *FileStore) Put(_ context.Context, doc Document) error {
	meta, err := yaml.Marshal(fileMeta{
		Kind:        doc.Kind,
		GeneratedAt: doc.GeneratedAt.UTC(),
		Version:     doc.Version,
	})
	if err != nil {
		return fmt.Errorf("encode sitemap meta %s: %w", doc.Kind, err)
	}
	if err := writeFileAtomic(s.xmlPath(doc.Kind), doc.XML); err != nil {
		return fmt.Errorf("write sitemap %s: %w", doc.Kind, err)
	}
	if err := writeFileAtomic(s.metaPath(doc.Kind), meta); err != nil {
		return fmt.Errorf("write sitemap meta %s: %w", doc.Kind, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, kind Kind) error {
	for _, p := range []string{s.metaPath(kind), s.xmlPath(kind)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
