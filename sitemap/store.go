package sitemap

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a Store when no document exists for a kind.
var ErrNotFound = errors.New("sitemap: document not found")

// Document is one generated sitemap artifact.
type Document struct {
	Kind        Kind
	XML         []byte
	GeneratedAt time.Time
	// Version fingerprints the content snapshot the XML was built from.
	Version string
}

// Store persists generated documents keyed by kind. Put overwrites.
type Store interface {
	Get(ctx context.Context, kind Kind) (Document, error)
	Put(ctx context.Context, doc Document) error
}

// Deleter is implemented by stores that can drop a cached document.
type Deleter interface {
	Delete(ctx context.Context, kind Kind) error
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[Kind]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[Kind]Document)}
}

func (m *MemoryStore) Get(_ context.Context, kind Kind) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[kind]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.XML = append([]byte(nil), doc.XML...)
	return doc, nil
}

func (m *MemoryStore) Put(_ context.Context, doc Document) error {
	doc.XML = append([]byte(nil), doc.XML...)
	m.mu.Lock()
	m.docs[doc.Kind] = doc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, kind Kind) error {
	m.mu.Lock()
	delete(m.docs, kind)
	m.mu.Unlock()
	return nil
}
