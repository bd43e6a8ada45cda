package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// ErrNoCachedResponse est retournée quand aucune entrée ne correspond à la requête
var ErrNoCachedResponse = errors.New("aucune réponse en cache")

// Entry est une réponse GET réussie conservée dans un cache
type Entry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Response reconstruit une réponse HTTP à partir de l'entrée
func (e *Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Header = e.Header.Clone()
	c.Body = append([]byte(nil), e.Body...)
	return &c
}

// Cache est un espace de cache nommé, indexé par URL
type Cache interface {
	// Match retourne ErrNoCachedResponse si l'URL est absente
	Match(ctx context.Context, url string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	// PutAll écrit toutes les entrées ou aucune
	PutAll(ctx context.Context, entries []*Entry) error
	Keys(ctx context.Context) ([]string, error)
}

// CacheStorage regroupe les espaces de cache du worker
type CacheStorage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// MemoryCacheStorage garde les caches en mémoire
type MemoryCacheStorage struct {
	mu     sync.Mutex
	caches map[string]*memoryCache
}

// NewMemoryCacheStorage crée un stockage de caches vide
func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{caches: make(map[string]*memoryCache)}
}

// Open retourne le cache nommé, créé à la première ouverture
func (s *MemoryCacheStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &memoryCache{entries: make(map[string]*Entry)}
		s.caches[name] = c
	}
	return c, nil
}

// Names retourne les noms de cache, triés
func (s *MemoryCacheStorage) Names(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete supprime un cache; un nom absent n'est pas une erreur
func (s *MemoryCacheStorage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, name)
	return nil
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func (c *memoryCache) Match(_ context.Context, url string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[url]
	if !ok {
		return nil, ErrNoCachedResponse
	}
	return e.clone(), nil
}

func (c *memoryCache) Put(_ context.Context, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.URL] = entry.clone()
	return nil
}

func (c *memoryCache) PutAll(_ context.Context, entries []*Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.entries[e.URL] = e.clone()
	}
	return nil
}

func (c *memoryCache) Keys(context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
