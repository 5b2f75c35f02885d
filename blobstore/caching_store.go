package blobstore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a Store and caches whole blobs in memory. Reads of hot
// artifacts (the commit marker, a freshly flushed index) skip the backend;
// writes and deletes invalidate. Concurrent cache misses for the same name
// collapse into a single backend fetch.
type CachingStore struct {
	inner Store

	mu    sync.RWMutex
	blobs map[string][]byte

	group singleflight.Group
}

// NewCachingStore creates a caching wrapper around inner.
func NewCachingStore(inner Store) *CachingStore {
	return &CachingStore{
		inner: inner,
		blobs: make(map[string][]byte),
	}
}

// Get returns the blob, fetching from the backend on a cache miss.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.blobs[name]
	s.mu.RUnlock()
	if ok {
		return cloneBytes(data), nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		s.mu.RLock()
		data, ok := s.blobs[name]
		s.mu.RUnlock()
		if ok {
			return data, nil
		}

		fetched, err := s.inner.Get(ctx, name)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.blobs[name] = fetched
		s.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBytes(v.([]byte)), nil
}

// Put writes through to the backend and refreshes the cache on success.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		// Backend state is unknown; drop the stale entry.
		s.invalidate(name)
		return err
	}

	s.mu.Lock()
	s.blobs[name] = cloneBytes(data)
	s.mu.Unlock()
	return nil
}

// Delete removes the blob from the backend and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List delegates to the backend; listings are not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Invalidate drops all cached blobs.
func (s *CachingStore) Invalidate() {
	s.mu.Lock()
	s.blobs = make(map[string][]byte)
	s.mu.Unlock()
}

func (s *CachingStore) invalidate(name string) {
	s.mu.Lock()
	delete(s.blobs, name)
	s.mu.Unlock()
}

func cloneBytes(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
