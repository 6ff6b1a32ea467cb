package services

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

// DoctrineService serves the catalog of ingested doctrines from a short-lived
// in-memory copy. Entries may lag the chunk store by up to ttl.
type DoctrineService struct {
	store core.ChunkStore
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   []models.Doctrine
	loadedAt time.Time
}

func NewDoctrineService(store core.ChunkStore, ttl time.Duration) *DoctrineService {
	return &DoctrineService{store: store, ttl: ttl, now: time.Now}
}

// List returns every known (country, warfare type) pair.
func (s *DoctrineService) List(ctx context.Context) ([]models.Doctrine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cached, nil
	}

	docs, err := s.store.ListDoctrines(ctx)
	if err != nil {
		return nil, err
	}
	s.cached, s.loadedAt = docs, s.now()
	return docs, nil
}

// Count reports the stored chunks of one doctrine. It bypasses the cache.
func (s *DoctrineService) Count(ctx context.Context, country, warfareType string) (int, error) {
	return s.store.CountChunks(ctx, country, warfareType)
}
