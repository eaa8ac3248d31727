package history

import (
	"context"
	"sort"
	"sync"

	"github.com/MateoRommel12/pineapple-cv/server/models"
)

// Store persists analysis history. The pipeline appends records
// fire-and-forget; the API reads them back newest first.
type Store interface {
	Append(ctx context.Context, record *models.HistoryRecord) error
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Clear(ctx context.Context) error
	Close() error
}

const DefaultListLimit = 50

// MemoryStore keeps history in process memory. Used when no database
// is configured, and in tests.
type MemoryStore struct {
	mutex   sync.RWMutex
	records []models.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, *record)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]models.HistoryRecord, len(s.records))
	copy(out, s.records)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }
