package player

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is the volatile in-process store. It backs the whole
// repository when no durable store is configured and absorbs writes when the
// durable store degrades.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository creates an empty volatile store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*Record)}
}

func (m *MemoryRepository) Get(ctx context.Context, userID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryRepository) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := rec.Clone()
	cp.UpdatedAt = time.Now()
	if existing, ok := m.records[rec.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	m.records[rec.ID] = cp
	return nil
}

func (m *MemoryRepository) Create(ctx context.Context, rec *Record) error {
	return m.Save(ctx, rec)
}

func (m *MemoryRepository) Search(ctx context.Context, query string, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []*Record
	for _, rec := range m.records {
		if strings.Contains(strings.ToLower(rec.DisplayName), needle) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
