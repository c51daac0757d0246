package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
)

type MockHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.HistoryEntry
	order   []string

	// SaveErr - если задан, Save возвращает его
	SaveErr error
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{
		entries: make(map[string]domain.HistoryEntry),
	}
}

func (m *MockHistoryRepository) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.ID]; exists {
		return domain.ErrDuplicateEntry
	}
	m.entries[entry.ID] = *entry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MockHistoryRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.HistoryEntry
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.entries[m.order[i]]
		if e.UserID == userID {
			result = append(result, e)
		}
	}

	// порядок вставки как tie-breaker, как ORDER BY created_at DESC в postgres
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (m *MockHistoryRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []string
	var n int64
	for _, id := range m.order {
		if m.entries[id].UserID == userID {
			delete(m.entries, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return n, nil
}

func (m *MockHistoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ HistoryRepository = (*MockHistoryRepository)(nil)
