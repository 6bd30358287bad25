package stubapi

import (
	"context"
	"sync"

	"finspect/internal/core"
)

// Store holds the categories behind the reference API. Records are never
// removed; deletion is an IsActive flip performed by the service.
type Store interface {
	List(ctx context.Context) ([]core.Category, error)
	Get(ctx context.Context, id core.ID) (core.Category, bool, error)
	// Insert assigns the next id and returns the stored record.
	Insert(ctx context.Context, c core.Category) (core.Category, error)
	Save(ctx context.Context, c core.Category) error
	// ExpenseCount is the number of expense records linked to id.
	ExpenseCount(ctx context.Context, id core.ID) (int, error)
	Close() error
}

// MemoryStore is an in-process Store. Insertion order is kept.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []core.ID
	byID     map[core.ID]core.Category
	expenses map[core.ID]int
	nextID   core.ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[core.ID]core.Category),
		expenses: make(map[core.ID]int),
		nextID:   1,
	}
}

func (m *MemoryStore) List(ctx context.Context) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Category, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id core.ID) (core.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	return c, ok, nil
}

func (m *MemoryStore) Insert(ctx context.Context, c core.Category) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	m.order = append(m.order, c.ID)
	m.byID[c.ID] = c
	return c, nil
}

func (m *MemoryStore) Save(ctx context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return errNoSuchRecord
	}
	m.byID[c.ID] = c
	return nil
}

func (m *MemoryStore) ExpenseCount(ctx context.Context, id core.ID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expenses[id], nil
}

// LinkExpense records one expense against the category. The reference
// is not kept.
func (m *MemoryStore) LinkExpense(ctx context.Context, id core.ID, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return errNoSuchRecord
	}
	m.expenses[id]++
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
