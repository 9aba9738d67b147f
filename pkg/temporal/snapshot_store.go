package temporal

import (
	"context"
	"sort"
	"sync"

	"github.com/agflows/esr-dashboard/pkg/esr"
)

// SnapshotStore is the durable home of retrieved ESR data, keyed by commodity
// and marketing year. Saving a year replaces its previous rows, so a refresh
// never duplicates observations.
type SnapshotStore interface {
	SaveYear(ctx context.Context, commodity string, marketYear int, obs esr.ObservationSet) error
	Load(ctx context.Context, commodity string) (esr.ObservationSet, error)
}

// MemorySnapshotStore implements SnapshotStore in process memory
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	years map[string]map[int]esr.ObservationSet // commodity -> marketYear -> rows
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		years: make(map[string]map[int]esr.ObservationSet),
	}
}

// SaveYear replaces the stored rows of one marketing year
func (m *MemorySnapshotStore) SaveYear(ctx context.Context, commodity string, marketYear int, obs esr.ObservationSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.years[commodity] == nil {
		m.years[commodity] = make(map[int]esr.ObservationSet)
	}

	stored := make(esr.ObservationSet, len(obs))
	copy(stored, obs)
	m.years[commodity][marketYear] = stored
	return nil
}

// Load returns all stored rows of a commodity, concatenated in marketing-year
// order. A commodity with nothing stored yields an empty set, not an error.
func (m *MemorySnapshotStore) Load(ctx context.Context, commodity string) (esr.ObservationSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byYear, exists := m.years[commodity]
	if !exists {
		return esr.ObservationSet{}, nil
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	var all esr.ObservationSet
	for _, year := range years {
		all = append(all, byYear[year]...)
	}
	return all, nil
}
