package risk

import (
	"context"
	"sort"
	"sync"

	"github.com/mbd888/txrisk/internal/pagination"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]*AuditEntry // accountID → entries, newest first
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]*AuditEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Record(ctx context.Context, entry *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := copyEntry(entry)
	accountID := e.Assessment.AccountID
	list := append(s.entries[accountID], e)
	// Records arrive from concurrent goroutines, not in RecordedAt order.
	sort.SliceStable(list, func(i, j int) bool {
		return newerEntry(list[i], list[j])
	})
	s.entries[accountID] = list
	return nil
}

func (s *MemoryStore) ListByAccount(ctx context.Context, accountID string, limit int, before *pagination.Cursor) ([]*AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[accountID]
	if len(all) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = len(all)
	}

	var result []*AuditEntry
	for _, e := range all {
		if !before.After(e.RecordedAt, e.ID) {
			continue
		}
		result = append(result, copyEntry(e))
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func newerEntry(a, b *AuditEntry) bool {
	if a.RecordedAt.Equal(b.RecordedAt) {
		return a.ID > b.ID
	}
	return a.RecordedAt.After(b.RecordedAt)
}

// copyEntry deep-copies the slices so callers cannot mutate stored state.
func copyEntry(entry *AuditEntry) *AuditEntry {
	e := *entry
	a := *entry.Assessment
	a.Alerts = append([]AnomalyEvent(nil), a.Alerts...)
	a.Recommendations = append([]string(nil), a.Recommendations...)
	e.Assessment = &a
	return &e
}
