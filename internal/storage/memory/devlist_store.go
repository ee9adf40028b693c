package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

type devListKey struct {
	kind    domain.ListKind
	address string
}

type devListItem struct {
	entry domain.DevListEntry
	seq   int // insertion order, breaks added_at ties
}

// DevListStore is an in-memory implementation of storage.DevListStore.
type DevListStore struct {
	mu   sync.RWMutex
	data map[devListKey]devListItem
	next int
}

// NewDevListStore creates a new in-memory dev list store.
func NewDevListStore() *DevListStore {
	return &DevListStore{
		data: make(map[devListKey]devListItem),
	}
}

// Add inserts an entry. Returns ErrDuplicateKey if (kind, address) exists.
func (s *DevListStore) Add(_ context.Context, e *domain.DevListEntry) error {
	if err := storage.ValidateDevListEntry(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := devListKey{e.Kind, e.Address}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[k] = devListItem{entry: *e, seq: s.next}
	s.next++
	return nil
}

// Remove deletes an entry. Returns ErrNotFound if it does not exist.
func (s *DevListStore) Remove(_ context.Context, kind domain.ListKind, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := devListKey{kind, address}
	if _, exists := s.data[k]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, k)
	return nil
}

// List returns all entries of kind, ordered by added_at ASC.
func (s *DevListStore) List(_ context.Context, kind domain.ListKind) ([]*domain.DevListEntry, error) {
	s.mu.RLock()
	items := make([]devListItem, 0, len(s.data))
	for k, it := range s.data {
		if k.kind == kind {
			items = append(items, it)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].entry.AddedAt != items[j].entry.AddedAt {
			return items[i].entry.AddedAt < items[j].entry.AddedAt
		}
		return items[i].seq < items[j].seq
	})

	result := make([]*domain.DevListEntry, len(items))
	for i := range items {
		entryCopy := items[i].entry
		result[i] = &entryCopy
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DevListStore = (*DevListStore)(nil)
