package results

import (
	"slices"
	"sync"
)

// Snapshot is a point-in-time view of a Store. It is never mutated by later
// appends or resets and may be held for as long as the caller likes.
type Snapshot struct {
	Items     []Item
	Aggregate Aggregate
}

// Len returns the number of items in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Items)
}

// Store owns the ordered item log and its aggregate. Append and Reset are
// atomic with respect to Snapshot: a reader never sees the log and the
// aggregate disagree.
type Store struct {
	mu  sync.RWMutex
	log []Item
	agg Aggregate
}

func NewStore() *Store {
	return &Store{}
}

// Reset drops every item and zeroes the aggregate.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.agg = EmptyAggregate()
}

// Append adds item to the end of the log and folds it into the aggregate.
func (s *Store) Append(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, item)
	s.agg = s.agg.Update(item.Elapsed)
}

// Snapshot returns a copy of the log and its aggregate. Writes to the
// returned items never reach the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:     slices.Clone(s.log),
		Aggregate: s.agg,
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}
