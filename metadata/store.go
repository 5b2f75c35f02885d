// Package metadata maps surrogate record ids to structured records and
// tracks which vector-store positions belong to which record type.
package metadata

import (
	"errors"
	"sync"

	"github.com/hirewire/matchengine/model"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("metadata: record not found")

// Entry pairs a surrogate id with its record.
type Entry struct {
	ID     model.ID
	Record *model.Record
}

// Store holds records in insertion order, keyed by surrogate id.
//
// Ids are assigned by the owner via NextID and are monotone: NextID never
// hands out an id below the session high-water mark, so deleting the highest
// record cannot cause reuse within a session. Across sessions the max+1 rule
// restores monotonicity from the persisted records alone.
type Store struct {
	mu      sync.RWMutex
	order   []model.ID
	records map[model.ID]*model.Record
	high    model.ID // next id the session may hand out
}

// New creates an empty metadata store.
func New() *Store {
	return &Store{records: make(map[model.ID]*model.Record)}
}

// Put stores the record under id. Records are stored by reference; callers
// hand over ownership. Re-putting an existing id keeps its insertion slot.
func (s *Store) Put(id model.ID, rec *model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
	if id >= s.high {
		s.high = id + 1
	}
}

// Get returns the record for id or ErrNotFound.
func (s *Store) Get(id model.ID) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Remove deletes the record for id. Removing an unknown id is a no-op.
func (s *Store) Remove(id model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Entry{ID: id, Record: s.records[id]})
	}
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// NextID returns the next surrogate id: max(existing)+1 (0 when empty),
// never below the session high-water mark.
func (s *Store) NextID() model.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next model.ID
	for _, id := range s.order {
		if id >= next {
			next = id + 1
		}
	}
	if s.high > next {
		next = s.high
	}
	return next
}

// Clear removes every record. The session high-water mark survives so a
// clear-then-index sequence still never reuses an id.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[model.ID]*model.Record)
}

// Snapshot returns the records in insertion order, for the sidecar artifact.
func (s *Store) Snapshot() []*model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Restore replaces the store's contents with recs, preserving their order.
// Each record's ID field is the authoritative surrogate id.
func (s *Store) Restore(recs []*model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]model.ID, 0, len(recs))
	s.records = make(map[model.ID]*model.Record, len(recs))
	s.high = 0
	for _, rec := range recs {
		if _, ok := s.records[rec.ID]; !ok {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
		if rec.ID >= s.high {
			s.high = rec.ID + 1
		}
	}
}
