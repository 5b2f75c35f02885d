package metadata

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hirewire/matchengine/model"
)

// TypeFilter maps record types to the vector-store positions they occupied
// at the time of the last build. The engine rebuilds it whenever the
// position/id alignment changes (index, delete, rebuild, load).
type TypeFilter struct {
	mu      sync.RWMutex
	bitmaps map[model.RecordType]*roaring.Bitmap
}

// NewTypeFilter creates an empty type filter.
func NewTypeFilter() *TypeFilter {
	return &TypeFilter{bitmaps: make(map[model.RecordType]*roaring.Bitmap)}
}

// Rebuild recomputes the bitmaps from the position-aligned id sequence.
// Position i holds the vector of the record whose id is idSeq[i].
func (tf *TypeFilter) Rebuild(idSeq []model.ID, store *Store) {
	bitmaps := make(map[model.RecordType]*roaring.Bitmap)
	for pos, id := range idSeq {
		rec, err := store.Get(id)
		if err != nil {
			continue
		}
		bm, ok := bitmaps[rec.Type]
		if !ok {
			bm = roaring.New()
			bitmaps[rec.Type] = bm
		}
		bm.Add(uint32(pos))
	}

	tf.mu.Lock()
	tf.bitmaps = bitmaps
	tf.mu.Unlock()
}

// Contains reports whether pos holds a record of type t.
func (tf *TypeFilter) Contains(t model.RecordType, pos uint32) bool {
	tf.mu.RLock()
	defer tf.mu.RUnlock()

	bm, ok := tf.bitmaps[t]
	return ok && bm.Contains(pos)
}

// Cardinality returns the number of positions holding records of type t.
func (tf *TypeFilter) Cardinality(t model.RecordType) uint64 {
	tf.mu.RLock()
	defer tf.mu.RUnlock()

	bm, ok := tf.bitmaps[t]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// Clear drops all bitmaps.
func (tf *TypeFilter) Clear() {
	tf.mu.Lock()
	tf.bitmaps = make(map[model.RecordType]*roaring.Bitmap)
	tf.mu.Unlock()
}
