package persistence

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/matchengine/blobstore"
	"github.com/hirewire/matchengine/metadata"
	"github.com/hirewire/matchengine/model"
	"github.com/hirewire/matchengine/vectorstore"
)

func buildSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	ctx := context.Background()

	flat, err := vectorstore.New(4)
	require.NoError(t, err)

	meta := metadata.New()
	ids := make([]model.ID, 0, 2)
	for i, rec := range []*model.Record{
		{Key: "job-1", Type: model.RecordTypeJob, Text: "go backend engineer", Skills: []string{"go"}},
		{Key: "job-2", Type: model.RecordTypeJob, Text: "java developer", Skills: []string{"java"}},
	} {
		vec := []float32{0, 0, 0, 0}
		vec[i] = 1
		_, err := flat.Add(ctx, vec)
		require.NoError(t, err)

		id := meta.NextID()
		rec.ID = id
		meta.Put(id, rec)
		ids = append(ids, id)
	}

	return &Snapshot{Flat: flat, IDs: ids, Meta: meta}
}

func TestManager_LoadEmpty(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blobstore.NewMemoryStore())

	snap, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Flat.Size())
	assert.Equal(t, 4, snap.Flat.Dimension())
	assert.Equal(t, 0, snap.Meta.Len())
	assert.Empty(t, snap.IDs)
}

func TestManager_FlushLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	snap := buildSnapshot(t)
	require.NoError(t, m.Flush(ctx, snap))

	// Both artifacts plus the marker exist.
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"COMMIT", "index.bin", "records.json"}, names)

	got, err := m.Load(ctx, 4)
	require.NoError(t, err)

	assert.Equal(t, snap.Flat.Size(), got.Flat.Size())
	assert.Equal(t, snap.IDs, got.IDs)
	require.Equal(t, snap.Meta.Len(), got.Meta.Len())

	for _, id := range snap.IDs {
		want, err := snap.Meta.Get(id)
		require.NoError(t, err)
		gotRec, err := got.Meta.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, gotRec)
	}

	// Rankings survive the round trip.
	query := []float32{1, 0, 0, 0}
	wantHits, err := snap.Flat.Search(ctx, query, 2)
	require.NoError(t, err)
	gotHits, err := got.Flat.Search(ctx, query, 2)
	require.NoError(t, err)
	require.Len(t, gotHits, len(wantHits))
	for i := range wantHits {
		assert.Equal(t, wantHits[i].Pos, gotHits[i].Pos)
	}
}

func TestManager_FlushRewrites(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blobstore.NewMemoryStore())

	snap := buildSnapshot(t)
	require.NoError(t, m.Flush(ctx, snap))
	require.NoError(t, m.Flush(ctx, snap))

	got, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Flat.Size())
}

func TestManager_LoadCorruptIndexDegrades(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	var logBuf bytes.Buffer
	m := NewManager(store, func(o *ManagerOptions) {
		o.Logger = slog.New(slog.NewTextHandler(&logBuf, nil))
	})

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))

	// Corrupt the index artifact in place; the marker checksum no longer
	// matches, so load starts empty with a warning.
	data, err := store.Get(ctx, "index.bin")
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, store.Put(ctx, "index.bin", data))

	snap, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Flat.Size())
	assert.Contains(t, logBuf.String(), "starting empty")
}

func TestManager_LoadIncompletePairDegrades(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))
	require.NoError(t, store.Delete(ctx, "records.json"))

	snap, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Flat.Size())
}

func TestManager_LoadGarbageSidecarDegrades(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))
	require.NoError(t, store.Put(ctx, "records.json", []byte("not json")))

	snap, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Meta.Len())
}

func TestManager_LoadDimensionMismatchDegrades(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))

	snap, err := m.Load(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Flat.Size())
	assert.Equal(t, 8, snap.Flat.Dimension())
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))
	require.NoError(t, m.Reset(ctx))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	snap, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Flat.Size())
}

func TestManager_CustomNamesAndCompression(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store, func(o *ManagerOptions) {
		o.IndexName = "jobs/index.bin"
		o.MetaName = "jobs/records.json"
		o.MarkerName = "jobs/COMMIT"
		o.Compression = CompressionLZ4
	})

	require.NoError(t, m.Flush(ctx, buildSnapshot(t)))

	names, err := store.List(ctx, "jobs/")
	require.NoError(t, err)
	require.Len(t, names, 3)
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "jobs/"))
	}

	got, err := m.Load(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Flat.Size())
}
