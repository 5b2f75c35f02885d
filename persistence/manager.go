package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirewire/matchengine/blobstore"
	"github.com/hirewire/matchengine/codec"
	"github.com/hirewire/matchengine/internal/hash"
	"github.com/hirewire/matchengine/metadata"
	"github.com/hirewire/matchengine/model"
	"github.com/hirewire/matchengine/vectorstore"
)

// Snapshot is the full engine state the Manager persists and restores.
type Snapshot struct {
	// Flat holds the vector rows.
	Flat *vectorstore.Flat

	// IDs maps row position to record id; len(IDs) == Flat.Size().
	IDs []model.ID

	// Meta holds the records for every id in IDs.
	Meta *metadata.Store
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// IndexName is the blob name of the binary index artifact.
	IndexName string

	// MetaName is the blob name of the record sidecar.
	MetaName string

	// MarkerName is the blob name of the commit marker written after a
	// successful flush. Stores may give this name special treatment
	// (see blobstore/s3.DDBCommitStore).
	MarkerName string

	// Codec encodes the sidecar.
	Codec codec.Codec

	// Compression applies to the index payload.
	Compression Compression

	// Logger receives load/flush diagnostics.
	Logger *slog.Logger
}

// DefaultManagerOptions are the recommended manager options.
var DefaultManagerOptions = ManagerOptions{
	IndexName:   "index.bin",
	MetaName:    "records.json",
	MarkerName:  "COMMIT",
	Codec:       codec.Default,
	Compression: CompressionZstd,
}

// sidecar is the persisted shape of the record store.
type sidecar struct {
	Codec   string          `json:"codec"`
	Records []*model.Record `json:"records"`
}

// marker describes the artifact pair written by the last flush.
type marker struct {
	IndexName     string `json:"index"`
	MetaName      string `json:"meta"`
	IndexChecksum uint32 `json:"index_checksum"`
	Count         int    `json:"count"`
}

// Manager reads and writes the engine's artifact pair through a blob store.
//
// Load degrades rather than fails: absent or corrupt artifacts produce a
// fresh empty snapshot with a warning, and only backend errors surface. Flush
// always rewrites both artifacts in full, then the commit marker.
type Manager struct {
	store blobstore.Store
	opts  ManagerOptions
}

// NewManager creates a Manager over the given blob store.
func NewManager(store blobstore.Store, optFns ...func(o *ManagerOptions)) *Manager {
	opts := DefaultManagerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{store: store, opts: opts}
}

// Load restores the last flushed snapshot, or an empty one of the given
// dimension when nothing (valid) is persisted.
func (m *Manager) Load(ctx context.Context, dim int) (*Snapshot, error) {
	empty := func() (*Snapshot, error) {
		flat, err := vectorstore.New(dim)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Flat: flat, IDs: []model.ID{}, Meta: metadata.New()}, nil
	}

	indexData, indexErr := m.store.Get(ctx, m.opts.IndexName)
	metaData, metaErr := m.store.Get(ctx, m.opts.MetaName)

	switch {
	case errors.Is(indexErr, blobstore.ErrNotFound) && errors.Is(metaErr, blobstore.ErrNotFound):
		return empty()
	case indexErr != nil && !errors.Is(indexErr, blobstore.ErrNotFound):
		return nil, fmt.Errorf("persistence: load index: %w", indexErr)
	case metaErr != nil && !errors.Is(metaErr, blobstore.ErrNotFound):
		return nil, fmt.Errorf("persistence: load sidecar: %w", metaErr)
	case indexErr != nil || metaErr != nil:
		m.opts.Logger.WarnContext(ctx, "artifact pair incomplete, starting empty",
			"index", m.opts.IndexName,
			"meta", m.opts.MetaName,
		)
		return empty()
	}

	if err := m.checkMarker(ctx, indexData); err != nil {
		m.opts.Logger.WarnContext(ctx, "commit marker mismatch, starting empty",
			"error", err,
		)
		return empty()
	}

	flat, ids, err := DecodeIndex(ctx, indexData)
	if err != nil {
		m.opts.Logger.WarnContext(ctx, "index artifact unreadable, starting empty",
			"index", m.opts.IndexName,
			"error", err,
		)
		return empty()
	}
	if flat.Dimension() != dim {
		m.opts.Logger.WarnContext(ctx, "index dimension mismatch, starting empty",
			"expected", dim,
			"actual", flat.Dimension(),
		)
		return empty()
	}

	var side sidecar
	if err := m.opts.Codec.Unmarshal(metaData, &side); err != nil {
		m.opts.Logger.WarnContext(ctx, "sidecar unreadable, starting empty",
			"meta", m.opts.MetaName,
			"error", err,
		)
		return empty()
	}
	if side.Codec != "" && side.Codec != m.opts.Codec.Name() {
		// json and go-json are interchangeable on the wire; anything else is
		// a foreign sidecar.
		if _, known := codec.ByName(side.Codec); !known {
			m.opts.Logger.WarnContext(ctx, "sidecar written by unknown codec, starting empty",
				"codec", side.Codec,
			)
			return empty()
		}
	}

	meta := metadata.New()
	meta.Restore(side.Records)

	for _, id := range ids {
		if _, err := meta.Get(id); err != nil {
			m.opts.Logger.WarnContext(ctx, "artifact pair inconsistent, starting empty",
				"missing_id", int64(id),
			)
			return empty()
		}
	}
	if len(ids) != meta.Len() {
		m.opts.Logger.WarnContext(ctx, "artifact pair inconsistent, starting empty",
			"vectors", len(ids),
			"records", meta.Len(),
		)
		return empty()
	}

	m.opts.Logger.InfoContext(ctx, "snapshot loaded",
		"count", flat.Size(),
		"dimension", flat.Dimension(),
	)
	return &Snapshot{Flat: flat, IDs: ids, Meta: meta}, nil
}

// Flush rewrites both artifacts in full, then the commit marker. It is
// synchronous: when it returns nil, the pair is durable in the store.
func (m *Manager) Flush(ctx context.Context, snap *Snapshot) error {
	indexData, err := EncodeIndex(snap.Flat, snap.IDs, m.opts.Compression)
	if err != nil {
		return fmt.Errorf("persistence: encode index: %w", err)
	}

	side := sidecar{
		Codec:   m.opts.Codec.Name(),
		Records: snap.Meta.Snapshot(),
	}
	metaData, err := m.opts.Codec.Marshal(side)
	if err != nil {
		return fmt.Errorf("persistence: encode sidecar: %w", err)
	}

	if err := m.store.Put(ctx, m.opts.IndexName, indexData); err != nil {
		return fmt.Errorf("persistence: write index: %w", err)
	}
	if err := m.store.Put(ctx, m.opts.MetaName, metaData); err != nil {
		return fmt.Errorf("persistence: write sidecar: %w", err)
	}

	mk := marker{
		IndexName:     m.opts.IndexName,
		MetaName:      m.opts.MetaName,
		IndexChecksum: hash.CRC32C(indexData),
		Count:         len(snap.IDs),
	}
	markerData, err := m.opts.Codec.Marshal(mk)
	if err != nil {
		return fmt.Errorf("persistence: encode marker: %w", err)
	}
	if err := m.store.Put(ctx, m.opts.MarkerName, markerData); err != nil {
		return fmt.Errorf("persistence: write marker: %w", err)
	}

	m.opts.Logger.DebugContext(ctx, "snapshot flushed",
		"count", len(snap.IDs),
		"index_bytes", len(indexData),
		"sidecar_bytes", len(metaData),
	)
	return nil
}

// Reset deletes all artifacts.
func (m *Manager) Reset(ctx context.Context) error {
	for _, name := range []string{m.opts.IndexName, m.opts.MetaName, m.opts.MarkerName} {
		if err := m.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("persistence: delete %s: %w", name, err)
		}
	}
	return nil
}

// checkMarker verifies the index blob against the commit marker when one
// exists. A missing marker is accepted: plain stores had none before the
// first flush with markers enabled.
func (m *Manager) checkMarker(ctx context.Context, indexData []byte) error {
	data, err := m.store.Get(ctx, m.opts.MarkerName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var mk marker
	if err := m.opts.Codec.Unmarshal(data, &mk); err != nil {
		return fmt.Errorf("decode marker: %w", err)
	}
	if got := hash.CRC32C(indexData); got != mk.IndexChecksum {
		return fmt.Errorf("index checksum 0x%08x does not match committed 0x%08x", got, mk.IndexChecksum)
	}
	return nil
}
