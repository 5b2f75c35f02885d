// Package matchengine provides a semantic matching engine for job and
// candidate retrieval.
//
// An Engine owns one mutable flat vector index plus the metadata around it:
// records keyed by a caller-supplied business key, an embedding cache, and an
// optional persistence layer that rewrites the index artifact pair after each
// mutation. Search combines exact cosine similarity with skill-overlap,
// keyword-overlap and recency signals into a single ranked score.
//
// Quick start:
//
//	enc := myEmbeddingClient() // encoder.Encoder producing 384-dim vectors
//	eng, err := matchengine.New(384, enc,
//	    matchengine.WithPersistence(persistence.NewManager(store)),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	if err := eng.Load(ctx); err != nil { // restore the last flushed state
//	    panic(err)
//	}
//
//	_ = eng.Index(ctx, matchengine.IndexRequest{
//	    Key:    "job-42",
//	    Type:   model.RecordTypeJob,
//	    Text:   "backend engineer building go services",
//	    Skills: []string{"go", "postgres"},
//	})
//
//	matches, err := eng.Search(ctx, matchengine.SearchRequest{
//	    Text:   resumeText,
//	    Skills: []string{"go", "docker"},
//	    Type:   model.RecordTypeJob,
//	    TopK:   10,
//	})
//
// The index is exact: every vector is scored on every search. Deleting a
// record rebuilds the whole index by re-encoding the survivors, which the
// embedding cache makes cheap in practice.
package matchengine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hirewire/matchengine/embedcache"
	"github.com/hirewire/matchengine/encoder"
	"github.com/hirewire/matchengine/metadata"
	"github.com/hirewire/matchengine/model"
	"github.com/hirewire/matchengine/persistence"
	"github.com/hirewire/matchengine/scorer"
	"github.com/hirewire/matchengine/vectorstore"
)

// IndexRequest describes a record to index. Key is the caller's business id
// (e.g. a job id); indexing an existing key replaces the previous record.
type IndexRequest struct {
	Key        string
	Type       model.RecordType
	Text       string
	Skills     []string
	CreatedAt  string
	Attributes model.Attributes
}

// SearchRequest describes a ranked retrieval. The engine scores every indexed
// vector and returns the TopK best after filtering.
type SearchRequest struct {
	// Text is the query text (e.g. a resume).
	Text string

	// Skills is the query's skill set, matched against record skills.
	Skills []string

	// TopK is the number of results to return. Must be positive.
	TopK int

	// Type restricts results to one record type. Empty means no filter.
	Type model.RecordType

	// FilterKeys restricts results to the given business keys. Nil means no
	// filter.
	FilterKeys []string
}

// Engine is a mutable semantic index over records of one entity kind.
//
// All methods are safe for concurrent use. Reads take the read lock so a
// search never observes a half-rebuilt index/metadata pair.
type Engine struct {
	mu sync.RWMutex

	dim    int
	enc    encoder.Encoder
	cache  *embedcache.Cache
	scorer *scorer.Scorer

	flat  *vectorstore.Flat
	meta  *metadata.Store
	ids   []model.ID          // row position -> record id
	keys  map[string]model.ID // business key -> record id
	types *metadata.TypeFilter

	manager *persistence.Manager
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// New creates an engine for vectors of the given dimension, encoded by enc.
func New(dim int, enc encoder.Encoder, optFns ...Option) (*Engine, error) {
	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		weights:          scorer.DefaultWeights,
		now:              time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	flat, err := vectorstore.New(dim)
	if err != nil {
		return nil, err
	}
	if encDim := enc.Dimension(); encDim != 0 && encDim != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: encDim}
	}

	return &Engine{
		dim: dim,
		enc: enc,
		cache: embedcache.New(func(o *embedcache.Options) {
			o.MaxEntries = opts.cacheSize
		}),
		scorer: scorer.New(func(o *scorer.Options) {
			o.Weights = opts.weights
			o.Now = opts.now
		}),
		flat:    flat,
		meta:    metadata.New(),
		ids:     []model.ID{},
		keys:    make(map[string]model.ID),
		types:   metadata.NewTypeFilter(),
		manager: opts.manager,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}, nil
}

// Load restores the last flushed state. Call it once at startup, before any
// other operation. Without a persistence manager it is a no-op.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.manager == nil {
		return nil
	}

	snap, err := e.manager.Load(ctx, e.dim)
	if err != nil {
		e.logger.LogLoad(ctx, 0, err)
		return err
	}

	keys := make(map[string]model.ID, snap.Meta.Len())
	for _, entry := range snap.Meta.All() {
		keys[entry.Record.Key] = entry.ID
	}

	e.flat = snap.Flat
	e.meta = snap.Meta
	e.ids = snap.IDs
	e.keys = keys
	e.types.Rebuild(e.ids, e.meta)

	e.logger.LogLoad(ctx, e.flat.Size(), nil)
	return nil
}

// Index stores (or replaces) the record under its business key, encodes its
// primary text and adds it to the vector index. The new state is flushed
// before Index returns.
func (e *Engine) Index(ctx context.Context, req IndexRequest) error {
	start := time.Now()
	err := e.index(ctx, req)
	e.metrics.RecordIndex(time.Since(start), err)
	e.logger.LogIndex(ctx, req.Key, e.Size(), err)
	return err
}

func (e *Engine) index(ctx context.Context, req IndexRequest) error {
	if req.Key == "" {
		return ErrEmptyKey
	}
	recType := req.Type
	if recType == "" {
		recType = model.RecordTypeGeneric
	}
	if !recType.Valid() {
		return &ErrInvalidRecordType{Type: string(recType)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	// Encode before touching any state so failures leave the engine intact.
	vec, err := e.encode(ctx, primaryText(req.Text, req.Skills))
	if err != nil {
		return err
	}

	// Upsert by business key: drop the previous record, then add.
	if prevID, ok := e.keys[req.Key]; ok {
		if err := e.rebuildLocked(ctx, prevID); err != nil {
			return err
		}
		delete(e.keys, req.Key)
	}

	id := e.meta.NextID()
	rec := &model.Record{
		ID:         id,
		Key:        req.Key,
		Type:       recType,
		Text:       req.Text,
		Skills:     append([]string(nil), req.Skills...),
		CreatedAt:  req.CreatedAt,
		Attributes: req.Attributes.Clone(),
	}

	if _, err := e.flat.Add(ctx, vec); err != nil {
		return translateError(err)
	}
	e.meta.Put(id, rec)
	e.ids = append(e.ids, id)
	e.keys[req.Key] = id
	e.types.Rebuild(e.ids, e.meta)

	return e.flushLocked(ctx)
}

// Delete removes the record with the given business key and rebuilds the
// vector index from the survivors. Unknown keys are a no-op.
func (e *Engine) Delete(ctx context.Context, key string) error {
	start := time.Now()
	found, err := e.delete(ctx, key)
	e.metrics.RecordDelete(time.Since(start), err)
	e.logger.LogDelete(ctx, key, found, err)
	return err
}

func (e *Engine) delete(ctx context.Context, key string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, ErrClosed
	}

	id, ok := e.keys[key]
	if !ok {
		return false, nil
	}

	if err := e.rebuildLocked(ctx, id); err != nil {
		return true, err
	}
	delete(e.keys, key)
	return true, e.flushLocked(ctx)
}

// Rebuild re-encodes every record in stored order and reconstructs the vector
// index from scratch, then flushes.
func (e *Engine) Rebuild(ctx context.Context) error {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	err := e.rebuildLocked(ctx)
	if err == nil {
		err = e.flushLocked(ctx)
	}
	e.metrics.RecordRebuild(e.meta.Len(), time.Since(start), err)
	e.logger.LogRebuild(ctx, e.meta.Len(), err)
	return err
}

// rebuildLocked reconstructs the flat index by re-encoding every surviving
// record in insertion order, leaving out the excluded ids. The embedding
// cache absorbs the re-encoding cost for unchanged text. The new state is
// swapped in only after every survivor has encoded, so a failure leaves the
// previous index/metadata pair fully intact. Caller holds the write lock.
func (e *Engine) rebuildLocked(ctx context.Context, exclude ...model.ID) error {
	flat, err := vectorstore.New(e.dim)
	if err != nil {
		return err
	}

	skip := make(map[model.ID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	entries := e.meta.All()
	ids := make([]model.ID, 0, len(entries))
	for _, entry := range entries {
		if _, ok := skip[entry.ID]; ok {
			continue
		}
		vec, err := e.encode(ctx, primaryText(entry.Record.Text, entry.Record.Skills))
		if err != nil {
			return err
		}
		if _, err := flat.Add(ctx, vec); err != nil {
			return translateError(err)
		}
		ids = append(ids, entry.ID)
	}

	for _, id := range exclude {
		e.meta.Remove(id)
	}
	e.flat = flat
	e.ids = ids
	e.types.Rebuild(e.ids, e.meta)
	return nil
}

// Search scores every indexed record against the query and returns the TopK
// best matches, ranked by the hybrid final score.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]model.MatchScore, error) {
	start := time.Now()
	matches, err := e.search(ctx, req)
	e.metrics.RecordSearch(req.TopK, time.Since(start), err)
	e.logger.LogSearch(ctx, req.TopK, len(matches), err)
	return matches, err
}

func (e *Engine) search(ctx context.Context, req SearchRequest) ([]model.MatchScore, error) {
	if req.TopK <= 0 {
		return nil, ErrInvalidTopK
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, &ErrInvalidRecordType{Type: string(req.Type)}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, ErrClosed
	}

	width := e.flat.Size()
	if width == 0 {
		return nil, ErrNoCandidates
	}

	qvec, err := e.encode(ctx, primaryText(req.Text, req.Skills))
	if err != nil {
		return nil, err
	}

	// Exact search: score the full index, filter, then cut to TopK.
	candidates, err := e.flat.Search(ctx, qvec, width)
	if err != nil {
		return nil, translateError(err)
	}

	var allowed map[string]struct{}
	if req.FilterKeys != nil {
		allowed = make(map[string]struct{}, len(req.FilterKeys))
		for _, k := range req.FilterKeys {
			allowed[k] = struct{}{}
		}
	}

	query := scorer.QueryProfile{Text: req.Text, Skills: req.Skills}
	matches := make([]model.MatchScore, 0, len(candidates))
	for _, c := range candidates {
		if req.Type != "" && !e.types.Contains(req.Type, c.Pos) {
			continue
		}
		rec, err := e.meta.Get(e.ids[c.Pos])
		if err != nil {
			return nil, err
		}
		if allowed != nil {
			if _, ok := allowed[rec.Key]; !ok {
				continue
			}
		}
		matches = append(matches, e.scorer.Score(query, rec, float64(c.Score)))
	}

	// Rank by final score; ties break on key for deterministic output.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].FinalScore != matches[j].FinalScore {
			return matches[i].FinalScore > matches[j].FinalScore
		}
		return matches[i].Key < matches[j].Key
	})

	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

// Clear removes every record and vector but keeps persisted artifacts
// untouched until the next flush.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.clearLocked()
	return e.flushLocked(ctx)
}

// Reset clears the engine and deletes all persisted artifacts.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.clearLocked()
	e.cache.Reset()
	if e.manager == nil {
		return nil
	}
	return e.manager.Reset(ctx)
}

func (e *Engine) clearLocked() {
	e.flat.Clear()
	e.meta.Clear()
	e.ids = e.ids[:0]
	e.keys = make(map[string]model.ID)
	e.types.Clear()
}

// Close marks the engine closed. Further operations return ErrClosed. Close
// does not flush; mutations are flushed synchronously as they happen.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Size returns the number of indexed records.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flat.Size()
}

// Dimension returns the engine's vector dimensionality.
func (e *Engine) Dimension() int { return e.dim }

// Has reports whether a record with the given business key is indexed.
func (e *Engine) Has(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.keys[key]
	return ok
}

// Get returns a copy of the indexed record for the given business key.
func (e *Engine) Get(key string) (*model.Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id, ok := e.keys[key]
	if !ok {
		return nil, false
	}
	rec, err := e.meta.Get(id)
	if err != nil {
		return nil, false
	}
	return rec.Clone(), true
}

// encode returns the embedding for text, going through the cache.
func (e *Engine) encode(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.cache.GetOrCompute(ctx, text, func(ctx context.Context, text string) ([]float32, error) {
		out, err := e.enc.Encode(ctx, text)
		if err != nil {
			return nil, &encoder.EncodeError{Err: err}
		}
		return out, nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	if len(vec) != e.dim {
		return nil, &ErrDimensionMismatch{Expected: e.dim, Actual: len(vec)}
	}
	return vec, nil
}

// flushLocked rewrites the artifact pair. Failures surface to the caller but
// do not roll back in-memory state. Caller holds the write lock.
func (e *Engine) flushLocked(ctx context.Context) error {
	if e.manager == nil {
		return nil
	}

	start := time.Now()
	err := e.manager.Flush(ctx, &persistence.Snapshot{
		Flat: e.flat,
		IDs:  e.ids,
		Meta: e.meta,
	})
	e.metrics.RecordFlush(time.Since(start), err)
	e.logger.LogFlush(ctx, len(e.ids), err)
	return err
}

// primaryText is the string that gets embedded: the record text plus its
// skill list, so skills influence semantic similarity too.
func primaryText(text string, skills []string) string {
	if len(skills) == 0 {
		return text
	}
	return strings.TrimSpace(text + " " + strings.Join(skills, " "))
}
