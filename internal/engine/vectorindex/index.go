// Package vectorindex implements an approximate nearest-neighbor index
// over fixed-dimension embeddings, partitioned by tenant. Vectors inside
// a partition are bucketed under coarse centroids (inverted-file style);
// a query probes the nearest few centroids and linearly scores their
// members. Centroid placement is refreshed by background maintenance and
// is never required for correctness: a stale centroid set degrades
// recall, never isolation.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type Config struct {
	// Dim is the fixed embedding dimension. Inserts with any other
	// length are rejected before mutation.
	Dim int
	// MaxCentroids caps the coarse centroid count per partition.
	MaxCentroids int
	// Probes is the number of nearest centroids scanned per query.
	Probes int
}

const (
	DefaultDim          = 768
	DefaultMaxCentroids = 256
	DefaultProbes       = 3
)

func (c Config) withDefaults() Config {
	if c.Dim <= 0 {
		c.Dim = DefaultDim
	}
	if c.MaxCentroids <= 0 {
		c.MaxCentroids = DefaultMaxCentroids
	}
	if c.Probes <= 0 {
		c.Probes = DefaultProbes
	}
	return c
}

// Match pairs an entity id with its similarity score (higher is better).
type Match struct {
	ID    uuid.UUID
	Score float64
}

type entry struct {
	vec       []float32
	createdAt time.Time
}

type partition struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]entry
	centroids [][]float32
	members   [][]uuid.UUID
	assign    map[uuid.UUID]int
}

// Index is safe for concurrent use. Writes to one tenant partition are
// serialized by that partition's lock; other tenants proceed in parallel.
type Index struct {
	log *logger.Logger
	cfg Config

	mu    sync.RWMutex
	parts map[uuid.UUID]*partition
}

func New(log *logger.Logger, cfg Config) *Index {
	return &Index{
		log:   log.With("component", "vectorindex"),
		cfg:   cfg.withDefaults(),
		parts: make(map[uuid.UUID]*partition),
	}
}

func (ix *Index) Dim() int { return ix.cfg.Dim }

func (ix *Index) partitionFor(tenant uuid.UUID, create bool) *partition {
	ix.mu.RLock()
	p := ix.parts[tenant]
	ix.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if p = ix.parts[tenant]; p == nil {
		p = &partition{
			entries: make(map[uuid.UUID]entry),
			assign:  make(map[uuid.UUID]int),
		}
		ix.parts[tenant] = p
	}
	return p
}

// Insert stores a normalized copy of vec under the tenant partition.
// Amortized O(1): the vector joins the nearest current centroid bucket.
func (ix *Index) Insert(tenant, entityID uuid.UUID, vec []float32, createdAt time.Time) error {
	const op = "vectorindex.Insert"
	if tenant == uuid.Nil {
		return enginerr.Newf(enginerr.KindValidation, op, "tenant id required")
	}
	if len(vec) != ix.cfg.Dim {
		return enginerr.Newf(enginerr.KindValidation, op,
			"embedding dimension mismatch: want=%d got=%d", ix.cfg.Dim, len(vec)).
			WithTenant(tenant).WithEntity(entityID)
	}
	normalized, ok := normalize(vec)
	if !ok {
		return enginerr.Newf(enginerr.KindValidation, op, "zero-magnitude embedding").
			WithTenant(tenant).WithEntity(entityID)
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	p := ix.partitionFor(tenant, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, exists := p.assign[entityID]; exists {
		p.members[old] = removeID(p.members[old], entityID)
	}

	if len(p.centroids) == 0 {
		centroid := make([]float32, len(normalized))
		copy(centroid, normalized)
		p.centroids = append(p.centroids, centroid)
		p.members = append(p.members, nil)
	}
	c := nearestCentroid(p.centroids, normalized)
	p.entries[entityID] = entry{vec: normalized, createdAt: createdAt}
	p.members[c] = append(p.members[c], entityID)
	p.assign[entityID] = c
	return nil
}

// Remove drops the entity from the tenant partition. Removing an unknown
// id is a no-op.
func (ix *Index) Remove(tenant, entityID uuid.UUID) {
	p := ix.partitionFor(tenant, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, exists := p.assign[entityID]; exists {
		p.members[c] = removeID(p.members[c], entityID)
		delete(p.assign, entityID)
	}
	delete(p.entries, entityID)
}

// Search returns up to k matches, closest first, restricted to the given
// tenant. It scans the nearest probe centroids, widening until at least
// maxCandidates members were scored or the partition is exhausted. Ties
// break toward the most recently created entity. The scan observes a
// consistent snapshot of the partition taken when it acquires the read
// lock; inserts racing with a search may be missed.
func (ix *Index) Search(ctx context.Context, tenant uuid.UUID, q []float32, k, maxCandidates int) ([]Match, error) {
	const op = "vectorindex.Search"
	if len(q) != ix.cfg.Dim {
		return nil, enginerr.Newf(enginerr.KindValidation, op,
			"query dimension mismatch: want=%d got=%d", ix.cfg.Dim, len(q)).WithTenant(tenant)
	}
	if k <= 0 {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "k must be positive").WithTenant(tenant)
	}
	if maxCandidates < k {
		maxCandidates = k
	}
	normalizedQ, ok := normalize(q)
	if !ok {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "zero-magnitude query").WithTenant(tenant)
	}

	p := ix.partitionFor(tenant, false)
	if p == nil {
		return nil, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.entries) == 0 {
		return nil, nil
	}

	order := centroidsByDistance(p.centroids, normalizedQ)
	probes := ix.cfg.Probes
	if probes > len(order) {
		probes = len(order)
	}

	type scored struct {
		Match
		createdAt time.Time
	}
	var candidates []scored
	scanned := 0
	for i := 0; i < len(order); i++ {
		if i >= probes && scanned >= maxCandidates {
			break
		}
		for _, id := range p.members[order[i]] {
			if scanned%256 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, enginerr.New(enginerr.KindIndexUnavailable, op, err).WithTenant(tenant)
				}
			}
			e := p.entries[id]
			candidates = append(candidates, scored{
				Match:     Match{ID: id, Score: dot(normalizedQ, e.vec)},
				createdAt: e.createdAt,
			})
			scanned++
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.After(candidates[j].createdAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Match)
	}
	return out, nil
}

// Count returns the number of vectors held for the tenant.
func (ix *Index) Count(tenant uuid.UUID) int {
	p := ix.partitionFor(tenant, false)
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Tenants lists partitions currently held, for maintenance sweeps.
func (ix *Index) Tenants() []uuid.UUID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(ix.parts))
	for t := range ix.parts {
		out = append(out, t)
	}
	return out
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i := range ids {
		if ids[i] == id {
			ids[i] = ids[len(ids)-1]
			return ids[:len(ids)-1]
		}
	}
	return ids
}

func nearestCentroid(centroids [][]float32, v []float32) int {
	best, bestScore := 0, math.Inf(-1)
	for i, c := range centroids {
		if s := dot(c, v); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

func centroidsByDistance(centroids [][]float32, q []float32) []int {
	order := make([]int, len(centroids))
	scores := make([]float64, len(centroids))
	for i, c := range centroids {
		order[i] = i
		scores[i] = dot(c, q)
	}
	sort.Slice(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	return order
}

func normalize(v []float32) ([]float32, bool) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, false
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
