package vectorindex

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

const kmeansIterations = 5

// Maintain recomputes the coarse centroids for one tenant partition.
// The clustering runs on a snapshot taken under the read lock so
// concurrent searches keep probing the previous centroid set; the new
// set is swapped in under the write lock at the end. Entries inserted
// mid-recompute are reassigned during the swap.
func (ix *Index) Maintain(ctx context.Context, tenant uuid.UUID) error {
	p := ix.partitionFor(tenant, false)
	if p == nil {
		return nil
	}

	p.mu.RLock()
	snapshot := make([][]float32, 0, len(p.entries))
	for _, e := range p.entries {
		snapshot = append(snapshot, e.vec)
	}
	p.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := centroidCount(len(snapshot), ix.cfg.MaxCentroids)
	centroids := kmeans(ctx, snapshot, c)
	if len(centroids) == 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.centroids = centroids
	p.members = make([][]uuid.UUID, len(centroids))
	for id, e := range p.entries {
		c := nearestCentroid(centroids, e.vec)
		p.members[c] = append(p.members[c], id)
		p.assign[id] = c
	}
	for id := range p.assign {
		if _, ok := p.entries[id]; !ok {
			delete(p.assign, id)
		}
	}
	return nil
}

// MaintainAll sweeps every known tenant partition.
func (ix *Index) MaintainAll(ctx context.Context) error {
	for _, tenant := range ix.Tenants() {
		if err := ix.Maintain(ctx, tenant); err != nil {
			return err
		}
	}
	return nil
}

// RunMaintenance refreshes centroids on a fixed interval until the
// context is cancelled. Intended as a background goroutine; failures are
// logged and the loop continues, since stale centroids only cost recall.
func (ix *Index) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ix.MaintainAll(ctx); err != nil && ctx.Err() == nil {
				ix.log.Warn("centroid maintenance sweep failed", "error", err)
			}
		}
	}
}

func centroidCount(n, max int) int {
	c := int(math.Sqrt(float64(n)))
	if c < 1 {
		c = 1
	}
	if c > max {
		c = max
	}
	return c
}

// kmeans runs a few assignment/update rounds seeded by striding through
// the snapshot. Vectors are unit-length so the inner product stands in
// for distance; updated means are renormalized to stay comparable.
func kmeans(ctx context.Context, vectors [][]float32, k int) [][]float32 {
	if k >= len(vectors) {
		out := make([][]float32, len(vectors))
		for i, v := range vectors {
			c := make([]float32, len(v))
			copy(c, v)
			out[i] = c
		}
		return out
	}

	dim := len(vectors[0])
	centroids := make([][]float32, k)
	stride := len(vectors) / k
	for i := 0; i < k; i++ {
		c := make([]float32, dim)
		copy(c, vectors[i*stride])
		centroids[i] = c
	}

	assignments := make([]int, len(vectors))
	for iter := 0; iter < kmeansIterations; iter++ {
		if ctx.Err() != nil {
			return nil
		}
		changed := false
		for i, v := range vectors {
			c := nearestCentroid(centroids, v)
			if assignments[i] != c {
				assignments[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			mean := make([]float32, dim)
			for d := range mean {
				mean[d] = float32(sums[c][d] / float64(counts[c]))
			}
			if normalized, ok := normalize(mean); ok {
				centroids[c] = normalized
			}
		}
	}
	return centroids
}
