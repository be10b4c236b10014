package vectorindex

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

func testIndex(t *testing.T, dim int) *Index {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(log, Config{Dim: dim, MaxCentroids: 8, Probes: 2})
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	ix := testIndex(t, 4)
	tenant := uuid.New()

	err := ix.Insert(tenant, uuid.New(), []float32{1, 2, 3}, time.Now())
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if kind := enginerr.KindOf(err); kind != enginerr.KindValidation {
		t.Fatalf("kind: want=%s got=%s", enginerr.KindValidation, kind)
	}
	if ix.Count(tenant) != 0 {
		t.Fatalf("count after rejected insert: want=0 got=%d", ix.Count(tenant))
	}
}

func TestSearchNeverCrossesTenants(t *testing.T) {
	ix := testIndex(t, 4)
	tenantA, tenantB := uuid.New(), uuid.New()
	idA, idB := uuid.New(), uuid.New()

	v := []float32{1, 0, 0, 0}
	if err := ix.Insert(tenantA, idA, v, time.Now()); err != nil {
		t.Fatalf("insert A: %v", err)
	}
	if err := ix.Insert(tenantB, idB, v, time.Now()); err != nil {
		t.Fatalf("insert B: %v", err)
	}

	matches, err := ix.Search(context.Background(), tenantA, v, 10, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches: want=1 got=%d", len(matches))
	}
	if matches[0].ID != idA {
		t.Fatalf("match id: want=%s got=%s", idA, matches[0].ID)
	}
}

func TestSearchOrdersByScoreThenRecency(t *testing.T) {
	ix := testIndex(t, 4)
	tenant := uuid.New()
	near, far, newer, older := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	base := time.Now()
	if err := ix.Insert(tenant, far, []float32{0, 1, 0.2, 0}, base); err != nil {
		t.Fatalf("insert far: %v", err)
	}
	if err := ix.Insert(tenant, near, []float32{1, 0.1, 0, 0}, base); err != nil {
		t.Fatalf("insert near: %v", err)
	}
	// Identical vectors, different creation times.
	if err := ix.Insert(tenant, older, []float32{1, 0, 0, 0}, base.Add(-time.Hour)); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	if err := ix.Insert(tenant, newer, []float32{1, 0, 0, 0}, base.Add(time.Hour)); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	matches, err := ix.Search(context.Background(), tenant, []float32{1, 0, 0, 0}, 4, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("matches: want=4 got=%d", len(matches))
	}
	if matches[0].ID != newer || matches[1].ID != older {
		t.Fatalf("tie-break order: want=[%s %s] got=[%s %s]", newer, older, matches[0].ID, matches[1].ID)
	}
	if matches[2].ID != near || matches[3].ID != far {
		t.Fatalf("score order: want=[%s %s] got=[%s %s]", near, far, matches[2].ID, matches[3].ID)
	}
}

func TestRemoveDropsEntity(t *testing.T) {
	ix := testIndex(t, 4)
	tenant := uuid.New()
	id := uuid.New()

	if err := ix.Insert(tenant, id, []float32{1, 0, 0, 0}, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ix.Remove(tenant, id)

	matches, err := ix.Search(context.Background(), tenant, []float32{1, 0, 0, 0}, 5, 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches after remove: want=0 got=%d", len(matches))
	}
}

func TestSearchHonorsCancellation(t *testing.T) {
	ix := testIndex(t, 4)
	tenant := uuid.New()
	if err := ix.Insert(tenant, uuid.New(), []float32{1, 0, 0, 0}, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Search(ctx, tenant, []float32{1, 0, 0, 0}, 5, 50)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if kind := enginerr.KindOf(err); kind != enginerr.KindIndexUnavailable {
		t.Fatalf("kind: want=%s got=%s", enginerr.KindIndexUnavailable, kind)
	}
}

func TestMaintainKeepsRecallAndIsolation(t *testing.T) {
	ix := testIndex(t, 8)
	tenant, other := uuid.New(), uuid.New()
	rng := rand.New(rand.NewSource(1))

	want := uuid.New()
	target := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	if err := ix.Insert(tenant, want, target, time.Now()); err != nil {
		t.Fatalf("insert target: %v", err)
	}
	for i := 0; i < 200; i++ {
		v := make([]float32, 8)
		for d := range v {
			v[d] = rng.Float32() - 0.5
		}
		v[0] = -1 // keep noise away from the target direction
		if err := ix.Insert(tenant, uuid.New(), v, time.Now()); err != nil {
			t.Fatalf("insert noise: %v", err)
		}
		if err := ix.Insert(other, uuid.New(), v, time.Now()); err != nil {
			t.Fatalf("insert other tenant: %v", err)
		}
	}

	if err := ix.Maintain(context.Background(), tenant); err != nil {
		t.Fatalf("maintain: %v", err)
	}

	matches, err := ix.Search(context.Background(), tenant, target, 1, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != want {
		t.Fatalf("recall after maintain: want=%s got=%v", want, matches)
	}
	if ix.Count(other) != 200 {
		t.Fatalf("other tenant count: want=200 got=%d", ix.Count(other))
	}
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	ix := testIndex(t, 4)
	tenant := uuid.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 100; i++ {
				v := []float32{rng.Float32() + 0.01, rng.Float32(), rng.Float32(), rng.Float32()}
				if err := ix.Insert(tenant, uuid.New(), v, time.Now()); err != nil {
					t.Errorf("insert: %v", err)
					return
				}
				if _, err := ix.Search(ctx, tenant, v, 3, 20); err != nil {
					t.Errorf("search: %v", err)
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()

	if got := ix.Count(tenant); got != 400 {
		t.Fatalf("count: want=400 got=%d", got)
	}
}
