package confidence

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type fakeRecipes struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Recipe
}

func (f *fakeRecipes) Create(_ context.Context, _ *gorm.DB, r *domain.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[r.ID] = r
	return nil
}

func (f *fakeRecipes) GetByID(_ context.Context, _ *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecipes) GetByIDAny(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecipes) GetByIDs(context.Context, *gorm.DB, uuid.UUID, []uuid.UUID) ([]*domain.Recipe, error) {
	return nil, nil
}
func (f *fakeRecipes) ListByProblem(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) ([]*domain.Recipe, error) {
	return nil, nil
}
func (f *fakeRecipes) ListByProblemIDs(context.Context, *gorm.DB, uuid.UUID, []uuid.UUID) ([]*domain.Recipe, error) {
	return nil, nil
}
func (f *fakeRecipes) ListChildren(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) ([]*domain.Recipe, error) {
	return nil, nil
}
func (f *fakeRecipes) ListAll(context.Context, *gorm.DB) ([]*domain.Recipe, error) {
	return nil, nil
}

func (f *fakeRecipes) UpdateConfidence(_ context.Context, _ *gorm.DB, id uuid.UUID, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Confidence = confidence
	return nil
}

func (f *fakeRecipes) Delete(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) error { return nil }

type fakeLogs struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.ExecutionLog
}

func (f *fakeLogs) Create(_ context.Context, _ *gorm.DB, e *domain.ExecutionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.byID[e.ID] = e
	return nil
}

func (f *fakeLogs) Exists(_ context.Context, _ *gorm.DB, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeLogs) CountByRecipe(_ context.Context, _ *gorm.DB, recipeID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.byID {
		if e.RecipeID == recipeID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogs) ListByRecipe(context.Context, *gorm.DB, uuid.UUID) ([]*domain.ExecutionLog, error) {
	return nil, nil
}

func newTestAggregator(t *testing.T) (*Aggregator, *fakeRecipes) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	recipes := &fakeRecipes{byID: map[uuid.UUID]*domain.Recipe{}}
	logs := &fakeLogs{byID: map[uuid.UUID]*domain.ExecutionLog{}}
	return NewAggregator(recipes, logs, log), recipes
}

func seedRecipe(recipes *fakeRecipes, orgID uuid.UUID) *domain.Recipe {
	r := &domain.Recipe{ID: uuid.New(), OrgID: orgID, Confidence: 0.5}
	recipes.byID[r.ID] = r
	return r
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSignalMapping(t *testing.T) {
	cases := []struct {
		outcome string
		rating  int
		want    float64
	}{
		{domain.OutcomeSuccess, 5, 1.0},
		{domain.OutcomeSuccess, 1, 0.8},
		{domain.OutcomePartial, 5, 0.75},
		{domain.OutcomePartial, 1, 0.35},
		{domain.OutcomeFailure, 5, 0.2},
		{domain.OutcomeFailure, 1, 0.0},
	}
	for _, c := range cases {
		got, err := Signal(c.outcome, c.rating)
		if err != nil {
			t.Fatalf("Signal(%s,%d): %v", c.outcome, c.rating, err)
		}
		if !almost(got, c.want) {
			t.Fatalf("Signal(%s,%d): want=%v got=%v", c.outcome, c.rating, c.want, got)
		}
	}

	if _, err := Signal(domain.OutcomeSuccess, 0); !enginerr.Is(err, enginerr.KindValidation) {
		t.Fatalf("rating 0: want=validation got=%v", err)
	}
	if _, err := Signal("exploded", 3); !enginerr.Is(err, enginerr.KindValidation) {
		t.Fatalf("bad outcome: want=validation got=%v", err)
	}
}

func TestRecordRunningMean(t *testing.T) {
	agg, recipes := newTestAggregator(t)
	ctx := context.Background()
	orgID := uuid.New()
	r := seedRecipe(recipes, orgID)

	// First log replaces the prior: (0.5*0 + 1.0)/1 = 1.0.
	got, err := agg.Record(ctx, nil, orgID, &domain.ExecutionLog{RecipeID: r.ID, Outcome: domain.OutcomeSuccess, Rating: 5})
	if err != nil {
		t.Fatalf("Record success: %v", err)
	}
	if !almost(got, 1.0) {
		t.Fatalf("after success: want=1.0 got=%v", got)
	}

	// Second log averages in: (1.0*1 + 0.0)/2 = 0.5.
	got, err = agg.Record(ctx, nil, orgID, &domain.ExecutionLog{RecipeID: r.ID, Outcome: domain.OutcomeFailure, Rating: 1})
	if err != nil {
		t.Fatalf("Record failure: %v", err)
	}
	if !almost(got, 0.5) {
		t.Fatalf("after failure: want=0.5 got=%v", got)
	}

	stored, samples, err := agg.ConfidenceOf(ctx, nil, orgID, r.ID)
	if err != nil {
		t.Fatalf("ConfidenceOf: %v", err)
	}
	if !almost(stored, 0.5) {
		t.Fatalf("stored: want=0.5 got=%v", stored)
	}
	if samples != 2 {
		t.Fatalf("samples: want=2 got=%d", samples)
	}
}

func TestRecordDeduplicatesByLogID(t *testing.T) {
	agg, recipes := newTestAggregator(t)
	ctx := context.Background()
	orgID := uuid.New()
	r := seedRecipe(recipes, orgID)

	logID := uuid.New()
	first, err := agg.Record(ctx, nil, orgID, &domain.ExecutionLog{ID: logID, RecipeID: r.ID, Outcome: domain.OutcomeSuccess, Rating: 5})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	replay, err := agg.Record(ctx, nil, orgID, &domain.ExecutionLog{ID: logID, RecipeID: r.ID, Outcome: domain.OutcomeFailure, Rating: 1})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !almost(replay, first) {
		t.Fatalf("replay moved score: want=%v got=%v", first, replay)
	}
}

func TestRecordUnknownRecipe(t *testing.T) {
	agg, _ := newTestAggregator(t)
	_, err := agg.Record(context.Background(), nil, uuid.New(), &domain.ExecutionLog{RecipeID: uuid.New(), Outcome: domain.OutcomeSuccess, Rating: 5})
	if !enginerr.Is(err, enginerr.KindNotFound) {
		t.Fatalf("unknown recipe: want=not_found got=%v", err)
	}
}

func TestRecordCrossTenantRecipe(t *testing.T) {
	agg, recipes := newTestAggregator(t)
	r := seedRecipe(recipes, uuid.New())

	_, err := agg.Record(context.Background(), nil, uuid.New(), &domain.ExecutionLog{RecipeID: r.ID, Outcome: domain.OutcomeSuccess, Rating: 5})
	if !enginerr.Is(err, enginerr.KindNotFound) {
		t.Fatalf("cross-tenant record: want=not_found got=%v", err)
	}
}

// gatedRecipes parks a GetByID caller until a second caller arrives or
// a short grace period passes. If two Records can read the stored score
// at the same time, both fold against the same stale prior and one
// update is lost.
type gatedRecipes struct {
	*fakeRecipes
	rendezvous chan struct{}
}

func (g *gatedRecipes) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error) {
	select {
	case g.rendezvous <- struct{}{}:
	case <-g.rendezvous:
	case <-time.After(50 * time.Millisecond):
	}
	return g.fakeRecipes.GetByID(ctx, tx, orgID, id)
}

func TestRecordSerializesStoredScoreReads(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	recipes := &fakeRecipes{byID: map[uuid.UUID]*domain.Recipe{}}
	gated := &gatedRecipes{fakeRecipes: recipes, rendezvous: make(chan struct{})}
	logs := &fakeLogs{byID: map[uuid.UUID]*domain.ExecutionLog{}}
	agg := NewAggregator(gated, logs, log)

	ctx := context.Background()
	orgID := uuid.New()
	r := seedRecipe(recipes, orgID)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := agg.Record(ctx, nil, orgID, &domain.ExecutionLog{RecipeID: r.ID, Outcome: domain.OutcomeSuccess, Rating: 5}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	// (0.5*0 + 1.0)/1 = 1.0, then (1.0*1 + 1.0)/2 = 1.0. A stale read
	// of the 0.5 prior in the second fold would leave 0.75.
	stored, samples, err := agg.ConfidenceOf(ctx, nil, orgID, r.ID)
	if err != nil {
		t.Fatalf("ConfidenceOf: %v", err)
	}
	if !almost(stored, 1.0) {
		t.Fatalf("stored: want=1.0 got=%v", stored)
	}
	if samples != 2 {
		t.Fatalf("samples: want=2 got=%d", samples)
	}
}

func TestConcurrentRecordsAllCounted(t *testing.T) {
	agg, recipes := newTestAggregator(t)
	ctx := context.Background()
	orgID := uuid.New()
	r := seedRecipe(recipes, orgID)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := agg.Record(ctx, nil, orgID, &domain.ExecutionLog{RecipeID: r.ID, Outcome: domain.OutcomeSuccess, Rating: 5}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	// All signals were 1.0, so the mean is exactly 1.0 only if every
	// log landed in sequence.
	stored, samples, err := agg.ConfidenceOf(ctx, nil, orgID, r.ID)
	if err != nil {
		t.Fatalf("ConfidenceOf: %v", err)
	}
	if !almost(stored, 1.0) {
		t.Fatalf("stored: want=1.0 got=%v", stored)
	}
	if samples != n {
		t.Fatalf("samples: want=%d got=%d", n, samples)
	}
}
