package retrieval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/attrindex"
	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/engine/lineage"
	"github.com/craftwise/craftwise-backend/internal/engine/vectorindex"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

const testDim = 4

type memRecipes struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Recipe
	created int
}

func (m *memRecipes) Create(_ context.Context, _ *gorm.DB, r *domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		m.created++
		r.CreatedAt = time.Unix(int64(m.created), 0)
	}
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRecipes) GetByIDAny(_ context.Context, _ *gorm.DB, id uuid.UUID) (*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRecipes) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error) {
	r, err := m.GetByIDAny(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (m *memRecipes) GetByIDs(_ context.Context, _ *gorm.DB, orgID uuid.UUID, ids []uuid.UUID) ([]*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Recipe
	for _, id := range ids {
		if r, ok := m.byID[id]; ok && r.OrgID == orgID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecipes) ListByProblem(_ context.Context, _ *gorm.DB, orgID, problemID uuid.UUID) ([]*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Recipe
	for _, r := range m.byID {
		if r.OrgID == orgID && r.ProblemID == problemID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecipes) ListByProblemIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, problemIDs []uuid.UUID) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	for _, pid := range problemIDs {
		rs, _ := m.ListByProblem(ctx, tx, orgID, pid)
		out = append(out, rs...)
	}
	return out, nil
}

func (m *memRecipes) ListChildren(_ context.Context, _ *gorm.DB, orgID, parentID uuid.UUID) ([]*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Recipe
	for _, r := range m.byID {
		if r.OrgID == orgID && r.ParentRecipeID != nil && *r.ParentRecipeID == parentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecipes) ListAll(context.Context, *gorm.DB) ([]*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Recipe
	for _, r := range m.byID {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRecipes) UpdateConfidence(_ context.Context, _ *gorm.DB, id uuid.UUID, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		r.Confidence = confidence
	}
	return nil
}

func (m *memRecipes) Delete(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) error { return nil }

type fixture struct {
	orch    *Orchestrator
	recipes *memRecipes
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	recipes := &memRecipes{byID: map[uuid.UUID]*domain.Recipe{}}
	problemIdx := vectorindex.New(log, vectorindex.Config{Dim: testDim})
	recipeIdx := vectorindex.New(log, vectorindex.Config{Dim: testDim})
	attrs := attrindex.New(log)
	forest := lineage.NewStore(recipes, log)
	return &fixture{
		orch:    NewOrchestrator(recipes, problemIdx, recipeIdx, attrs, forest, cfg, log),
		recipes: recipes,
	}
}

func vecJSON(t *testing.T, v []float32) []byte {
	t.Helper()
	raw, err := domain.EncodeVector(v)
	if err != nil {
		t.Fatalf("EncodeVector: %v", err)
	}
	return raw
}

func stepsJSON(t *testing.T, steps ...string) []byte {
	t.Helper()
	raw, err := domain.EncodeStringList(steps)
	if err != nil {
		t.Fatalf("EncodeStringList: %v", err)
	}
	return raw
}

func attrJSON(t *testing.T, doc map[string][]string) []byte {
	t.Helper()
	raw, err := domain.EncodeAttrDoc(doc)
	if err != nil {
		t.Fatalf("EncodeAttrDoc: %v", err)
	}
	return raw
}

// submit persists and indexes a recipe through the orchestrator.
func (f *fixture) submit(t *testing.T, problem *domain.Problem, r *domain.Recipe) *domain.Recipe {
	t.Helper()
	out, err := f.orch.SubmitRecipe(context.Background(), nil, problem, r, nil)
	if err != nil {
		t.Fatalf("SubmitRecipe: %v", err)
	}
	return out
}

func TestFindCandidatesTenantIsolation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()
	v := []float32{1, 0, 0, 0}

	problemA := &domain.Problem{
		ID: uuid.New(), OrgID: orgA,
		Constraints: attrJSON(t, map[string][]string{"material": {"wood"}}),
		Embedding:   vecJSON(t, v),
	}
	problemB := &domain.Problem{ID: uuid.New(), OrgID: orgB, Embedding: vecJSON(t, v)}

	r1 := f.submit(t, problemA, &domain.Recipe{
		Title: "sand and glue", Steps: stepsJSON(t, "sand", "glue"),
		RequiredMaterials: attrJSON(t, map[string][]string{"material": {"wood"}}),
		Confidence:        0.8, Embedding: vecJSON(t, v),
	})
	f.submit(t, problemB, &domain.Recipe{
		Title: "sand and glue", Steps: stepsJSON(t, "sand", "glue"),
		RequiredMaterials: attrJSON(t, map[string][]string{"material": {"wood"}}),
		Confidence:        0.8, Embedding: vecJSON(t, v),
	})

	res, err := f.orch.FindCandidates(ctx, nil, problemA)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("candidates: want=1 got=%d", len(res.Candidates))
	}
	if res.Candidates[0].Recipe.ID != r1.ID {
		t.Fatalf("candidate: want=%s got=%s", r1.ID, res.Candidates[0].Recipe.ID)
	}
	if res.Degraded {
		t.Fatalf("degraded: want=false")
	}
}

func TestFindCandidatesSafetyExclusionIsAbsolute(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	orgID := uuid.New()
	v := []float32{1, 0, 0, 0}

	problem := &domain.Problem{
		ID: uuid.New(), OrgID: orgID,
		SafetyFlags: func() []byte {
			raw, _ := domain.EncodeStringList([]string{"open_flame"})
			return raw
		}(),
		Embedding: vecJSON(t, v),
	}

	flagged := f.submit(t, problem, &domain.Recipe{
		Title: "torch it", Steps: stepsJSON(t, "light torch"),
		SafetyFlags: func() []byte {
			raw, _ := domain.EncodeStringList([]string{"open_flame"})
			return raw
		}(),
		Confidence: 0.99, Embedding: vecJSON(t, v),
	})
	safe := f.submit(t, problem, &domain.Recipe{
		Title: "clamp it", Steps: stepsJSON(t, "clamp"),
		Confidence: 0.1, Embedding: vecJSON(t, []float32{0.9, 0.1, 0, 0}),
	})

	res, err := f.orch.FindCandidates(ctx, nil, problem)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	for _, c := range res.Candidates {
		if c.Recipe.ID == flagged.ID {
			t.Fatalf("excluded recipe surfaced despite similarity %v", c.Similarity)
		}
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Recipe.ID != safe.ID {
		t.Fatalf("candidates: want=[%s] got=%v", safe.ID, res.Candidates)
	}
}

func TestFindCandidatesRankingBlend(t *testing.T) {
	f := newFixture(t, Config{Weights: Weights{Similarity: 1, AttrMatch: 0, Confidence: 0}})
	ctx := context.Background()
	orgID := uuid.New()

	problem := &domain.Problem{ID: uuid.New(), OrgID: orgID, Embedding: vecJSON(t, []float32{1, 0, 0, 0})}

	near := f.submit(t, problem, &domain.Recipe{
		Title: "near", Steps: stepsJSON(t, "x"),
		Embedding: vecJSON(t, []float32{1, 0.1, 0, 0}),
	})
	far := f.submit(t, problem, &domain.Recipe{
		Title: "far", Steps: stepsJSON(t, "x"),
		Embedding: vecJSON(t, []float32{0.2, 1, 0, 0}),
	})

	res, err := f.orch.FindCandidates(ctx, nil, problem)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates: want=2 got=%d", len(res.Candidates))
	}
	if res.Candidates[0].Recipe.ID != near.ID || res.Candidates[1].Recipe.ID != far.ID {
		t.Fatalf("order: want=[near far] got=[%s %s]", res.Candidates[0].Recipe.Title, res.Candidates[1].Recipe.Title)
	}

	// With confidence dominating, the order flips once far outscores
	// near on stored confidence.
	f2 := newFixture(t, Config{Weights: Weights{Similarity: 0.01, AttrMatch: 0, Confidence: 1}})
	problem2 := &domain.Problem{ID: uuid.New(), OrgID: orgID, Embedding: vecJSON(t, []float32{1, 0, 0, 0})}
	f2.submit(t, problem2, &domain.Recipe{
		Title: "near", Steps: stepsJSON(t, "x"), Confidence: 0.1,
		Embedding: vecJSON(t, []float32{1, 0.1, 0, 0}),
	})
	trusted := f2.submit(t, problem2, &domain.Recipe{
		Title: "trusted", Steps: stepsJSON(t, "x"), Confidence: 0.9,
		Embedding: vecJSON(t, []float32{0.2, 1, 0, 0}),
	})
	res2, err := f2.orch.FindCandidates(ctx, nil, problem2)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if res2.Candidates[0].Recipe.ID != trusted.ID {
		t.Fatalf("confidence-weighted order: want=trusted first got=%s", res2.Candidates[0].Recipe.Title)
	}
}

func TestFindCandidatesConstraintSoftScore(t *testing.T) {
	f := newFixture(t, Config{Weights: Weights{Similarity: 0, AttrMatch: 1, Confidence: 0}})
	ctx := context.Background()
	orgID := uuid.New()
	v := []float32{1, 0, 0, 0}

	problem := &domain.Problem{
		ID: uuid.New(), OrgID: orgID,
		Constraints: attrJSON(t, map[string][]string{"material": {"wood"}}),
		Embedding:   vecJSON(t, v),
	}

	matching := f.submit(t, problem, &domain.Recipe{
		Title: "wood recipe", Steps: stepsJSON(t, "x"),
		RequiredMaterials: attrJSON(t, map[string][]string{"material": {"wood"}}),
		Embedding:         vecJSON(t, v),
	})
	unconstrained := f.submit(t, problem, &domain.Recipe{
		Title: "generic recipe", Steps: stepsJSON(t, "x"),
		Embedding: vecJSON(t, v),
	})

	res, err := f.orch.FindCandidates(ctx, nil, problem)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates: want=2 got=%d", len(res.Candidates))
	}
	if res.Candidates[0].Recipe.ID != matching.ID {
		t.Fatalf("order: want=%s first got=%s", matching.ID, res.Candidates[0].Recipe.ID)
	}
	if res.Candidates[0].AttrScore != 1 {
		t.Fatalf("matching attr score: want=1 got=%v", res.Candidates[0].AttrScore)
	}
	if res.Candidates[1].Recipe.ID != unconstrained.ID || res.Candidates[1].AttrScore != 0.5 {
		t.Fatalf("unconstrained attr score: want=0.5 got=%v", res.Candidates[1].AttrScore)
	}
}

func TestFindCandidatesExpandsViaSimilarProblems(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	orgID := uuid.New()

	// The solved problem carries an embedding; its recipe does not yet.
	solved := &domain.Problem{ID: uuid.New(), OrgID: orgID, Embedding: vecJSON(t, []float32{1, 0.05, 0, 0})}
	if err := f.orch.IndexProblem(solved); err != nil {
		t.Fatalf("IndexProblem: %v", err)
	}
	linked := f.submit(t, solved, &domain.Recipe{Title: "linked", Steps: stepsJSON(t, "x")})

	query := &domain.Problem{ID: uuid.New(), OrgID: orgID, Embedding: vecJSON(t, []float32{1, 0, 0, 0})}
	res, err := f.orch.FindCandidates(ctx, nil, query)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Recipe.ID != linked.ID {
		t.Fatalf("candidates: want=[%s] got=%v", linked.ID, res.Candidates)
	}
	if res.Candidates[0].Similarity <= 0 {
		t.Fatalf("similarity inherited from problem match: got=%v", res.Candidates[0].Similarity)
	}
}

func TestFindCandidatesRequiresEmbedding(t *testing.T) {
	f := newFixture(t, Config{})
	problem := &domain.Problem{ID: uuid.New(), OrgID: uuid.New()}
	_, err := f.orch.FindCandidates(context.Background(), nil, problem)
	if !enginerr.Is(err, enginerr.KindValidation) {
		t.Fatalf("no embedding: want=validation got=%v", err)
	}
}

func TestSubmitRecipeValidation(t *testing.T) {
	f := newFixture(t, Config{})
	problem := &domain.Problem{ID: uuid.New(), OrgID: uuid.New()}

	_, err := f.orch.SubmitRecipe(context.Background(), nil, problem, &domain.Recipe{Title: "no steps"}, nil)
	if !enginerr.Is(err, enginerr.KindValidation) {
		t.Fatalf("empty steps: want=validation got=%v", err)
	}

	_, err = f.orch.SubmitRecipe(context.Background(), nil, problem,
		&domain.Recipe{Title: "bad confidence", Steps: stepsJSON(t, "x"), Confidence: 1.5}, nil)
	if !enginerr.Is(err, enginerr.KindValidation) {
		t.Fatalf("confidence out of range: want=validation got=%v", err)
	}
}

func TestSubmitRecipeForkVersioning(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	problem := &domain.Problem{ID: uuid.New(), OrgID: uuid.New()}

	root := f.submit(t, problem, &domain.Recipe{Title: "v1", Steps: stepsJSON(t, "x")})
	fork, err := f.orch.SubmitRecipe(ctx, nil, problem, &domain.Recipe{Title: "v2", Steps: stepsJSON(t, "x")}, &root.ID)
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	if fork.Version != 2 {
		t.Fatalf("fork version: want=2 got=%d", fork.Version)
	}

	// Forking under another tenant's recipe is rejected.
	foreign := &domain.Problem{ID: uuid.New(), OrgID: uuid.New()}
	_, err = f.orch.SubmitRecipe(ctx, nil, foreign, &domain.Recipe{Title: "steal", Steps: stepsJSON(t, "x")}, &root.ID)
	if !enginerr.Is(err, enginerr.KindLineage) {
		t.Fatalf("cross-tenant fork: want=lineage got=%v", err)
	}
}

func TestRemoveRecipeDropsFromIndexes(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	orgID := uuid.New()
	v := []float32{1, 0, 0, 0}

	problem := &domain.Problem{ID: uuid.New(), OrgID: orgID, Embedding: vecJSON(t, v)}
	r := f.submit(t, problem, &domain.Recipe{Title: "gone soon", Steps: stepsJSON(t, "x"), Embedding: vecJSON(t, v)})

	f.orch.RemoveRecipe(orgID, r.ID)

	res, err := f.orch.FindCandidates(ctx, nil, problem)
	if err != nil {
		t.Fatalf("FindCandidates: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("candidates after remove: want=0 got=%d", len(res.Candidates))
	}
}
