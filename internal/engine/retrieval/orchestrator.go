// Package retrieval coordinates the candidate pipeline: vector search
// over problems and recipes, the constraint filter, lineage-aware
// submission, and final ranking. The orchestrator owns no state of its
// own; it composes the engine components over the caller's tenant.
package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/attrindex"
	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/engine/lineage"
	"github.com/craftwise/craftwise-backend/internal/engine/vectorindex"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

// Weights blend the three ranking components. They are not required to
// sum to one; only their ratios matter.
type Weights struct {
	Similarity float64
	AttrMatch  float64
	Confidence float64
}

type Config struct {
	// K is the result count returned by FindCandidates.
	K int
	// MaxCandidates bounds the vector-search fanout per index.
	MaxCandidates int
	Weights       Weights
	// RetryBackoff is slept before the single retry after an
	// index_unavailable failure.
	RetryBackoff time.Duration
}

const (
	DefaultK             = 10
	DefaultMaxCandidates = 200
	DefaultRetryBackoff  = 50 * time.Millisecond
)

// DefaultWeights is the blend used when a config carries no weights.
var DefaultWeights = Weights{Similarity: 0.5, AttrMatch: 0.3, Confidence: 0.2}

func (c Config) withDefaults() Config {
	if c.K <= 0 {
		c.K = DefaultK
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Candidate is one ranked recipe with its score breakdown.
type Candidate struct {
	Recipe     *domain.Recipe `json:"recipe"`
	Score      float64        `json:"score"`
	Similarity float64        `json:"similarity"`
	AttrScore  float64        `json:"attr_score"`
}

// Result carries the ranked candidates. Degraded is set when a stage
// was skipped after its retry failed, so the ranking is incomplete
// rather than wrong.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Degraded   bool        `json:"degraded"`
}

type Orchestrator struct {
	recipes repos.RecipeRepo

	problemIdx *vectorindex.Index
	recipeIdx  *vectorindex.Index
	attrs      *attrindex.Index
	forest     *lineage.Store

	cfg Config
	log *logger.Logger
}

func NewOrchestrator(
	recipes repos.RecipeRepo,
	problemIdx, recipeIdx *vectorindex.Index,
	attrs *attrindex.Index,
	forest *lineage.Store,
	cfg Config,
	baseLog *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		recipes:    recipes,
		problemIdx: problemIdx,
		recipeIdx:  recipeIdx,
		attrs:      attrs,
		forest:     forest,
		cfg:        cfg.withDefaults(),
		log:        baseLog.With("component", "retrieval.Orchestrator"),
	}
}

// searchOnce retries a single time with backoff when the index reports
// unavailable; any other failure surfaces immediately.
func (o *Orchestrator) searchOnce(ctx context.Context, idx *vectorindex.Index, tenant uuid.UUID, q []float32) ([]vectorindex.Match, error) {
	matches, err := idx.Search(ctx, tenant, q, o.cfg.MaxCandidates, o.cfg.MaxCandidates)
	if err == nil || !enginerr.Is(err, enginerr.KindIndexUnavailable) {
		return matches, err
	}
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(o.cfg.RetryBackoff):
	}
	return idx.Search(ctx, tenant, q, o.cfg.MaxCandidates, o.cfg.MaxCandidates)
}

// FindCandidates returns up to K recipes ranked for the problem.
// Recipes are found two ways, both tenant-scoped: directly by recipe
// embedding similarity, and through recipes attached to similar
// problems. Hard safety exclusions drop candidates outright; the rest
// are ranked by the weighted blend of similarity, constraint soft-match
// and confidence, with ties going to higher confidence then most recent
// creation.
func (o *Orchestrator) FindCandidates(ctx context.Context, tx *gorm.DB, problem *domain.Problem) (*Result, error) {
	const op = "retrieval.FindCandidates"
	if problem.OrgID == uuid.Nil {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "tenant id required")
	}
	q, err := domain.DecodeVector(problem.Embedding)
	if err != nil {
		return nil, enginerr.New(enginerr.KindValidation, op, err).WithEntity(problem.ID)
	}
	if len(q) == 0 {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "problem has no embedding yet").WithEntity(problem.ID)
	}

	// Stage 1: both indexes in parallel. The recipe-side search is
	// essential; the problem-side expansion degrades when it fails
	// after its retry.
	var (
		recipeMatches  []vectorindex.Match
		problemMatches []vectorindex.Match
		degraded       bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipeMatches, err = o.searchOnce(gctx, o.recipeIdx, problem.OrgID, q)
		return err
	})
	g.Go(func() error {
		var err error
		problemMatches, err = o.searchOnce(gctx, o.problemIdx, problem.OrgID, q)
		if err != nil && enginerr.Is(err, enginerr.KindIndexUnavailable) {
			o.log.Warn("problem-side expansion skipped", "org_id", problem.OrgID, "error", err)
			problemMatches, degraded = nil, true
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 2: expand similar problems into their recipes. A recipe
	// reachable both ways keeps its strongest similarity.
	similarity := make(map[uuid.UUID]float64, len(recipeMatches))
	for _, m := range recipeMatches {
		if m.ID == problem.ID {
			continue
		}
		similarity[m.ID] = m.Score
	}
	if len(problemMatches) > 0 {
		problemIDs := make([]uuid.UUID, 0, len(problemMatches))
		problemSim := make(map[uuid.UUID]float64, len(problemMatches))
		for _, m := range problemMatches {
			if m.ID == problem.ID {
				continue
			}
			problemIDs = append(problemIDs, m.ID)
			problemSim[m.ID] = m.Score
		}
		linked, err := o.recipes.ListByProblemIDs(ctx, tx, problem.OrgID, problemIDs)
		if err != nil {
			return nil, enginerr.New(enginerr.KindInternal, op, err)
		}
		for _, r := range linked {
			if s := problemSim[r.ProblemID]; s > similarity[r.ID] {
				similarity[r.ID] = s
			}
		}
	}
	if len(similarity) == 0 {
		return &Result{Degraded: degraded}, nil
	}

	// Stage 3: constraint filter. Safety exclusions are absolute.
	required, err := problem.ConstraintDoc()
	if err != nil {
		return nil, enginerr.New(enginerr.KindValidation, op, err).WithEntity(problem.ID)
	}
	excluded, err := problem.SafetyFlagList()
	if err != nil {
		return nil, enginerr.New(enginerr.KindValidation, op, err).WithEntity(problem.ID)
	}

	ids := make([]uuid.UUID, 0, len(similarity))
	for id := range similarity {
		ids = append(ids, id)
	}
	loaded, err := o.recipes.GetByIDs(ctx, tx, problem.OrgID, ids)
	if err != nil {
		return nil, enginerr.New(enginerr.KindInternal, op, err)
	}

	// Stage 4: blend scores.
	w := o.cfg.Weights
	candidates := make([]Candidate, 0, len(loaded))
	for _, r := range loaded {
		if o.attrs.Excluded(problem.OrgID, r.ID, excluded) {
			continue
		}
		sim := similarity[r.ID]
		soft := o.attrs.SoftScore(problem.OrgID, r.ID, attrindex.Doc(required))
		candidates = append(candidates, Candidate{
			Recipe:     r,
			Similarity: sim,
			AttrScore:  soft,
			Score:      w.Similarity*sim + w.AttrMatch*soft + w.Confidence*r.Confidence,
		})
	}

	// Stage 5: rank and truncate.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Recipe.Confidence != b.Recipe.Confidence {
			return a.Recipe.Confidence > b.Recipe.Confidence
		}
		if !a.Recipe.CreatedAt.Equal(b.Recipe.CreatedAt) {
			return a.Recipe.CreatedAt.After(b.Recipe.CreatedAt)
		}
		return a.Recipe.ID.String() < b.Recipe.ID.String()
	})
	if len(candidates) > o.cfg.K {
		candidates = candidates[:o.cfg.K]
	}
	return &Result{Candidates: candidates, Degraded: degraded}, nil
}

// SubmitRecipe persists a new recipe for the problem, as a root when
// parentID is nil and as a fork otherwise, then indexes it. The write
// is DB-first: an index failure after a committed row leaves the recipe
// retrievable by id and picked up by the next bootstrap sweep.
func (o *Orchestrator) SubmitRecipe(ctx context.Context, tx *gorm.DB, problem *domain.Problem, data *domain.Recipe, parentID *uuid.UUID) (*domain.Recipe, error) {
	const op = "retrieval.SubmitRecipe"

	steps, err := data.StepList()
	if err != nil {
		return nil, enginerr.New(enginerr.KindValidation, op, err)
	}
	if len(steps) == 0 {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "recipe requires at least one step")
	}
	if data.Confidence < 0 || data.Confidence > 1 {
		return nil, enginerr.Newf(enginerr.KindValidation, op, "confidence %v outside [0,1]", data.Confidence)
	}

	if parentID == nil {
		data.OrgID = problem.OrgID
		data.ProblemID = problem.ID
		if err := o.forest.CreateRoot(ctx, tx, data); err != nil {
			return nil, err
		}
	} else {
		if err := o.forest.Fork(ctx, tx, problem.OrgID, *parentID, data); err != nil {
			return nil, err
		}
	}

	if err := o.IndexRecipe(data); err != nil {
		return nil, err
	}
	o.log.Info("recipe submitted",
		"recipe_id", data.ID, "problem_id", data.ProblemID, "org_id", data.OrgID, "version", data.Version)
	return data, nil
}

// IndexRecipe registers the recipe with the vector and attribute
// indexes. A recipe without an embedding is attribute-indexed only and
// joins similarity search once its embedding lands.
func (o *Orchestrator) IndexRecipe(r *domain.Recipe) error {
	const op = "retrieval.IndexRecipe"

	doc, err := r.AttributeDoc()
	if err != nil {
		return enginerr.New(enginerr.KindValidation, op, err).WithEntity(r.ID)
	}
	flags, err := r.SafetyFlagList()
	if err != nil {
		return enginerr.New(enginerr.KindValidation, op, err).WithEntity(r.ID)
	}
	o.attrs.Put(r.OrgID, r.ID, attrindex.Doc(doc), flags)

	vec, err := domain.DecodeVector(r.Embedding)
	if err != nil {
		return enginerr.New(enginerr.KindValidation, op, err).WithEntity(r.ID)
	}
	if len(vec) == 0 {
		return nil
	}
	return o.recipeIdx.Insert(r.OrgID, r.ID, vec, r.CreatedAt)
}

// IndexProblem registers the problem's embedding for similarity search.
func (o *Orchestrator) IndexProblem(p *domain.Problem) error {
	const op = "retrieval.IndexProblem"
	vec, err := domain.DecodeVector(p.Embedding)
	if err != nil {
		return enginerr.New(enginerr.KindValidation, op, err).WithEntity(p.ID)
	}
	if len(vec) == 0 {
		return nil
	}
	return o.problemIdx.Insert(p.OrgID, p.ID, vec, p.CreatedAt)
}

// RemoveRecipe drops the recipe from both indexes. The relational row
// is the owning record and is deleted by the caller.
func (o *Orchestrator) RemoveRecipe(orgID, recipeID uuid.UUID) {
	o.recipeIdx.Remove(orgID, recipeID)
	o.attrs.Remove(orgID, recipeID)
}

// RecipesOf lists the recipes attached to a problem, tenant-scoped.
func (o *Orchestrator) RecipesOf(ctx context.Context, tx *gorm.DB, orgID, problemID uuid.UUID) ([]*domain.Recipe, error) {
	const op = "retrieval.RecipesOf"
	recipes, err := o.recipes.ListByProblem(ctx, tx, orgID, problemID)
	if err != nil {
		return nil, enginerr.New(enginerr.KindInternal, op, err)
	}
	return recipes, nil
}

// RemoveProblem drops the problem from the similarity index.
func (o *Orchestrator) RemoveProblem(orgID, problemID uuid.UUID) {
	o.problemIdx.Remove(orgID, problemID)
}

// Forest exposes the lineage store for history and latest lookups.
func (o *Orchestrator) Forest() *lineage.Store { return o.forest }
