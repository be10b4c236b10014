package lineage

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

// MaxDepth bounds ancestry walks. Chains this deep only happen when the
// parent pointers are corrupt, so hitting the bound is reported as a
// lineage error rather than silently truncated.
const MaxDepth = 1000

const lockStripes = 64

// Store manages recipe version forests. Recipes without a parent are
// version-1 roots; forks point at their parent and carry version
// parent+1. Concurrent forks under the same root serialize on a striped
// per-root mutex so version numbers stay monotonic along every chain.
type Store struct {
	recipes repos.RecipeRepo
	log     *logger.Logger
	locks   [lockStripes]sync.Mutex
}

func NewStore(recipes repos.RecipeRepo, baseLog *logger.Logger) *Store {
	return &Store{recipes: recipes, log: baseLog.With("component", "lineage.Store")}
}

func (s *Store) rootLock(rootID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(rootID[:])
	return &s.locks[h.Sum32()%lockStripes]
}

// CreateRoot persists a new version-1 recipe with no parent.
func (s *Store) CreateRoot(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) error {
	const op = "lineage.CreateRoot"
	if recipe.ParentRecipeID != nil {
		return enginerr.New(enginerr.KindValidation, op, errors.New("root recipe must not carry a parent"))
	}
	recipe.Version = 1
	if err := s.recipes.Create(ctx, tx, recipe); err != nil {
		return enginerr.New(enginerr.KindInternal, op, err)
	}
	return nil
}

// Fork persists child as a new version under parentID. The parent must
// exist and belong to orgID; the child's version becomes parent.Version+1
// and its problem binding is inherited from the parent. A fork whose
// identity already appears in the parent's ancestry is rejected, as is
// any chain deeper than MaxDepth.
func (s *Store) Fork(ctx context.Context, tx *gorm.DB, orgID, parentID uuid.UUID, child *domain.Recipe) error {
	const op = "lineage.Fork"

	parent, err := s.recipes.GetByIDAny(ctx, tx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A fork names its parent explicitly, so a missing parent is
			// a broken lineage reference, not a plain lookup miss.
			return enginerr.New(enginerr.KindLineage, op, errors.New("parent recipe not found")).WithEntity(parentID)
		}
		return enginerr.New(enginerr.KindInternal, op, err)
	}
	if parent.OrgID != orgID {
		// Deliberately the same failure shape as a broken chain: the
		// caller learns nothing about another tenant's data.
		return enginerr.New(enginerr.KindLineage, op, errors.New("parent recipe outside tenant")).WithTenant(orgID)
	}

	chain, rootID, err := s.ancestry(ctx, tx, parent)
	if err != nil {
		return err
	}
	if child.ID != uuid.Nil {
		for _, a := range chain {
			if a.ID == child.ID {
				return enginerr.New(enginerr.KindLineage, op, errors.New("fork would close a cycle")).WithEntity(child.ID)
			}
		}
	}

	mu := s.rootLock(rootID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock so concurrent forks of the same parent
	// still observe the committed version.
	parent, err = s.recipes.GetByIDAny(ctx, tx, parentID)
	if err != nil {
		return enginerr.New(enginerr.KindInternal, op, err)
	}

	child.OrgID = orgID
	child.ProblemID = parent.ProblemID
	child.ParentRecipeID = &parent.ID
	child.Version = parent.Version + 1
	if err := s.recipes.Create(ctx, tx, child); err != nil {
		return enginerr.New(enginerr.KindInternal, op, err)
	}
	s.log.Info("recipe forked", "parent_id", parentID, "child_id", child.ID, "version", child.Version)
	return nil
}

// History returns the full ancestry of id ordered root first, ending
// with the recipe itself.
func (s *Store) History(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) ([]*domain.Recipe, error) {
	const op = "lineage.History"

	recipe, err := s.recipes.GetByID(ctx, tx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enginerr.New(enginerr.KindNotFound, op, errors.New("recipe not found")).WithEntity(id)
		}
		return nil, enginerr.New(enginerr.KindInternal, op, err)
	}

	chain, _, err := s.ancestry(ctx, tx, recipe)
	if err != nil {
		return nil, err
	}
	// ancestry returns leaf first; reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Latest returns the highest-version recipe in the forest containing id.
// Ties between sibling branches go to the most recently created.
func (s *Store) Latest(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error) {
	const op = "lineage.Latest"

	recipe, err := s.recipes.GetByID(ctx, tx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enginerr.New(enginerr.KindNotFound, op, errors.New("recipe not found")).WithEntity(id)
		}
		return nil, enginerr.New(enginerr.KindInternal, op, err)
	}
	chain, _, err := s.ancestry(ctx, tx, recipe)
	if err != nil {
		return nil, err
	}
	root := chain[len(chain)-1]

	best := root
	frontier := []*domain.Recipe{root}
	visited := map[uuid.UUID]bool{root.ID: true}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth > MaxDepth {
			return nil, enginerr.New(enginerr.KindLineage, op, errors.New("descendant walk exceeded max depth"))
		}
		var next []*domain.Recipe
		for _, cur := range frontier {
			children, err := s.recipes.ListChildren(ctx, tx, orgID, cur.ID)
			if err != nil {
				return nil, enginerr.New(enginerr.KindInternal, op, err)
			}
			for _, c := range children {
				if visited[c.ID] {
					continue
				}
				visited[c.ID] = true
				if c.Version > best.Version ||
					(c.Version == best.Version && c.CreatedAt.After(best.CreatedAt)) {
					best = c
				}
				next = append(next, c)
			}
		}
		frontier = next
	}
	return best, nil
}

// ancestry walks parent pointers from start up to the root, returning
// the chain leaf first plus the root's id. Cross-tenant parents and
// chains beyond MaxDepth surface as lineage errors.
func (s *Store) ancestry(ctx context.Context, tx *gorm.DB, start *domain.Recipe) ([]*domain.Recipe, uuid.UUID, error) {
	const op = "lineage.ancestry"

	chain := []*domain.Recipe{start}
	seen := map[uuid.UUID]bool{start.ID: true}
	cur := start
	for cur.ParentRecipeID != nil {
		if len(chain) > MaxDepth {
			return nil, uuid.Nil, enginerr.New(enginerr.KindLineage, op, errors.New("ancestry exceeded max depth"))
		}
		parent, err := s.recipes.GetByIDAny(ctx, tx, *cur.ParentRecipeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, uuid.Nil, enginerr.New(enginerr.KindLineage, op, errors.New("dangling parent pointer")).WithEntity(*cur.ParentRecipeID)
			}
			return nil, uuid.Nil, enginerr.New(enginerr.KindInternal, op, err)
		}
		if parent.OrgID != start.OrgID {
			return nil, uuid.Nil, enginerr.New(enginerr.KindLineage, op, errors.New("ancestry crosses tenant boundary")).WithTenant(start.OrgID)
		}
		if seen[parent.ID] {
			return nil, uuid.Nil, enginerr.New(enginerr.KindLineage, op, errors.New("cycle in parent chain")).WithEntity(parent.ID)
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain, chain[len(chain)-1].ID, nil
}
