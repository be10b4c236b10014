package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type RecipeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error)
	// GetByIDAny fetches without a tenant filter. Reserved for the
	// lineage store, which must tell "missing" apart from
	// "belongs to another tenant".
	GetByIDAny(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, ids []uuid.UUID) ([]*domain.Recipe, error)
	ListByProblem(ctx context.Context, tx *gorm.DB, orgID, problemID uuid.UUID) ([]*domain.Recipe, error)
	ListByProblemIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, problemIDs []uuid.UUID) ([]*domain.Recipe, error)
	ListChildren(ctx context.Context, tx *gorm.DB, orgID, parentID uuid.UUID) ([]*domain.Recipe, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.Recipe, error)
	UpdateConfidence(ctx context.Context, tx *gorm.DB, id uuid.UUID, confidence float64) error
	Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error
}

type recipeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeRepo(db *gorm.DB, baseLog *logger.Logger) RecipeRepo {
	return &recipeRepo{db: db, log: baseLog.With("repo", "RecipeRepo")}
}

func (r *recipeRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *recipeRepo) Create(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) error {
	return r.conn(tx).WithContext(ctx).Create(recipe).Error
}

func (r *recipeRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Recipe, error) {
	var rec domain.Recipe
	if err := r.conn(tx).WithContext(ctx).
		First(&rec, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recipeRepo) GetByIDAny(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error) {
	var rec domain.Recipe
	if err := r.conn(tx).WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recipeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, ids []uuid.UUID) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ? AND org_id = ?", ids, orgID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recipeRepo) ListByProblem(ctx context.Context, tx *gorm.DB, orgID, problemID uuid.UUID) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	if err := r.conn(tx).WithContext(ctx).
		Where("problem_id = ? AND org_id = ?", problemID, orgID).
		Order("version ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recipeRepo) ListByProblemIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, problemIDs []uuid.UUID) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	if len(problemIDs) == 0 {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("problem_id IN ? AND org_id = ?", problemIDs, orgID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recipeRepo) ListChildren(ctx context.Context, tx *gorm.DB, orgID, parentID uuid.UUID) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	if err := r.conn(tx).WithContext(ctx).
		Where("parent_recipe_id = ? AND org_id = ?", parentID, orgID).
		Order("version ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every recipe across all tenants, embedded or not.
// Used only by the index bootstrap at startup: recipes without an
// embedding still carry safety flags that must reach the attribute
// index.
func (r *recipeRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.Recipe, error) {
	var out []*domain.Recipe
	if err := r.conn(tx).WithContext(ctx).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recipeRepo) UpdateConfidence(ctx context.Context, tx *gorm.DB, id uuid.UUID, confidence float64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Recipe{}).
		Where("id = ?", id).
		Update("confidence", confidence).Error
}

func (r *recipeRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Delete(&domain.Recipe{}, "id = ? AND org_id = ?", id, orgID).Error
}
