package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recipe is an ordered plan solving a problem. Steps and requirements
// are immutable after creation; only confidence moves, and only through
// the feedback aggregator. Versions form a forest: a recipe without a
// parent is a version-1 root, a forked recipe points at its parent and
// carries a strictly greater version number.
type Recipe struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProblemID uuid.UUID `gorm:"type:uuid;not null;index" json:"problem_id"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`

	Title             string         `gorm:"type:text;not null" json:"title"`
	Steps             datatypes.JSON `gorm:"type:jsonb;not null" json:"steps"`
	SafetyNotes       string         `gorm:"type:text" json:"safety_notes,omitempty"`
	RequiredMaterials datatypes.JSON `gorm:"type:jsonb" json:"required_materials,omitempty"`
	RequiredTools     datatypes.JSON `gorm:"type:jsonb" json:"required_tools,omitempty"`
	SafetyFlags       datatypes.JSON `gorm:"type:jsonb" json:"safety_flags,omitempty"`
	EstTimeMin        int            `gorm:"not null;default:0" json:"est_time_min"`
	EstCostCents      int            `gorm:"not null;default:0" json:"est_cost_cents"`

	Confidence  float64 `gorm:"type:numeric(3,2);not null;default:0.5" json:"confidence"`
	CreatedByAI bool    `gorm:"not null;default:true" json:"created_by_ai"`

	Version        int            `gorm:"not null;default:1" json:"version"`
	ParentRecipeID *uuid.UUID     `gorm:"type:uuid;index" json:"parent_recipe_id,omitempty"`
	Embedding      datatypes.JSON `gorm:"type:jsonb" json:"embedding,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Recipe) TableName() string { return "recipes" }

// StepList decodes the jsonb step sequence.
func (r *Recipe) StepList() ([]string, error) {
	return DecodeStringList(r.Steps)
}

// AttributeDoc merges required materials and tools into one attribute
// document for the constraint filter: materials under "material", tools
// under "tool", map-shaped documents pass their keys through.
func (r *Recipe) AttributeDoc() (map[string][]string, error) {
	doc := map[string][]string{}
	if err := mergeAttrSource(doc, "material", r.RequiredMaterials); err != nil {
		return nil, err
	}
	if err := mergeAttrSource(doc, "tool", r.RequiredTools); err != nil {
		return nil, err
	}
	return doc, nil
}

// SafetyFlagList decodes the recipe's declared safety flags.
func (r *Recipe) SafetyFlagList() ([]string, error) {
	return DecodeStringList(r.SafetyFlags)
}
