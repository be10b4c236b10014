package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ProblemStatusOpen      = "open"
	ProblemStatusSolved    = "solved"
	ProblemStatusAbandoned = "abandoned"
)

func ValidProblemStatus(s string) bool {
	switch s {
	case ProblemStatusOpen, ProblemStatusSolved, ProblemStatusAbandoned:
		return true
	}
	return false
}

// Problem is a described task to solve. Its embedding is optional at
// creation and required before the problem participates in similarity
// search.
type Problem struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	OrgID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`

	Description string         `gorm:"type:text;not null" json:"description"`
	Constraints datatypes.JSON `gorm:"type:jsonb" json:"constraints,omitempty"`
	SafetyFlags datatypes.JSON `gorm:"type:jsonb" json:"safety_flags,omitempty"`
	Status      string         `gorm:"type:text;not null;default:'open'" json:"status"`
	Embedding   datatypes.JSON `gorm:"type:jsonb" json:"embedding,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Problem) TableName() string { return "problems" }

// ConstraintDoc decodes the jsonb constraints into attribute form.
func (p *Problem) ConstraintDoc() (map[string][]string, error) {
	return DecodeAttrDoc(p.Constraints)
}

// SafetyFlagList decodes the jsonb safety flags.
func (p *Problem) SafetyFlagList() ([]string, error) {
	return DecodeStringList(p.SafetyFlags)
}
