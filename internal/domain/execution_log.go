package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"

	RatingMin = 1
	RatingMax = 5
)

func ValidOutcome(o string) bool {
	switch o {
	case OutcomeSuccess, OutcomePartial, OutcomeFailure:
		return true
	}
	return false
}

// ExecutionLog is a write-once feedback record for one recipe run.
// Replays of the same log id are deduplicated by the aggregator.
type ExecutionLog struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipeID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipe_id"`
	UserID   *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Outcome string `gorm:"type:text;not null" json:"outcome"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`
	Rating  int    `gorm:"type:smallint;not null" json:"rating"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ExecutionLog) TableName() string { return "execution_logs" }
