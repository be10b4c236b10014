package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant: the unit of data isolation for everything
// below it.
type Organization struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"type:text;not null" json:"name"`
	Plan string    `gorm:"type:text" json:"plan,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Organization) TableName() string { return "organizations" }
