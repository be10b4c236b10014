package domain

import (
	"time"

	"github.com/google/uuid"
)

type Workspace struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	OwnerID *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"`

	Location string `gorm:"type:text" json:"location,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Workspace) TableName() string { return "workspaces" }
