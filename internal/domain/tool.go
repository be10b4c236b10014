package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Tool struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Name         string         `gorm:"type:text;not null" json:"name"`
	Capabilities datatypes.JSON `gorm:"type:jsonb" json:"capabilities,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Tool) TableName() string { return "tools" }
