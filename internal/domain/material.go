package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Material struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Name       string         `gorm:"type:text;not null" json:"name"`
	Properties datatypes.JSON `gorm:"type:jsonb" json:"properties,omitempty"`
	Stock      int            `gorm:"not null;default:0" json:"stock"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Material) TableName() string { return "materials" }
