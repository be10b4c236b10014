package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User belongs to at most one organization. Deleting the organization
// detaches its users instead of cascading (org id is nulled).
type User struct {
	ID    uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID *uuid.UUID `gorm:"type:uuid;index" json:"org_id,omitempty"`

	Email        string `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Phone        string `gorm:"type:text" json:"phone,omitempty"`
	Role         string `gorm:"type:varchar(50);not null;default:'member'" json:"role"`
	PasswordHash string `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (User) TableName() string { return "users" }
