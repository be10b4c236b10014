package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentOwner is the closed set of kinds an attachment may hang off.
type AttachmentOwner string

const (
	AttachmentOwnerProblem      AttachmentOwner = "problem"
	AttachmentOwnerRecipe       AttachmentOwner = "recipe"
	AttachmentOwnerExecutionLog AttachmentOwner = "execution_log"
)

func ValidAttachmentOwner(k AttachmentOwner) bool {
	switch k {
	case AttachmentOwnerProblem, AttachmentOwnerRecipe, AttachmentOwnerExecutionLog:
		return true
	}
	return false
}

// Attachment is pure metadata: a URI plus a polymorphic owner reference.
type Attachment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerType AttachmentOwner `gorm:"type:text;not null;index:idx_attachments_owner,priority:1" json:"owner_type"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_attachments_owner,priority:2" json:"owner_id"`

	URI      string `gorm:"type:text;not null" json:"uri"`
	MimeType string `gorm:"type:text" json:"mime_type,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Attachment) TableName() string { return "attachments" }
