package models

import (
	"github.com/google/uuid"
)

// Business is a merchant profile owned by a business-role user. Deal
// operations resolve the owner's first business, so in practice each owner
// runs a single business.
type Business struct {
	BaseModel
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ContactPhone string    `json:"contact_phone"`
	Logo         string    `json:"logo"`
	OwnerUserID  uuid.UUID `gorm:"type:uuid;index" json:"owner_user_id"`
	OwnerUser    *User     `json:"owner_user,omitempty"`
	Deals        []Deal    `json:"deals,omitempty"`
}
