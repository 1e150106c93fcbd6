package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerRequest is a customer's broadcast of what they are looking for.
// Business-role users browse active, unexpired requests.
type CustomerRequest struct {
	BaseModel
	UserID      uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	User        *User      `json:"user,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `gorm:"index" json:"category"`
	BudgetMin   float64    `json:"budget_min"`
	BudgetMax   float64    `json:"budget_max"`
	Urgency     string     `json:"urgency"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
}
