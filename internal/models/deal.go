package models

import (
	"time"

	"github.com/google/uuid"
)

// Analytics action types.
const (
	ActionView   = "view"
	ActionClick  = "click"
	ActionSave   = "save"
	ActionUnsave = "unsave"
)

// Deal is a business's time-bounded promotional offer. A deal is visible to
// customers only while IsActive is set and EndTime has not passed.
type Deal struct {
	BaseModel
	BusinessID  uuid.UUID `gorm:"type:uuid;index" json:"business_id"`
	Business    *Business `json:"business,omitempty"`
	Title       string    `gorm:"index" json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Category    string    `gorm:"index" json:"category"`
	CTA         string    `json:"cta"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `gorm:"index" json:"end_time"`
	Latitude    *float64  `json:"-"`
	Longitude   *float64  `json:"-"`
	IsActive    bool      `json:"is_active"`
	Views       uint      `gorm:"default:0" json:"views"`
	Clicks      uint      `gorm:"default:0" json:"clicks"`
}

// HasLocation reports whether the deal carries coordinates.
func (d *Deal) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// SavedDeal joins a user to a deal they bookmarked. The pair is unique: a
// user saves a given deal at most once concurrently.
type SavedDeal struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_saved_user_deal" json:"user_id"`
	DealID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_saved_user_deal" json:"deal_id"`
	Deal   *Deal     `json:"deal,omitempty"`
}

// DealAnalytics is an append-only interaction event. For view and click the
// (deal, user, action) triple also acts as the dedup key gating counter
// increments; save and unsave rows repeat freely.
type DealAnalytics struct {
	BaseModel
	DealID     uuid.UUID  `gorm:"type:uuid;index:idx_analytics_deal_action" json:"deal_id"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	ActionType string     `gorm:"index:idx_analytics_deal_action" json:"action_type"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
}
