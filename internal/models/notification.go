package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types.
const (
	NotificationNewDeal      = "new_deal"
	NotificationDealExpiring = "deal_expiring"
	NotificationNewBusiness  = "new_business"
	NotificationDealRemoved  = "deal_removed"
	NotificationSystem       = "system"
	NotificationDealClicked  = "deal_clicked"
)

// Notification is an in-app message for a single user. Rows are written by
// the fanout engine; the only mutation afterwards is flipping the read flag.
type Notification struct {
	BaseModel
	UserID        uuid.UUID      `gorm:"type:uuid;index:idx_notifications_user_read" json:"user_id"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Type          string         `json:"type"`
	IsRead        bool           `gorm:"default:false;index:idx_notifications_user_read" json:"is_read"`
	RelatedDealID *uuid.UUID     `gorm:"type:uuid" json:"related_deal_id"`
	Data          datatypes.JSON `json:"data,omitempty"`
}
