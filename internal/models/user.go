package models

import (
	"time"
)

// User roles. Customers carry RoleUser; business owners carry RoleBusiness.
const (
	RoleUser     = "user"
	RoleBusiness = "business"
)

// User represents an account keyed by phone number. Accounts are created
// either on first successful OTP verification or by explicit registration.
type User struct {
	BaseModel
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Email        string      `json:"email"`
	Phone        string      `gorm:"uniqueIndex" json:"phone"`
	Role         string      `gorm:"index" json:"role"`
	PasswordHash string      `json:"-"`
	Latitude     *float64    `json:"latitude"`
	Longitude    *float64    `json:"longitude"`
	Preferences  Preferences `gorm:"serializer:json" json:"preferences"`
	PushEnabled  bool        `json:"push_enabled"`
}

// Preferences is the user's preference document. Notification toggles are
// typed rather than a free-form map so unset flags have a defined default.
type Preferences struct {
	Address       string               `json:"address,omitempty"`
	Notifications NotificationSettings `json:"notifications"`
}

// NotificationSettings holds per-category notification toggles. A nil flag
// means the user never expressed a choice and counts as enabled.
type NotificationSettings struct {
	DealAlerts    *bool `json:"dealAlerts,omitempty"`
	ExpiringDeals *bool `json:"expiringDeals,omitempty"`
	NewBusinesses *bool `json:"newBusinesses,omitempty"`
}

// Wants reports whether a notification of the given type should reach the
// user. Unset flags default to true.
func (s NotificationSettings) Wants(notificationType string) bool {
	var flag *bool
	switch notificationType {
	case NotificationNewDeal, NotificationDealRemoved:
		flag = s.DealAlerts
	case NotificationDealExpiring:
		flag = s.ExpiringDeals
	case NotificationNewBusiness:
		flag = s.NewBusinesses
	default:
		return true
	}
	if flag == nil {
		return true
	}
	return *flag
}

// OTP is a one-time login code bound to a phone number. Issuing a new code
// deletes any prior rows for the same phone, so at most one code is live.
type OTP struct {
	BaseModel
	Phone     string     `gorm:"index" json:"phone"`
	Code      string     `json:"code"`
	Role      string     `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
	Used      bool       `gorm:"default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at"`
}
