package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/models"
)

func boolPtr(v bool) *bool { return &v }

func createSaver(t *testing.T, db *gorm.DB, deal *models.Deal, dealAlerts *bool) *models.User {
	t.Helper()

	user := models.User{
		Phone: "0955" + uuid.New().String()[:6],
		Role:  models.RoleUser,
		Preferences: models.Preferences{
			Notifications: models.NotificationSettings{DealAlerts: dealAlerts},
		},
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	if err := db.Create(&models.SavedDeal{UserID: user.ID, DealID: deal.ID}).Error; err != nil {
		t.Fatalf("Failed to save deal: %v", err)
	}
	return &user
}

func TestDealDeleted_NotifiesAllSavers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	deal, _ := createDealWithOwner(t, db)

	for i := 0; i < 3; i++ {
		createSaver(t, db, deal, nil) // unset flag defaults to enabled
	}

	notifier.DealDeleted(deal)

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationDealRemoved).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count notifications: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 notifications, got %d", count)
	}
}

func TestDealDeleted_RespectsDisabledPreference(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	deal, _ := createDealWithOwner(t, db)

	for i := 0; i < 2; i++ {
		createSaver(t, db, deal, boolPtr(false))
	}

	notifier.DealDeleted(deal)

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationDealRemoved).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count notifications: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 notifications with dealAlerts disabled, got %d", count)
	}
}

func TestDealDeleted_OnlySaversAreNotified(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	deal, _ := createDealWithOwner(t, db)

	saver := createSaver(t, db, deal, nil)
	bystander := createCustomer(t, db)

	notifier.DealDeleted(deal)

	var saverCount, bystanderCount int64
	db.Model(&models.Notification{}).Where("user_id = ?", saver.ID).Count(&saverCount)
	db.Model(&models.Notification{}).Where("user_id = ?", bystander.ID).Count(&bystanderCount)

	if saverCount != 1 {
		t.Errorf("Expected 1 notification for the saver, got %d", saverCount)
	}
	if bystanderCount != 0 {
		t.Errorf("Expected no notification for a non-saver, got %d", bystanderCount)
	}
}

func TestDealCreated_NotifiesCustomersNotBusinesses(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	deal, owner := createDealWithOwner(t, db)
	customer := createCustomer(t, db)

	notifier.DealCreated(deal, "Test Business")

	var customerCount, ownerCount int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", customer.ID, models.NotificationNewDeal).
		Count(&customerCount)
	db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", owner.ID, models.NotificationNewDeal).
		Count(&ownerCount)

	if customerCount != 1 {
		t.Errorf("Expected 1 new_deal notification for the customer, got %d", customerCount)
	}
	if ownerCount != 0 {
		t.Errorf("Expected no new_deal notification for the business owner, got %d", ownerCount)
	}
}

func TestDealCreated_LinksRelatedDeal(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	deal, _ := createDealWithOwner(t, db)
	customer := createCustomer(t, db)

	notifier.DealCreated(deal, "Test Business")

	var notification models.Notification
	if err := db.First(&notification, "user_id = ?", customer.ID).Error; err != nil {
		t.Fatalf("Failed to load notification: %v", err)
	}
	if notification.RelatedDealID == nil || *notification.RelatedDealID != deal.ID {
		t.Error("Expected notification to reference the created deal")
	}
}

func TestRequestCreated_NotifiesBusinessRoleOnly(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	notifier := NewNotifier(db, nil)
	_, owner := createDealWithOwner(t, db)
	customer := createCustomer(t, db)

	expires := time.Now().Add(72 * time.Hour)
	request := models.CustomerRequest{
		UserID:    customer.ID,
		Title:     "Looking for a plumber",
		Category:  "services",
		IsActive:  true,
		ExpiresAt: &expires,
	}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	notifier.RequestCreated(&request)

	var businessCount, customerCount int64
	db.Model(&models.Notification{}).Where("user_id = ?", owner.ID).Count(&businessCount)
	db.Model(&models.Notification{}).Where("user_id = ?", customer.ID).Count(&customerCount)

	if businessCount != 1 {
		t.Errorf("Expected 1 notification for the business owner, got %d", businessCount)
	}
	if customerCount != 0 {
		t.Errorf("Expected no notification for the requesting customer, got %d", customerCount)
	}
}

func TestNotificationSettings_Defaults(t *testing.T) {
	var unset models.NotificationSettings
	for _, notificationType := range []string{
		models.NotificationNewDeal,
		models.NotificationDealExpiring,
		models.NotificationNewBusiness,
		models.NotificationDealRemoved,
		models.NotificationSystem,
	} {
		if !unset.Wants(notificationType) {
			t.Errorf("Expected unset settings to allow %s", notificationType)
		}
	}

	disabled := models.NotificationSettings{
		DealAlerts:    boolPtr(false),
		NewBusinesses: boolPtr(false),
	}
	if disabled.Wants(models.NotificationNewDeal) {
		t.Error("Expected dealAlerts=false to block new_deal")
	}
	if disabled.Wants(models.NotificationDealRemoved) {
		t.Error("Expected dealAlerts=false to block deal_removed")
	}
	if disabled.Wants(models.NotificationNewBusiness) {
		t.Error("Expected newBusinesses=false to block new_business")
	}
	if !disabled.Wants(models.NotificationDealExpiring) {
		t.Error("Expected unset expiringDeals to stay enabled")
	}
	if !disabled.Wants(models.NotificationSystem) {
		t.Error("Expected system notifications to bypass toggles")
	}
}
