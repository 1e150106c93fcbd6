package services

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/minglin/internal/database"
	"github.com/example/minglin/internal/models"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	path := fmt.Sprintf("./test_%d.db", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		os.Remove(path)
	}
	return db, cleanup
}

func createDealWithOwner(t *testing.T, db *gorm.DB) (*models.Deal, *models.User) {
	t.Helper()

	owner := models.User{Phone: "0977" + uuid.New().String()[:6], Role: models.RoleBusiness}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("Failed to create owner: %v", err)
	}

	business := models.Business{Name: "Test Business", OwnerUserID: owner.ID}
	if err := db.Create(&business).Error; err != nil {
		t.Fatalf("Failed to create business: %v", err)
	}

	deal := models.Deal{
		BusinessID: business.ID,
		Title:      "Half Price Lunch",
		StartTime:  time.Now().Add(-time.Hour),
		EndTime:    time.Now().Add(24 * time.Hour),
		IsActive:   true,
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("Failed to create deal: %v", err)
	}
	return &deal, &owner
}

func createCustomer(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := models.User{Phone: "0966" + uuid.New().String()[:6], Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

func TestRecord_ViewCountedOncePerUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, nil)
	deal, _ := createDealWithOwner(t, db)
	user := createCustomer(t, db)

	recorded, err := svc.Record(deal, &user.ID, models.ActionView, "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("First view failed: %v", err)
	}
	if !recorded {
		t.Fatal("Expected first view to be recorded")
	}

	recorded, err = svc.Record(deal, &user.ID, models.ActionView, "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("Second view failed: %v", err)
	}
	if recorded {
		t.Error("Expected second view to be a no-op")
	}

	var rows int64
	if err := db.Model(&models.DealAnalytics{}).
		Where("deal_id = ? AND user_id = ? AND action_type = ?", deal.ID, user.ID, models.ActionView).
		Count(&rows).Error; err != nil {
		t.Fatalf("Failed to count analytics rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("Expected exactly 1 analytics row, got %d", rows)
	}

	var fresh models.Deal
	if err := db.First(&fresh, "id = ?", deal.ID).Error; err != nil {
		t.Fatalf("Failed to reload deal: %v", err)
	}
	if fresh.Views != 1 {
		t.Errorf("Expected views = 1, got %d", fresh.Views)
	}
}

func TestRecord_DistinctUsersEachCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, nil)
	deal, _ := createDealWithOwner(t, db)

	for i := 0; i < 3; i++ {
		user := createCustomer(t, db)
		if _, err := svc.Record(deal, &user.ID, models.ActionView, "10.0.0.1", "test"); err != nil {
			t.Fatalf("View %d failed: %v", i, err)
		}
	}

	var fresh models.Deal
	if err := db.First(&fresh, "id = ?", deal.ID).Error; err != nil {
		t.Fatalf("Failed to reload deal: %v", err)
	}
	if fresh.Views != 3 {
		t.Errorf("Expected views = 3, got %d", fresh.Views)
	}
}

func TestRecord_ConcurrentClicksIncrementOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, nil)
	deal, _ := createDealWithOwner(t, db)
	user := createCustomer(t, db)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Record(deal, &user.ID, models.ActionClick, "10.0.0.1", "test")
		}()
	}
	wg.Wait()

	var rows int64
	if err := db.Model(&models.DealAnalytics{}).
		Where("deal_id = ? AND user_id = ? AND action_type = ?", deal.ID, user.ID, models.ActionClick).
		Count(&rows).Error; err != nil {
		t.Fatalf("Failed to count analytics rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("Expected exactly 1 click row, got %d", rows)
	}

	var fresh models.Deal
	if err := db.First(&fresh, "id = ?", deal.ID).Error; err != nil {
		t.Fatalf("Failed to reload deal: %v", err)
	}
	if fresh.Clicks != 1 {
		t.Errorf("Expected clicks = 1, got %d", fresh.Clicks)
	}
}

func TestRecord_SaveEventsAlwaysAppend(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, nil)
	deal, _ := createDealWithOwner(t, db)
	user := createCustomer(t, db)

	for i := 0; i < 2; i++ {
		recorded, err := svc.Record(deal, &user.ID, models.ActionSave, "10.0.0.1", "test")
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		if !recorded {
			t.Errorf("Expected save %d to be recorded", i)
		}
	}

	var rows int64
	if err := db.Model(&models.DealAnalytics{}).
		Where("deal_id = ? AND action_type = ?", deal.ID, models.ActionSave).
		Count(&rows).Error; err != nil {
		t.Fatalf("Failed to count analytics rows: %v", err)
	}
	if rows != 2 {
		t.Errorf("Expected 2 save rows, got %d", rows)
	}

	var fresh models.Deal
	if err := db.First(&fresh, "id = ?", deal.ID).Error; err != nil {
		t.Fatalf("Failed to reload deal: %v", err)
	}
	if fresh.Views != 0 || fresh.Clicks != 0 {
		t.Errorf("Expected counters untouched by saves, got views=%d clicks=%d", fresh.Views, fresh.Clicks)
	}
}

func TestRecord_ClickNotifiesBusinessOwner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, NewNotifier(db, nil))
	deal, owner := createDealWithOwner(t, db)
	user := createCustomer(t, db)

	if _, err := svc.Record(deal, &user.ID, models.ActionClick, "10.0.0.1", "test"); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	var notifications []models.Notification
	if err := db.Where("user_id = ? AND type = ?", owner.ID, models.NotificationDealClicked).
		Find(&notifications).Error; err != nil {
		t.Fatalf("Failed to load notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Errorf("Expected 1 deal_clicked notification for the owner, got %d", len(notifications))
	}
}

func TestRecord_UnknownActionRejected(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewAnalyticsService(db, nil)
	deal, _ := createDealWithOwner(t, db)
	user := createCustomer(t, db)

	if _, err := svc.Record(deal, &user.ID, "share", "10.0.0.1", "test"); err == nil {
		t.Error("Expected error for unknown action type")
	}
}
