package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/minglin/internal/middleware"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
)

// SavedDealHandler manages the user-deal bookmark join.
type SavedDealHandler struct {
	db        *gorm.DB
	analytics *services.AnalyticsService
}

// NewSavedDealHandler constructs a SavedDealHandler.
func NewSavedDealHandler(db *gorm.DB, analytics *services.AnalyticsService) *SavedDealHandler {
	return &SavedDealHandler{db: db, analytics: analytics}
}

// SaveDeal bookmarks a deal for the caller. A deal can be saved at most once;
// a repeat save is a conflict. Each successful save emits a save analytics
// event.
func (h *SavedDealHandler) SaveDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var deal models.Deal
	if err := h.db.First(&deal, "id = ?", dealID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "deal not found")
		}
		return err
	}

	saved := models.SavedDeal{UserID: userID, DealID: dealID}
	res := h.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&saved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusConflict, "deal already saved")
	}

	if _, err := h.analytics.Record(&deal, &userID, models.ActionSave, c.IP(), c.Get("User-Agent")); err != nil {
		log.Printf("[SavedDeal] failed to record save event for deal %s: %v", deal.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": saved})
}

// UnsaveDeal removes a bookmark and emits an unsave analytics event.
func (h *SavedDealHandler) UnsaveDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Where("user_id = ? AND deal_id = ?", userID, dealID).Delete(&models.SavedDeal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "saved deal not found")
	}

	var deal models.Deal
	if err := h.db.First(&deal, "id = ?", dealID).Error; err == nil {
		if _, err := h.analytics.Record(&deal, &userID, models.ActionUnsave, c.IP(), c.Get("User-Agent")); err != nil {
			log.Printf("[SavedDeal] failed to record unsave event for deal %s: %v", deal.ID, err)
		}
	}

	return c.JSON(fiber.Map{"success": true, "message": "deal unsaved"})
}

// ListSavedDeals returns the caller's bookmarks, newest first.
func (h *SavedDealHandler) ListSavedDeals(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var saved []models.SavedDeal
	if err := h.db.Preload("Deal").Preload("Deal.Business").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&saved).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": saved})
}
