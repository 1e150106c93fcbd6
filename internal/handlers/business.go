package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/middleware"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
)

// BusinessHandler manages business profile endpoints.
type BusinessHandler struct {
	db       *gorm.DB
	notifier *services.Notifier
}

// NewBusinessHandler constructs a BusinessHandler.
func NewBusinessHandler(db *gorm.DB, notifier *services.Notifier) *BusinessHandler {
	return &BusinessHandler{db: db, notifier: notifier}
}

type businessRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ContactPhone string `json:"contact_phone"`
	Logo         string `json:"logo"`
}

// CreateBusiness registers a business profile for the caller and announces
// it to customers.
func (h *BusinessHandler) CreateBusiness(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req businessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	business := models.Business{
		Name:         req.Name,
		Description:  req.Description,
		ContactPhone: req.ContactPhone,
		Logo:         req.Logo,
		OwnerUserID:  userID,
	}
	if err := h.db.Create(&business).Error; err != nil {
		return err
	}

	go h.notifier.BusinessCreated(&business)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": business})
}

// MyBusinesses lists the caller's business profiles.
func (h *BusinessHandler) MyBusinesses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var businesses []models.Business
	if err := h.db.Where("owner_user_id = ?", userID).
		Order("created_at asc").
		Find(&businesses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": businesses})
}

// UpdateBusiness updates the caller's first business profile.
func (h *BusinessHandler) UpdateBusiness(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var business models.Business
	err := h.db.Where("owner_user_id = ?", userID).
		Order("created_at asc").
		First(&business).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Business not found")
		}
		return err
	}

	var req businessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		business.Name = req.Name
	}
	if req.Description != "" {
		business.Description = req.Description
	}
	if req.ContactPhone != "" {
		business.ContactPhone = req.ContactPhone
	}
	if req.Logo != "" {
		business.Logo = req.Logo
	}

	if err := h.db.Save(&business).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": business})
}
