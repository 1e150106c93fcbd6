package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/middleware"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
	"github.com/example/minglin/internal/utils"
)

// RequestHandler manages customer request endpoints: customers broadcast
// what they are looking for, businesses browse active requests.
type RequestHandler struct {
	db       *gorm.DB
	notifier *services.Notifier
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(db *gorm.DB, notifier *services.Notifier) *RequestHandler {
	return &RequestHandler{db: db, notifier: notifier}
}

type customerRequestPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	BudgetMin   float64  `json:"budget_min"`
	BudgetMax   float64  `json:"budget_max"`
	Urgency     string   `json:"urgency"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ExpiresAt   string   `json:"expires_at"`
	IsActive    *bool    `json:"is_active"`
}

// CreateRequest publishes a customer request and notifies businesses.
func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req customerRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "title is required")
	}

	request := models.CustomerRequest{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Urgency:     req.Urgency,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsActive:    true,
	}

	if req.ExpiresAt != "" {
		expires, err := parseTimeField(req.ExpiresAt, "expires_at")
		if err != nil {
			return err
		}
		request.ExpiresAt = &expires
	}

	if err := h.db.Create(&request).Error; err != nil {
		return err
	}

	go h.notifier.RequestCreated(&request)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": request})
}

// ListActiveRequests returns active, unexpired requests for businesses to
// browse, optionally filtered by category.
func (h *RequestHandler) ListActiveRequests(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.CustomerRequest{}).
		Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at >= ?", time.Now())

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var requests []models.CustomerRequest
	if err := query.Preload("User").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&requests).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": requests})
}

// MyRequests lists the caller's own requests.
func (h *RequestHandler) MyRequests(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var requests []models.CustomerRequest
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&requests).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": requests})
}

// UpdateRequest applies partial updates to one of the caller's requests.
func (h *RequestHandler) UpdateRequest(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	request, err := h.ownedRequest(c, userID)
	if err != nil {
		return err
	}

	var req customerRequestPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title != "" {
		request.Title = req.Title
	}
	if req.Description != "" {
		request.Description = req.Description
	}
	if req.Category != "" {
		request.Category = req.Category
	}
	if req.Urgency != "" {
		request.Urgency = req.Urgency
	}
	if req.BudgetMin != 0 {
		request.BudgetMin = req.BudgetMin
	}
	if req.BudgetMax != 0 {
		request.BudgetMax = req.BudgetMax
	}
	if req.Latitude != nil && req.Longitude != nil {
		request.Latitude = req.Latitude
		request.Longitude = req.Longitude
	}
	if req.IsActive != nil {
		request.IsActive = *req.IsActive
	}
	if req.ExpiresAt != "" {
		expires, err := parseTimeField(req.ExpiresAt, "expires_at")
		if err != nil {
			return err
		}
		request.ExpiresAt = &expires
	}

	if err := h.db.Save(request).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": request})
}

// DeleteRequest removes one of the caller's requests.
func (h *RequestHandler) DeleteRequest(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	request, err := h.ownedRequest(c, userID)
	if err != nil {
		return err
	}

	if err := h.db.Delete(&models.CustomerRequest{}, "id = ?", request.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "request removed"})
}

func (h *RequestHandler) ownedRequest(c *fiber.Ctx, userID uuid.UUID) (*models.CustomerRequest, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var request models.CustomerRequest
	if err := h.db.First(&request, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "request not found")
		}
		return nil, err
	}

	if request.UserID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Not authorized")
	}
	return &request, nil
}
