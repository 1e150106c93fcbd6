package handlers

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/config"
	"github.com/example/minglin/internal/geo"
	"github.com/example/minglin/internal/middleware"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
	"github.com/example/minglin/internal/utils"
)

// DealHandler manages deal endpoints: owner CRUD, customer discovery and
// interaction recording.
type DealHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	notifier  *services.Notifier
	analytics *services.AnalyticsService
}

// NewDealHandler constructs a DealHandler.
func NewDealHandler(db *gorm.DB, cfg *config.Config, notifier *services.Notifier, analytics *services.AnalyticsService) *DealHandler {
	return &DealHandler{db: db, cfg: cfg, notifier: notifier, analytics: analytics}
}

type dealRequest struct {
	Title       string   `json:"title" form:"title"`
	Description string   `json:"description" form:"description"`
	Category    string   `json:"category" form:"category"`
	CTA         string   `json:"cta" form:"cta"`
	StartTime   string   `json:"start_time" form:"start_time"`
	EndTime     string   `json:"end_time" form:"end_time"`
	Latitude    *float64 `json:"latitude" form:"latitude"`
	Longitude   *float64 `json:"longitude" form:"longitude"`
	IsActive    *bool    `json:"is_active" form:"is_active"`
}

// CreateDeal lets a business owner publish a deal. When no explicit location
// is supplied but an image was uploaded, coordinates embedded in the image
// metadata are used as a fallback; images without GPS tags simply produce a
// deal with no location.
func (h *DealHandler) CreateDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	business, err := h.firstBusinessOf(userID)
	if err != nil {
		return err
	}

	var req dealRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "title is required")
	}

	startTime, endTime, err := parseDealWindow(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}

	deal := models.Deal{
		BusinessID:  business.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CTA:         req.CTA,
		StartTime:   startTime,
		EndTime:     endTime,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsActive:    true,
	}
	if req.IsActive != nil {
		deal.IsActive = *req.IsActive
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		deal.Image = filepath.Join(h.cfg.UploadDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), file.Filename))
		if err := c.SaveFile(file, deal.Image); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store image")
		}

		if !deal.HasLocation() {
			if reader, err := file.Open(); err == nil {
				if lat, lon, ok := geo.ExtractGPS(reader); ok {
					deal.Latitude = &lat
					deal.Longitude = &lon
				}
				reader.Close()
			}
		}
	}

	if err := h.db.Create(&deal).Error; err != nil {
		return err
	}

	go h.notifier.DealCreated(&deal, business.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    serializeDeal(deal, nil, nil),
	})
}

// CustomerDeals lists live deals for customers, optionally filtered by
// category and by distance from a point. With a radius the result is ordered
// nearest first; with a point the response carries a distance estimate.
func (h *DealHandler) CustomerDeals(c *fiber.Ctx) error {
	query := h.db.Preload("Business").
		Where("is_active = ? AND end_time >= ?", true, time.Now())

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var deals []models.Deal
	if err := query.Find(&deals).Error; err != nil {
		return err
	}

	lat, latOK := parseFloatQuery(c, "lat")
	lon, lonOK := parseFloatQuery(c, "lon")
	radius, radiusOK := parseFloatQuery(c, "radius")

	if latOK && lonOK && radiusOK {
		deals = geo.FilterByRadius(deals, lat, lon, radius)
	}

	var userLat, userLon *float64
	if latOK && lonOK {
		userLat, userLon = &lat, &lon
	}

	data := make([]fiber.Map, 0, len(deals))
	for _, deal := range deals {
		data = append(data, serializeDeal(deal, userLat, userLon))
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

// MyDeals lists every deal belonging to the caller's businesses.
func (h *DealHandler) MyDeals(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)

	var deals []models.Deal
	if err := h.db.
		Joins("JOIN businesses ON businesses.id = deals.business_id").
		Where("businesses.owner_user_id = ?", userID).
		Limit(pg.Limit).Offset(pg.Offset).
		Order("deals.created_at desc").
		Find(&deals).Error; err != nil {
		return err
	}

	data := make([]fiber.Map, 0, len(deals))
	for _, deal := range deals {
		data = append(data, serializeDeal(deal, nil, nil))
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

// GetDeal returns one of the caller's own deals.
func (h *DealHandler) GetDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	deal, err := h.ownedDeal(c, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": serializeDeal(*deal, nil, nil)})
}

// UpdateDeal applies partial updates to a deal owned by the caller.
func (h *DealHandler) UpdateDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	deal, err := h.ownedDeal(c, userID)
	if err != nil {
		return err
	}

	var req dealRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title != "" {
		deal.Title = req.Title
	}
	if req.Description != "" {
		deal.Description = req.Description
	}
	if req.Category != "" {
		deal.Category = req.Category
	}
	if req.CTA != "" {
		deal.CTA = req.CTA
	}
	if req.StartTime != "" || req.EndTime != "" {
		start, end := deal.StartTime, deal.EndTime
		if req.StartTime != "" {
			if start, err = parseTimeField(req.StartTime, "start_time"); err != nil {
				return err
			}
		}
		if req.EndTime != "" {
			if end, err = parseTimeField(req.EndTime, "end_time"); err != nil {
				return err
			}
		}
		if end.Before(start) {
			return fiber.NewError(fiber.StatusBadRequest, "end_time must not be before start_time")
		}
		deal.StartTime, deal.EndTime = start, end
	}
	if req.Latitude != nil && req.Longitude != nil {
		deal.Latitude = req.Latitude
		deal.Longitude = req.Longitude
	}
	if req.IsActive != nil {
		deal.IsActive = *req.IsActive
	}

	if err := h.db.Save(deal).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": serializeDeal(*deal, nil, nil)})
}

// DeleteDeal removes a deal owned by the caller and tells everyone who saved
// it. The fanout runs before the saved-deal rows are dropped since they are
// the audience.
func (h *DealHandler) DeleteDeal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	deal, err := h.ownedDeal(c, userID)
	if err != nil {
		return err
	}

	h.notifier.DealDeleted(deal)

	if err := h.db.Where("deal_id = ?", deal.ID).Delete(&models.SavedDeal{}).Error; err != nil {
		return err
	}
	if err := h.db.Delete(&models.Deal{}, "id = ?", deal.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Deal removed"})
}

type interactionRequest struct {
	Action string `json:"action"`
}

// RecordInteraction appends a view/click/save/unsave analytics event for a
// deal. The caller may be anonymous; for signed-in users view and click are
// counted at most once each.
func (h *DealHandler) RecordInteraction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req interactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	switch req.Action {
	case models.ActionView, models.ActionClick, models.ActionSave, models.ActionUnsave:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid action")
	}

	var deal models.Deal
	if err := h.db.First(&deal, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "deal not found")
		}
		return err
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetCurrentUserID(c); ok {
		userID = &id
	}

	recorded, err := h.analytics.Record(&deal, userID, req.Action, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "recorded": recorded})
}

func (h *DealHandler) firstBusinessOf(userID uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := h.db.Where("owner_user_id = ?", userID).
		Order("created_at asc").
		First(&business).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "No business profile found")
		}
		return nil, err
	}
	return &business, nil
}

// ownedDeal loads the deal from the path parameter and enforces ownership.
// A deal that exists but belongs to someone else is a 403, not a 404.
func (h *DealHandler) ownedDeal(c *fiber.Ctx, userID uuid.UUID) (*models.Deal, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var deal models.Deal
	if err := h.db.First(&deal, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.NewError(fiber.StatusNotFound, "deal not found")
		}
		return nil, err
	}

	var business models.Business
	if err := h.db.First(&business, "id = ?", deal.BusinessID).Error; err != nil {
		return nil, err
	}
	if business.OwnerUserID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Not authorized")
	}

	return &deal, nil
}

// serializeDeal renders a deal with its location as {lat, lon} and, when the
// caller supplied a point, a distance estimate in km rounded to one decimal.
func serializeDeal(deal models.Deal, userLat, userLon *float64) fiber.Map {
	data := fiber.Map{
		"id":          deal.ID,
		"business_id": deal.BusinessID,
		"title":       deal.Title,
		"description": deal.Description,
		"image":       deal.Image,
		"category":    deal.Category,
		"cta":         deal.CTA,
		"start_time":  deal.StartTime,
		"end_time":    deal.EndTime,
		"is_active":   deal.IsActive,
		"views":       deal.Views,
		"clicks":      deal.Clicks,
		"created_at":  deal.CreatedAt,
		"updated_at":  deal.UpdatedAt,
	}

	if deal.Business != nil {
		data["business"] = deal.Business
	}

	if deal.HasLocation() {
		data["location"] = fiber.Map{"lat": *deal.Latitude, "lon": *deal.Longitude}
		if userLat != nil && userLon != nil {
			data["distance"] = geo.RoundKm(
				geo.ApproxDistanceKm(*userLat, *userLon, *deal.Latitude, *deal.Longitude))
		}
	} else {
		data["location"] = nil
	}

	return data
}

func parseDealWindow(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start_time and end_time are required")
	}

	start, err := parseTimeField(startStr, "start_time")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTimeField(endStr, "end_time")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end_time must not be before start_time")
	}
	return start, end, nil
}

func parseTimeField(value, field string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid "+field)
	}
	return parsed, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
