package handlers

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/config"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
	"github.com/example/minglin/internal/utils"
)

const otpTTL = 10 * time.Minute

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
	sms *services.SMSService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, sms *services.SMSService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, sms: sms}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// SendOTP issues a fresh one-time code for the phone number. Any previously
// issued code for the same phone is discarded first, so only the newest code
// can ever verify. SMS dispatch failure is logged but does not fail the
// request; the code remains verifiable.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleBusiness {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role")
	}

	code, err := generateOTPCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate code")
	}

	// Replace, never accumulate: at most one live code per phone.
	if err := h.db.Where("phone = ?", req.Phone).Delete(&models.OTP{}).Error; err != nil {
		return err
	}

	otp := models.OTP{
		Phone:     req.Phone,
		Code:      code,
		Role:      role,
		ExpiresAt: time.Now().Add(otpTTL),
	}
	if err := h.db.Create(&otp).Error; err != nil {
		return err
	}

	if err := h.sms.Send(req.Phone, fmt.Sprintf("Your Minglin verification code is %s", code)); err != nil {
		log.Printf("[Auth] OTP SMS to %s failed: %v", req.Phone, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP sent",
	})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyOTP consumes a one-time code. A code verifies exactly once: replays
// and superseded codes fail with "Invalid OTP", stale codes with "OTP
// expired". On success the user is created (first login) or updated, and a
// token pair is issued.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Phone == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone and code are required")
	}

	var otp models.OTP
	err := h.db.Where("phone = ? AND code = ? AND used = ?", req.Phone, req.Code, false).
		First(&otp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Invalid OTP")
		}
		return err
	}

	if time.Now().After(otp.ExpiresAt) {
		return fiber.NewError(fiber.StatusBadRequest, "OTP expired")
	}

	// Consume in one statement so two concurrent verifications of the same
	// code cannot both succeed; the loser sees zero rows updated.
	now := time.Now()
	res := h.db.Model(&models.OTP{}).
		Where("id = ? AND used = ?", otp.ID, false).
		Updates(map[string]interface{}{"used": true, "used_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Invalid OTP")
	}

	user, err := h.upsertUserByPhone(req.Phone, otp.Role)
	if err != nil {
		return err
	}

	tokens, err := utils.GenerateTokenPair(h.cfg.JWTSecret, user.ID, user.Role,
		h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (h *AuthHandler) upsertUserByPhone(phone, role string) (*models.User, error) {
	var user models.User
	err := h.db.Where("phone = ?", phone).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{Phone: phone, Role: role, PushEnabled: true}
		if err := h.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	if role != "" && user.Role != role {
		user.Role = role
		if err := h.db.Save(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Register creates a new user account with a password.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Phone == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	if req.Password != req.Password2 {
		return fiber.NewError(fiber.StatusBadRequest, "Passwords don't match")
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleBusiness {
		return fiber.NewError(fiber.StatusBadRequest, "invalid role")
	}

	var existing models.User
	if err := h.db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         role,
		PasswordHash: passwordHash,
		PushEnabled:  true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	tokens, err := utils.GenerateTokenPair(h.cfg.JWTSecret, user.ID, user.Role,
		h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing user by phone and password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	tokens, err := utils.GenerateTokenPair(h.cfg.JWTSecret, user.ID, user.Role,
		h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, _, err := utils.ParseRefreshToken(h.cfg.JWTSecret, req.RefreshToken)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
		}
		return err
	}

	tokens, err := utils.GenerateTokenPair(h.cfg.JWTSecret, user.ID, user.Role,
		h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func generateOTPCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
