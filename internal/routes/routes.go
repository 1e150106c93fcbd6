package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/example/minglin/internal/config"
	"github.com/example/minglin/internal/handlers"
	"github.com/example/minglin/internal/middleware"
	"github.com/example/minglin/internal/models"
	"github.com/example/minglin/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	smsService := services.NewSMSService(cfg)
	notifier := services.NewNotifier(db, smsService)
	analytics := services.NewAnalyticsService(db, notifier)

	authHandler := handlers.NewAuthHandler(db, cfg, smsService)
	dealHandler := handlers.NewDealHandler(db, cfg, notifier, analytics)
	businessHandler := handlers.NewBusinessHandler(db, notifier)
	savedDealHandler := handlers.NewSavedDealHandler(db, analytics)
	notificationHandler := handlers.NewNotificationHandler(db)
	requestHandler := handlers.NewRequestHandler(db, notifier)
	profileHandler := handlers.NewProfileHandler(db)

	api := app.Group("/api")

	api.Get("/healthcheck", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "Minglin backend is running"})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/send-otp", limiter.New(limiter.Config{
		Max:        5,
		Expiration: time.Minute,
	}), authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Public customer discovery; interactions accept anonymous callers too.
	api.Get("/deals/customer", dealHandler.CustomerDeals)
	api.Post("/deals/:id/interactions", middleware.OptionalAuthMiddleware(cfg), dealHandler.RecordInteraction)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/deals/my", dealHandler.MyDeals)
	protected.Post("/deals", middleware.RequireRole(models.RoleBusiness), dealHandler.CreateDeal)
	protected.Get("/deals/:id", dealHandler.GetDeal)
	protected.Put("/deals/:id", dealHandler.UpdateDeal)
	protected.Delete("/deals/:id", dealHandler.DeleteDeal)

	protected.Post("/deals/:id/save", savedDealHandler.SaveDeal)
	protected.Delete("/deals/:id/save", savedDealHandler.UnsaveDeal)
	protected.Get("/saved-deals", savedDealHandler.ListSavedDeals)

	protected.Post("/businesses", middleware.RequireRole(models.RoleBusiness), businessHandler.CreateBusiness)
	protected.Get("/businesses/my", businessHandler.MyBusinesses)
	protected.Put("/businesses", businessHandler.UpdateBusiness)

	protected.Get("/notifications", notificationHandler.ListNotifications)
	protected.Put("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.Put("/notifications/:id/read", notificationHandler.MarkRead)

	protected.Post("/requests", middleware.RequireRole(models.RoleUser), requestHandler.CreateRequest)
	protected.Get("/requests", middleware.RequireRole(models.RoleBusiness), requestHandler.ListActiveRequests)
	protected.Get("/requests/my", requestHandler.MyRequests)
	protected.Put("/requests/:id", requestHandler.UpdateRequest)
	protected.Delete("/requests/:id", requestHandler.DeleteRequest)

	protected.Get("/users/me", profileHandler.Me)
	protected.Put("/users/me", profileHandler.UpdateProfile)
	protected.Put("/users/preferences", profileHandler.UpdatePreferences)
	protected.Put("/users/location", profileHandler.UpdateLocation)
}
