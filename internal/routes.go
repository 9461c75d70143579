package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"gorm.io/gorm"

	v1 "futurion/api/v1"
	"futurion/internal/config"
	"futurion/internal/http"
	"futurion/internal/http/middleware"
)

// publicCORSConfig is shared by the read-only content endpoints.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,HEAD,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept",
}

// newServices is replaced in tests.
var newServices = NewServices

// MountAppRoutes builds the services from the global configuration and
// mounts every route. It panics when the services cannot be built.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	var db *gorm.DB
	if dbManager := srv.GetDBManager(); dbManager != nil {
		db = dbManager.GetConnection()
	}

	services, err := newServices(cfg, db, logger, ServiceOverrides{})
	if err != nil {
		logger.Error("Failed to build services", slog.Any("error", err))
		panic(fmt.Errorf("failed to build services: %w", err))
	}
	MountRoutes(srv, services)
}

// MountRoutes mounts all application routes using cartridge's route API
func MountRoutes(srv *cartridge.Server, services *Services) {
	cfg := services.Config

	// ============================================
	// ENDPOINT PROTECTION
	// - Form and token endpoints: rate limiting (production only) and
	//   same-origin Sec-Fetch-Site, no CORS
	// - Content endpoints: permissive CORS, read only
	// ============================================

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Token requests happen once per page load and identity change
	tokenRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(30),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Form submissions send email, keep them scarce
	formRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(5),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	contentRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// ============================================
	// ROUTE CONFIGURATIONS
	// ============================================

	tokenConfig := &cartridge.RouteConfig{
		CustomMiddleware: append([]fiber.Handler{tokenRateLimiter}, middleware.SameOriginOnly()...),
	}

	formConfig := &cartridge.RouteConfig{
		CustomMiddleware: append([]fiber.Handler{formRateLimiter}, middleware.SameOriginOnly()...),
	}

	contentConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       publicCORSConfig,
		CustomMiddleware: []fiber.Handler{contentRateLimiter},
	}

	// Scripts are fetched with Sec-Fetch-Site: same-origin, but some
	// embedders load them cross-site
	scriptConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// === ROOT ROUTES ===
	srv.Get("/", http.HomeIndexAction)
	srv.Get("/placeholder.svg", http.PlaceholderImageAction)

	// Health check endpoint
	health := http.HealthIndexAction(services.Content)
	srv.Get("/_health", health)
	srv.Head("/_health", health)

	// === WIDGET ===
	srv.Get("/widget/bootstrap.js", v1.GetWidgetBootstrapHandler(services.Widget.Settings(!cfg.IsProduction())), scriptConfig)

	issueToken := v1.CreateIdentityTokenHandler(services.Identity)
	srv.Post("/api/identity-token", issueToken, tokenConfig)
	// Path used by the first deployment of the site
	srv.Post("/api/chatbase", issueToken, tokenConfig)

	// === FORMS ===
	srv.Post("/api/contact", v1.CreateContactHandler(services.Forms), formConfig)
	srv.Post("/api/subscribe", v1.CreateSubscriptionHandler(services.Forms), formConfig)

	// === CONTENT ===
	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}
	srv.Get("/api/posts", http.PostsIndexAction(services.Content), contentConfig)
	srv.Options("/api/posts", preflight, contentConfig)
	srv.Get("/api/posts/:slug", http.PostShowAction(services.Content), contentConfig)
	srv.Get("/api/categories", http.CategoriesIndexAction(services.Content), contentConfig)
	srv.Get("/api/case-studies", http.CaseStudiesIndexAction(services.Content), contentConfig)
	srv.Options("/api/case-studies", preflight, contentConfig)
	srv.Get("/api/case-studies/:slug", http.CaseStudyShowAction(services.Content), contentConfig)
}
