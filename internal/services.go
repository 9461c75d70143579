package internal

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"futurion/internal/config"
	"futurion/internal/content"
	"futurion/internal/forms"
	"futurion/internal/identity"
	"futurion/internal/mailer"
	"futurion/internal/widget"
)

// Services holds the domain services shared by the route handlers.
type Services struct {
	Config   *config.Config
	Identity *identity.Service
	Forms    *forms.Pipeline
	Content  *content.Catalog
	Widget   widget.Config
}

// ServiceOverrides replaces outbound integrations, mainly in tests.
type ServiceOverrides struct {
	Sender mailer.Sender
	Store  content.Store
}

// NewServices builds the domain services from configuration.
func NewServices(cfg *config.Config, db *gorm.DB, logger *slog.Logger, overrides ServiceOverrides) (*Services, error) {
	sender := overrides.Sender
	if sender == nil {
		resend := mailer.NewResend(cfg.ResendAPIKey, cfg.ResendBaseURL, logger)
		if resend.Configured() {
			sender = resend
		} else {
			logger.Warn("Resend API key not set, form notifications are disabled")
		}
	}

	store := overrides.Store
	if store == nil {
		store = content.NewSanityStore(content.SanityConfig{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			UseCDN:     cfg.SanityUseCDN,
			BaseURL:    cfg.SanityBaseURL,
			Timeout:    cfg.ContentRequestTimeout(),
		}, logger)
	}

	catalog, err := content.NewCatalog(content.Options{
		Store:   store,
		TTL:     cfg.ContentCacheTTL(),
		Timeout: cfg.ContentRequestTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content catalog: %w", err)
	}

	pipeline, err := forms.NewPipeline(db, sender, forms.Recipients{
		From:        cfg.ResendFrom,
		ContactTo:   cfg.ResendTo,
		SubscribeTo: cfg.SubscribeRecipient(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize forms: %w", err)
	}

	idSvc := identity.NewService(cfg.WidgetSecret, logger)
	if !idSvc.Configured() {
		logger.Warn("Widget secret not set, identity tokens will be refused")
	}

	return &Services{
		Config:   cfg,
		Identity: idSvc,
		Forms:    pipeline,
		Content:  catalog,
		Widget:   cfg.Widget(),
	}, nil
}
