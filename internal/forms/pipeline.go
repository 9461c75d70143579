// Package forms handles the contact and newsletter forms: validation,
// storage, the notification email and the recorded delivery outcome.
package forms

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"futurion/internal/mailer"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	contactSubjectPrefix = "Nuevo mensaje de contacto: "
	subscribeSubject     = "Nueva suscripción al newsletter"
)

// ErrNoRecipient is returned when no notification inbox is configured.
var ErrNoRecipient = errors.New("forms: no notification recipient configured")

// DeliveryError marks a failure to hand the notification to the provider.
// The submission itself was stored.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return "forms: notification delivery failed: " + e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }

// Recipients configures the notification addresses.
type Recipients struct {
	From        string
	ContactTo   string
	SubscribeTo string
}

// Pipeline processes form submissions.
type Pipeline struct {
	db         *gorm.DB
	sender     mailer.Sender
	recipients Recipients
	views      *html.Engine
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline creates a pipeline and parses the notification templates.
func NewPipeline(db *gorm.DB, sender mailer.Sender, recipients Recipients, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("forms: templates: %w", err)
	}
	views := html.NewFileSystem(http.FS(sub), ".html")
	if err := views.Load(); err != nil {
		return nil, fmt.Errorf("forms: load templates: %w", err)
	}
	return &Pipeline{
		db:         db,
		sender:     sender,
		recipients: recipients,
		views:      views,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

type contactView struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Service string
	Country string
	Message string
}

// SubmitContact validates, stores and forwards a contact message. A
// ValidationErrors result means nothing was stored; a *DeliveryError means
// the message was stored but the notification failed.
func (p *Pipeline) SubmitContact(ctx context.Context, in ContactInput) (*ContactMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	msg := &ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   optional(in.Phone),
		Company: optional(in.Company),
		Service: optional(in.Service),
		Country: optional(in.Country),
		Message: in.Message,
	}
	err := sqlite.PerformWrite(p.logger, p.db, func(tx *gorm.DB) error {
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("forms: store contact message: %w", err)
	}

	body, err := p.render("contact", contactView{
		Name:    msg.Name,
		Email:   msg.Email,
		Phone:   msg.Phone,
		Company: msg.Company,
		Service: msg.Service,
		Country: msg.Country,
		Message: msg.Message,
	})
	if err != nil {
		return msg, err
	}

	providerID, sendErr := p.send(ctx, mailer.Message{
		From:    p.recipients.From,
		To:      recipientList(p.recipients.ContactTo),
		ReplyTo: msg.Email,
		Subject: contactSubjectPrefix + msg.Name,
		HTML:    body,
	})
	p.recordDelivery(&ContactMessage{}, msg.ID, providerID, sendErr)
	if sendErr != nil {
		p.logger.Error("contact notification failed",
			slog.Uint64("contact_id", uint64(msg.ID)),
			slog.Any("error", sendErr),
		)
		return msg, &DeliveryError{Err: sendErr}
	}

	p.logger.Info("contact message received", slog.Uint64("contact_id", uint64(msg.ID)))
	return msg, nil
}

// Subscribe validates and stores a newsletter address, then notifies the
// team inbox. Repeat subscriptions update the existing row.
func (p *Pipeline) Subscribe(ctx context.Context, in SubscribeInput) (*Subscriber, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	email := strings.ToLower(in.Email)
	now := p.now()
	sub := &Subscriber{}
	err := sqlite.PerformWrite(p.logger, p.db, func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			*sub = Subscriber{Email: email, LastSubscribedAt: now}
			return tx.Create(sub).Error
		case err != nil:
			return err
		default:
			sub.LastSubscribedAt = now
			return tx.Model(sub).Update("last_subscribed_at", now).Error
		}
	})
	if err != nil {
		return nil, fmt.Errorf("forms: store subscriber: %w", err)
	}

	body, err := p.render("subscribe", struct{ Email string }{Email: sub.Email})
	if err != nil {
		return sub, err
	}

	providerID, sendErr := p.send(ctx, mailer.Message{
		From:    p.recipients.From,
		To:      recipientList(p.recipients.SubscribeTo),
		Subject: subscribeSubject,
		HTML:    body,
	})
	p.recordDelivery(&Subscriber{}, sub.ID, providerID, sendErr)
	if sendErr != nil {
		p.logger.Error("subscription notification failed",
			slog.Uint64("subscriber_id", uint64(sub.ID)),
			slog.Any("error", sendErr),
		)
		return sub, &DeliveryError{Err: sendErr}
	}

	p.logger.Info("newsletter subscription received", slog.Uint64("subscriber_id", uint64(sub.ID)))
	return sub, nil
}

func (p *Pipeline) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := p.views.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("forms: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (p *Pipeline) send(ctx context.Context, msg mailer.Message) (string, error) {
	if p.sender == nil {
		return "", mailer.ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return "", ErrNoRecipient
	}
	return p.sender.Send(ctx, msg)
}

// recordDelivery stores the outcome on the row. Failures are logged only;
// the submission result does not depend on it.
func (p *Pipeline) recordDelivery(model any, id uint, providerID string, sendErr error) {
	updates := map[string]any{}
	if sendErr != nil {
		updates["delivery_error"] = sendErr.Error()
	} else {
		updates["delivered_at"] = p.now()
		updates["provider_message_id"] = providerID
		updates["delivery_error"] = ""
	}

	err := sqlite.PerformWrite(p.logger, p.db, func(tx *gorm.DB) error {
		return tx.Model(model).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		p.logger.Warn("failed to record delivery outcome", slog.Uint64("id", uint64(id)), slog.Any("error", err))
	}
}

func recipientList(addr string) []string {
	var out []string
	for _, a := range strings.Split(addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
