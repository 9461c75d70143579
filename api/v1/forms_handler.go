package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"futurion/internal/forms"
	"futurion/internal/mailer"
)

const (
	errInvalidContact      = "Datos inválidos"
	errDomainNotVerified   = "Dominio no verificado. Configura y verifica el dominio en Resend o usa temporalmente onboarding@resend.dev."
	errContactSendFailed   = "Error enviando el correo"
	errContactInternal     = "Error interno del servidor"
	errInvalidSubscriber   = "Email inválido"
	errSubscribeSendFailed = "Error enviando correo"
	errSubscribeInternal   = "Error interno"
)

// CreateContactHandler stores a contact form submission and notifies the team.
func CreateContactHandler(pipeline *forms.Pipeline) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var input forms.ContactInput
		if err := ctx.BodyParser(&input); err != nil {
			ctx.Logger.Debug("Failed to parse contact request", slog.Any("error", err))
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":   errInvalidContact,
				"details": fiber.Map{"formErrors": []string{"Invalid JSON"}, "fieldErrors": fiber.Map{}},
			})
		}

		_, err := pipeline.SubmitContact(ctx.UserContext(), input)
		if err == nil {
			return ctx.JSON(fiber.Map{"success": true})
		}

		var verrs forms.ValidationErrors
		if errors.As(err, &verrs) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error":   errInvalidContact,
				"details": verrs.Details(),
			})
		}

		var derr *forms.DeliveryError
		if errors.As(err, &derr) {
			if mailer.IsDomainNotVerified(err) {
				return ctx.Status(http.StatusForbidden).JSON(fiber.Map{"error": errDomainNotVerified})
			}
			msg := errContactSendFailed
			var perr *mailer.ProviderError
			if errors.As(err, &perr) && perr.Message != "" {
				msg = perr.Message
			}
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": msg})
		}

		ctx.Logger.Error("Failed to process contact form", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errContactInternal})
	}
}

// CreateSubscriptionHandler stores a newsletter subscription and notifies the team.
func CreateSubscriptionHandler(pipeline *forms.Pipeline) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var input forms.SubscribeInput
		if err := ctx.BodyParser(&input); err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidSubscriber})
		}

		_, err := pipeline.Subscribe(ctx.UserContext(), input)
		if err == nil {
			return ctx.JSON(fiber.Map{"success": true})
		}

		var verrs forms.ValidationErrors
		if errors.As(err, &verrs) {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidSubscriber})
		}

		var derr *forms.DeliveryError
		if errors.As(err, &derr) {
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errSubscribeSendFailed})
		}

		ctx.Logger.Error("Failed to process subscription", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errSubscribeInternal})
	}
}
