package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"futurion/internal/identity"
)

const (
	errUserIDRequired = "User ID is required"
	errServerConfig   = "Server configuration error"
	errHashFailed     = "Failed to generate hash"
)

// CreateIdentityTokenHandler issues the widget identity token for the user
// id in the request body.
func CreateIdentityTokenHandler(svc *identity.Service) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		if !svc.Configured() {
			ctx.Logger.Error("identity token endpoint called without a configured secret")
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errServerConfig})
		}

		userID, ok := parseUserID(ctx.Body())
		if !ok {
			ctx.Logger.Debug("identity token request without a user id")
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errUserIDRequired})
		}

		token, err := svc.IssueToken(ctx.UserContext(), userID)
		switch {
		case err == nil:
			return ctx.JSON(token)
		case errors.Is(err, identity.ErrInvalidRequest):
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errUserIDRequired})
		case errors.Is(err, identity.ErrMisconfigured):
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errServerConfig})
		default:
			ctx.Logger.Error("Failed to issue identity token", slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errHashFailed})
		}
	}
}

// parseUserID reads the userId member of a JSON object body. Malformed
// bodies and falsy values count as missing.
func parseUserID(body []byte) (string, bool) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return "", false
	}
	return identity.CoerceUserID(payload["userId"])
}
