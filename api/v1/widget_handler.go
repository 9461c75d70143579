package v1

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"futurion/internal/widget"
)

//go:embed bootstrap.js
var bootstrapTemplate string

// RenderBootstrapScript renders the browser bootstrap for the given settings.
func RenderBootstrapScript(settings widget.Settings) ([]byte, error) {
	tmpl, err := template.New("bootstrap.js").Parse(bootstrapTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse bootstrap template: %w", err)
	}

	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode widget settings: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"Settings": string(encoded)}); err != nil {
		return nil, fmt.Errorf("render bootstrap template: %w", err)
	}
	return buf.Bytes(), nil
}

// GetWidgetBootstrapHandler serves the widget bootstrap script. The script is
// rendered once; a render failure is reported on every request.
func GetWidgetBootstrapHandler(settings widget.Settings) func(*cartridge.Context) error {
	content, renderErr := RenderBootstrapScript(settings)
	etag := generateETag(content)

	return func(ctx *cartridge.Context) error {
		if renderErr != nil {
			ctx.Logger.Error("Failed to render widget bootstrap", slog.Any("error", renderErr))
			return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		// Check if the client has the latest version via If-None-Match
		if ctx.Get("If-None-Match") == etag {
			ctx.Logger.Debug("ETag match, returning 304",
				slog.String("etag", etag),
				slog.String("path", ctx.Path()))
			return ctx.Status(fiber.StatusNotModified).Send(nil)
		}

		ctx.Set("Content-Type", "application/javascript")
		ctx.Set("Cache-Control", "public, max-age=3600") // 1 hour
		ctx.Set("ETag", etag)
		ctx.Set("Cross-Origin-Resource-Policy", "same-origin")
		return ctx.Send(content)
	}
}
