package http

import (
	"io/fs"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"futurion/web"
)

// HomeIndexAction serves the landing page, which loads the widget bootstrap.
func HomeIndexAction(ctx *cartridge.Context) error {
	page := web.IndexHTML()
	if page == nil {
		ctx.Logger.Error("Embedded landing page is missing")
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	ctx.Set("Content-Type", fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Send(page)
}

// PlaceholderImageAction serves the image used when content has no asset.
func PlaceholderImageAction(ctx *cartridge.Context) error {
	data, err := fs.ReadFile(web.Public(), "placeholder.svg")
	if err != nil {
		ctx.Logger.Error("Embedded placeholder image is missing", slog.Any("error", err))
		return ctx.SendStatus(fiber.StatusNotFound)
	}
	ctx.Set("Content-Type", "image/svg+xml")
	ctx.Set("Cache-Control", "public, max-age=86400")
	return ctx.Send(data)
}
