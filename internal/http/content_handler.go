package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"futurion/internal/content"
)

const errContentNotFound = "Not found"

// PostsIndexAction lists blog posts, optionally filtered with ?category=slug.
func PostsIndexAction(catalog *content.Catalog) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		if category := ctx.Query("category"); category != "" {
			return ctx.JSON(fiber.Map{"posts": catalog.PostsByCategory(ctx.UserContext(), category)})
		}
		return ctx.JSON(catalog.Blog(ctx.UserContext()))
	}
}

// PostShowAction returns one post and its related posts.
func PostShowAction(catalog *content.Catalog) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		slug := ctx.Params("slug")
		post, related, err := catalog.Post(ctx.UserContext(), slug)
		if err != nil {
			return contentError(ctx, slug, err)
		}
		return ctx.JSON(fiber.Map{"post": post, "related": emptyIfNil(related)})
	}
}

// CategoriesIndexAction lists blog categories.
func CategoriesIndexAction(catalog *content.Catalog) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		return ctx.JSON(fiber.Map{"categories": catalog.Categories(ctx.UserContext())})
	}
}

// CaseStudiesIndexAction lists case studies; ?featured=true returns the
// home page selection.
func CaseStudiesIndexAction(catalog *content.Catalog) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		if ctx.QueryBool("featured") {
			return ctx.JSON(fiber.Map{"caseStudies": catalog.FeaturedCaseStudies(ctx.UserContext())})
		}
		return ctx.JSON(fiber.Map{"caseStudies": catalog.CaseStudies(ctx.UserContext())})
	}
}

// CaseStudyShowAction returns one case study and related ones.
func CaseStudyShowAction(catalog *content.Catalog) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		slug := ctx.Params("slug")
		study, related, err := catalog.CaseStudy(ctx.UserContext(), slug)
		if err != nil {
			return contentError(ctx, slug, err)
		}
		return ctx.JSON(fiber.Map{"caseStudy": study, "related": emptyIfNil(related)})
	}
}

func contentError(ctx *cartridge.Context, slug string, err error) error {
	if errors.Is(err, content.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": errContentNotFound})
	}
	ctx.Logger.Error("Content lookup failed", slog.String("slug", slug), slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
