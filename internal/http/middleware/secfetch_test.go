package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newGuardedApp() *fiber.App {
	app := fiber.New()
	handlers := append(SameOriginOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/api/identity-token", handlers...)
	app.Get("/api/identity-token", handlers...)
	return app
}

// TestSameOriginOnly verifies that only the site's own pages can post
func TestSameOriginOnly(t *testing.T) {
	app := newGuardedApp()

	tests := []struct {
		name               string
		secFetchSiteHeader string
		expectedStatus     int
	}{
		{name: "Allow same-origin browser request", secFetchSiteHeader: "same-origin", expectedStatus: fiber.StatusOK},
		{name: "Allow none (direct navigation)", secFetchSiteHeader: "none", expectedStatus: fiber.StatusOK},
		{name: "Block same-site request", secFetchSiteHeader: "same-site", expectedStatus: fiber.StatusForbidden},
		{name: "Block cross-site request", secFetchSiteHeader: "cross-site", expectedStatus: fiber.StatusForbidden},
		{name: "Block request without Sec-Fetch-Site", secFetchSiteHeader: "", expectedStatus: fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/identity-token", strings.NewReader(`{"userId":"u1"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.secFetchSiteHeader != "" {
				req.Header.Set("Sec-Fetch-Site", tt.secFetchSiteHeader)
			}

			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

// TestServerToServerBlocking shows that a spoofed Origin does not help
// clients that cannot set Sec-Fetch-Site
func TestServerToServerBlocking(t *testing.T) {
	app := newGuardedApp()

	for _, ua := range []string{"curl/7.68.0", "PostmanRuntime/7.29.0", "python-requests/2.28.1", "Wget/1.20.3"} {
		t.Run(ua, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/identity-token", strings.NewReader(`{"userId":"u1"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", ua)
			req.Header.Set("Origin", "https://futurionpartners.co")

			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestRequireSecFetchSiteIgnoresOtherMethods(t *testing.T) {
	app := newGuardedApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/identity-token", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
