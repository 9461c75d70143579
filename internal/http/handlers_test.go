package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurion/internal"
	handlers "futurion/internal/http"
	"futurion/internal/testsupport"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testsupport.SetupTestDB(t)
	return testsupport.CreateMinimalTestApp(t, db, internal.ServiceOverrides{Sender: &testsupport.RecordingSender{}})
}

func get(t *testing.T, app *fiber.App, method, path string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHomeIndexAction(t *testing.T) {
	app := setupApp(t)

	resp, body := get(t, app, fiber.MethodGet, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "/widget/bootstrap.js")
}

func TestPlaceholderImageAction(t *testing.T) {
	app := setupApp(t)

	resp, body := get(t, app, fiber.MethodGet, "/placeholder.svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "image/svg+xml")
	assert.Contains(t, string(body), "<svg")
}

func TestHealthIndexAction(t *testing.T) {
	app := setupApp(t)

	resp, body := get(t, app, fiber.MethodGet, "/_health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health handlers.HealthStatus
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DBStatus)
	assert.Equal(t, "fixtures", health.ContentSource)

	resp, _ = get(t, app, fiber.MethodHead, "/_health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestContentActions(t *testing.T) {
	app := setupApp(t)

	t.Run("categories", func(t *testing.T) {
		resp, body := get(t, app, fiber.MethodGet, "/api/categories")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got struct {
			Categories []map[string]any `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Len(t, got.Categories, 3)
	})

	t.Run("all case studies", func(t *testing.T) {
		resp, body := get(t, app, fiber.MethodGet, "/api/case-studies")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got struct {
			CaseStudies []map[string]any `json:"caseStudies"`
		}
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Len(t, got.CaseStudies, 3)
		assert.Equal(t, "/placeholder.svg?height=300&width=500", got.CaseStudies[0]["imageUrl"])
	})

	t.Run("unknown case study", func(t *testing.T) {
		resp, body := get(t, app, fiber.MethodGet, "/api/case-studies/no-existe")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Not found"}`, string(body))
	})

	t.Run("related list is never null", func(t *testing.T) {
		resp, body := get(t, app, fiber.MethodGet, "/api/posts/futuro-trabajo-remoto-tecnologias")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "[]", string(got["related"]))
	})

	t.Run("cors headers on content", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/api/posts", nil)
		req.Header.Set("Origin", "https://partner.example")
		req.Header.Set("Sec-Fetch-Site", "same-origin")
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
