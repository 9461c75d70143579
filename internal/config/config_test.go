package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppressedRoutes(t *testing.T) {
	c := &Config{WidgetSuppressedRoutes: " /studio, ,/admin "}
	assert.Equal(t, []string{"/studio", "/admin"}, c.SuppressedRoutes())

	c.WidgetSuppressedRoutes = ""
	assert.Empty(t, c.SuppressedRoutes())
}

func TestWidgetProjection(t *testing.T) {
	c := &Config{
		WidgetSecret:              "do-not-copy",
		WidgetScriptID:            "bot-id",
		WidgetScriptSrc:           "https://widget.example/embed.js",
		WidgetDomain:              "widget.example",
		WidgetSuppressedRoutes:    "/studio",
		WidgetReadinessAttempts:   10,
		WidgetReadinessIntervalMs: 200,
		WidgetSettleDelayMs:       500,
		WidgetScriptLoadTimeoutMs: 15000,
		WidgetTokenTimeoutMs:      5000,
		WidgetIdentityEndpoint:    "/api/identity-token",
	}

	w := c.Widget()
	assert.Equal(t, "bot-id", w.ScriptID)
	assert.Equal(t, 10, w.Readiness.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, w.Readiness.Interval)
	assert.Equal(t, 500*time.Millisecond, w.SettleDelay)
	assert.Equal(t, 15*time.Second, w.ScriptLoadTimeout)
	assert.Equal(t, []string{"/studio"}, w.SuppressedRoutes)
	assert.NotContains(t, w.ScriptSrc+w.ScriptDomain+w.IdentityEndpoint, "do-not-copy")
}

func TestSubscribeRecipientFallsBack(t *testing.T) {
	c := &Config{ResendTo: "team@example.com"}
	assert.Equal(t, "team@example.com", c.SubscribeRecipient())

	c.ResendSubscribeTo = "news@example.com"
	assert.Equal(t, "news@example.com", c.SubscribeRecipient())
}

func TestValidate(t *testing.T) {
	base := Config{
		Environment:               Development,
		DatabaseType:              SQLiteDatabase,
		WidgetReadinessAttempts:   10,
		WidgetReadinessIntervalMs: 200,
	}
	require.NoError(t, base.validate())

	bad := base
	bad.Environment = "staging"
	assert.Error(t, bad.validate())

	bad = base
	bad.WidgetReadinessAttempts = 0
	assert.Error(t, bad.validate())
}

func TestDurations(t *testing.T) {
	c := &Config{ContentCacheTTLSeconds: 300, ContentRequestTimeoutMs: 4000}
	assert.Equal(t, 5*time.Minute, c.ContentCacheTTL())
	assert.Equal(t, 4*time.Second, c.ContentRequestTimeout())
}
