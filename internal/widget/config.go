package widget

import (
	"strings"
	"time"
)

// Polling bounds the readiness wait: at most MaxAttempts checks, Interval apart.
type Polling struct {
	MaxAttempts int
	Interval    time.Duration
}

// Config describes the third-party embed and the timing of the bootstrap.
type Config struct {
	ScriptID         string
	ScriptSrc        string
	ScriptDomain     string
	SuppressedRoutes []string

	Readiness Polling

	// SettleDelay is waited after the script load event before the widget
	// is considered ready to be polled.
	SettleDelay time.Duration

	// ScriptLoadTimeout bounds the wait for the load event. Zero waits forever.
	ScriptLoadTimeout time.Duration

	// TokenTimeout bounds the identity token request. Zero means no bound
	// beyond the token source's own.
	TokenTimeout time.Duration

	// IdentityEndpoint is the same-origin path the browser bootstrap posts to.
	IdentityEndpoint string
}

// DefaultConfig returns the production embed settings.
func DefaultConfig() Config {
	return Config{
		ScriptID:         "UvOz1MDei_eNhVbzbypYG",
		ScriptSrc:        "https://www.chatbase.co/embed.min.js",
		ScriptDomain:     "www.chatbase.co",
		SuppressedRoutes: []string{"/studio"},
		Readiness: Polling{
			MaxAttempts: 10,
			Interval:    200 * time.Millisecond,
		},
		SettleDelay:       500 * time.Millisecond,
		ScriptLoadTimeout: 15 * time.Second,
		TokenTimeout:      5 * time.Second,
		IdentityEndpoint:  "/api/identity-token",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScriptID == "" {
		c.ScriptID = d.ScriptID
	}
	if c.ScriptSrc == "" {
		c.ScriptSrc = d.ScriptSrc
	}
	if c.ScriptDomain == "" {
		c.ScriptDomain = d.ScriptDomain
	}
	if c.Readiness.MaxAttempts <= 0 {
		c.Readiness.MaxAttempts = d.Readiness.MaxAttempts
	}
	if c.Readiness.Interval <= 0 {
		c.Readiness.Interval = d.Readiness.Interval
	}
	if c.IdentityEndpoint == "" {
		c.IdentityEndpoint = d.IdentityEndpoint
	}
	return c
}

// Tag returns the script element the controller injects.
func (c Config) Tag() ScriptTag {
	return ScriptTag{ID: c.ScriptID, Src: c.ScriptSrc, Domain: c.ScriptDomain}
}

// RouteSuppressed reports whether path starts with any of the prefixes.
func RouteSuppressed(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Settings is the browser-facing projection of Config, serialized into the
// bootstrap script. It carries no secrets.
type Settings struct {
	ScriptID            string   `json:"scriptId"`
	ScriptSrc           string   `json:"scriptSrc"`
	ScriptDomain        string   `json:"scriptDomain"`
	SuppressedRoutes    []string `json:"suppressedRoutes"`
	ReadinessAttempts   int      `json:"readinessAttempts"`
	ReadinessIntervalMs int64    `json:"readinessIntervalMs"`
	SettleDelayMs       int64    `json:"settleDelayMs"`
	ScriptLoadTimeoutMs int64    `json:"scriptLoadTimeoutMs"`
	TokenTimeoutMs      int64    `json:"tokenTimeoutMs"`
	IdentityEndpoint    string   `json:"identityEndpoint"`
	Debug               bool     `json:"debug"`
}

// Settings returns the bootstrap settings with defaults applied.
func (c Config) Settings(debug bool) Settings {
	c = c.withDefaults()
	routes := c.SuppressedRoutes
	if routes == nil {
		routes = []string{}
	}
	return Settings{
		ScriptID:            c.ScriptID,
		ScriptSrc:           c.ScriptSrc,
		ScriptDomain:        c.ScriptDomain,
		SuppressedRoutes:    routes,
		ReadinessAttempts:   c.Readiness.MaxAttempts,
		ReadinessIntervalMs: c.Readiness.Interval.Milliseconds(),
		SettleDelayMs:       c.SettleDelay.Milliseconds(),
		ScriptLoadTimeoutMs: c.ScriptLoadTimeout.Milliseconds(),
		TokenTimeoutMs:      c.TokenTimeout.Milliseconds(),
		IdentityEndpoint:    c.IdentityEndpoint,
		Debug:               debug,
	}
}
