// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"futurion/internal/widget"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

const defaultPrivateKey = "88888888888888888888888888888888"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`
	Domain      string   `mapstructure:"domain"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Chat widget. WidgetSecret is server-only and must never be rendered.
	WidgetSecret              string `mapstructure:"widgetsecret"`
	WidgetScriptID            string `mapstructure:"widgetscriptid"`
	WidgetScriptSrc           string `mapstructure:"widgetscriptsrc"`
	WidgetDomain              string `mapstructure:"widgetdomain"`
	WidgetSuppressedRoutes    string `mapstructure:"widgetsuppressedroutes"`
	WidgetReadinessAttempts   int    `mapstructure:"widgetreadinessattempts"`
	WidgetReadinessIntervalMs int    `mapstructure:"widgetreadinessintervalms"`
	WidgetSettleDelayMs       int    `mapstructure:"widgetsettledelayms"`
	WidgetScriptLoadTimeoutMs int    `mapstructure:"widgetscriptloadtimeoutms"`
	WidgetTokenTimeoutMs      int    `mapstructure:"widgettokentimeoutms"`
	WidgetIdentityEndpoint    string `mapstructure:"widgetidentityendpoint"`

	// Outbound email (Resend)
	ResendAPIKey      string `mapstructure:"resendapikey"`
	ResendBaseURL     string `mapstructure:"resendbaseurl"`
	ResendFrom        string `mapstructure:"resendfrom"`
	ResendTo          string `mapstructure:"resendto"`
	ResendSubscribeTo string `mapstructure:"resendsubscribeto"`

	// Headless content store (Sanity)
	SanityProjectID         string `mapstructure:"sanityprojectid"`
	SanityDataset           string `mapstructure:"sanitydataset"`
	SanityAPIVersion        string `mapstructure:"sanityapiversion"`
	SanityUseCDN            bool   `mapstructure:"sanityusecdn"`
	SanityBaseURL           string `mapstructure:"sanitybaseurl"`
	ContentCacheTTLSeconds  int    `mapstructure:"contentcachettlseconds"`
	ContentRequestTimeoutMs int    `mapstructure:"contentrequesttimeoutms"`

	// Job scheduling settings
	CleanupIntervalHours int `mapstructure:"cleanupintervalhours"`

	// Data retention settings
	ContactRetentionDays int `mapstructure:"contactretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "futurion")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", defaultPrivateKey)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("publicdir", "web/public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)

		v.SetDefault("widgetsecret", "")
		v.SetDefault("widgetscriptid", "UvOz1MDei_eNhVbzbypYG")
		v.SetDefault("widgetscriptsrc", "https://www.chatbase.co/embed.min.js")
		v.SetDefault("widgetdomain", "www.chatbase.co")
		v.SetDefault("widgetsuppressedroutes", "/studio")
		v.SetDefault("widgetreadinessattempts", 10)
		v.SetDefault("widgetreadinessintervalms", 200)
		v.SetDefault("widgetsettledelayms", 500)
		v.SetDefault("widgetscriptloadtimeoutms", 15000)
		v.SetDefault("widgettokentimeoutms", 5000)
		v.SetDefault("widgetidentityendpoint", "/api/identity-token")

		v.SetDefault("resendapikey", "")
		v.SetDefault("resendbaseurl", "https://api.resend.com")
		v.SetDefault("resendfrom", "Contacto Futurion <contacto@futurionpartners.co>")
		v.SetDefault("resendto", "")
		v.SetDefault("resendsubscribeto", "")

		v.SetDefault("sanityprojectid", "")
		v.SetDefault("sanitydataset", "production")
		v.SetDefault("sanityapiversion", "2024-01-01")
		v.SetDefault("sanityusecdn", true)
		v.SetDefault("sanitybaseurl", "")
		v.SetDefault("contentcachettlseconds", 300)
		v.SetDefault("contentrequesttimeoutms", 4000)

		v.SetDefault("cleanupintervalhours", 24)
		v.SetDefault("contactretentiondays", 365)

		v.BindEnv("appname", "FUTURION_APP_NAME")
		v.BindEnv("appport", "FUTURION_APP_PORT", "PORT")
		v.BindEnv("environment", "FUTURION_ENV")
		v.BindEnv("loglevel", "FUTURION_LOG_LEVEL")
		v.BindEnv("privatekey", "FUTURION_PRIVATE_KEY")
		v.BindEnv("domain", "FUTURION_DOMAIN")
		v.BindEnv("storagepath", "FUTURION_STORAGE_PATH")
		v.BindEnv("publicdir", "FUTURION_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "FUTURION_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "FUTURION_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "FUTURION_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "FUTURION_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "FUTURION_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "FUTURION_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "FUTURION_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "FUTURION_DB_MAX_IDLE_CONNS")

		// The CHATBASE_* and RESEND_* names are the ones the site was first deployed with.
		v.BindEnv("widgetsecret", "FUTURION_WIDGET_SECRET", "CHATBASE_SECRET")
		v.BindEnv("widgetscriptid", "FUTURION_WIDGET_SCRIPT_ID")
		v.BindEnv("widgetscriptsrc", "FUTURION_WIDGET_SCRIPT_SRC")
		v.BindEnv("widgetdomain", "FUTURION_WIDGET_DOMAIN")
		v.BindEnv("widgetsuppressedroutes", "FUTURION_WIDGET_SUPPRESSED_ROUTES")
		v.BindEnv("widgetreadinessattempts", "FUTURION_WIDGET_READINESS_ATTEMPTS")
		v.BindEnv("widgetreadinessintervalms", "FUTURION_WIDGET_READINESS_INTERVAL_MS")
		v.BindEnv("widgetsettledelayms", "FUTURION_WIDGET_SETTLE_DELAY_MS")
		v.BindEnv("widgetscriptloadtimeoutms", "FUTURION_WIDGET_SCRIPT_LOAD_TIMEOUT_MS")
		v.BindEnv("widgettokentimeoutms", "FUTURION_WIDGET_TOKEN_TIMEOUT_MS")
		v.BindEnv("widgetidentityendpoint", "FUTURION_WIDGET_IDENTITY_ENDPOINT")

		v.BindEnv("resendapikey", "FUTURION_RESEND_API_KEY", "RESEND_API_KEY")
		v.BindEnv("resendbaseurl", "FUTURION_RESEND_BASE_URL")
		v.BindEnv("resendfrom", "FUTURION_RESEND_FROM", "RESEND_FROM")
		v.BindEnv("resendto", "FUTURION_RESEND_TO", "RESEND_TO")
		v.BindEnv("resendsubscribeto", "FUTURION_RESEND_SUBSCRIBE_TO", "RESEND_SUBSCRIBE_TO")

		v.BindEnv("sanityprojectid", "FUTURION_SANITY_PROJECT_ID", "NEXT_PUBLIC_SANITY_PROJECT_ID")
		v.BindEnv("sanitydataset", "FUTURION_SANITY_DATASET", "NEXT_PUBLIC_SANITY_DATASET")
		v.BindEnv("sanityapiversion", "FUTURION_SANITY_API_VERSION", "NEXT_PUBLIC_SANITY_API_VERSION")
		v.BindEnv("sanityusecdn", "FUTURION_SANITY_USE_CDN")
		v.BindEnv("sanitybaseurl", "FUTURION_SANITY_BASE_URL")
		v.BindEnv("contentcachettlseconds", "FUTURION_CONTENT_CACHE_TTL_SECONDS")
		v.BindEnv("contentrequesttimeoutms", "FUTURION_CONTENT_REQUEST_TIMEOUT_MS")

		v.BindEnv("cleanupintervalhours", "FUTURION_CLEANUP_INTERVAL_HOURS")
		v.BindEnv("contactretentiondays", "FUTURION_CONTACT_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()

		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultPrivateKey {
			log.Fatal("Production requires a unique FUTURION_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.DatabaseType != SQLiteDatabase {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.WidgetReadinessAttempts <= 0 {
		return fmt.Errorf("widget readiness attempts must be positive, got %d", c.WidgetReadinessAttempts)
	}
	if c.WidgetReadinessIntervalMs <= 0 {
		return fmt.Errorf("widget readiness interval must be positive, got %d", c.WidgetReadinessIntervalMs)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}
	if c.Environment == Test {
		return 1
	}
	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}
	if c.Environment == Test {
		return 1
	}
	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// SuppressedRoutes returns the path prefixes on which the chat widget is never bootstrapped.
func (c *Config) SuppressedRoutes() []string {
	var routes []string
	for _, route := range strings.Split(c.WidgetSuppressedRoutes, ",") {
		route = strings.TrimSpace(route)
		if route != "" {
			routes = append(routes, route)
		}
	}
	return routes
}

// Widget projects the widget settings into the controller configuration.
// WidgetSecret is not included.
func (c *Config) Widget() widget.Config {
	return widget.Config{
		ScriptID:         c.WidgetScriptID,
		ScriptSrc:        c.WidgetScriptSrc,
		ScriptDomain:     c.WidgetDomain,
		SuppressedRoutes: c.SuppressedRoutes(),
		Readiness: widget.Polling{
			MaxAttempts: c.WidgetReadinessAttempts,
			Interval:    time.Duration(c.WidgetReadinessIntervalMs) * time.Millisecond,
		},
		SettleDelay:       time.Duration(c.WidgetSettleDelayMs) * time.Millisecond,
		ScriptLoadTimeout: time.Duration(c.WidgetScriptLoadTimeoutMs) * time.Millisecond,
		TokenTimeout:      time.Duration(c.WidgetTokenTimeoutMs) * time.Millisecond,
		IdentityEndpoint:  c.WidgetIdentityEndpoint,
	}
}

// SubscribeRecipient returns the inbox that receives newsletter notifications.
func (c *Config) SubscribeRecipient() string {
	if c.ResendSubscribeTo != "" {
		return c.ResendSubscribeTo
	}
	return c.ResendTo
}

// ContentCacheTTL returns how long content query results are cached.
func (c *Config) ContentCacheTTL() time.Duration {
	return time.Duration(c.ContentCacheTTLSeconds) * time.Second
}

// ContentRequestTimeout bounds a single content store query.
func (c *Config) ContentRequestTimeout() time.Duration {
	return time.Duration(c.ContentRequestTimeoutMs) * time.Millisecond
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
