package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FallbackProjectID replaces a malformed project id.
const FallbackProjectID = "temp-project-id"

const (
	defaultDataset    = "production"
	defaultAPIVersion = "2024-01-01"
	defaultTimeout    = 4 * time.Second
)

var projectIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidProjectID returns id when it is a well-formed project id and
// FallbackProjectID otherwise.
func ValidProjectID(id string) string {
	if !projectIDPattern.MatchString(id) {
		return FallbackProjectID
	}
	return id
}

// Store runs read-only queries against a content backend.
type Store interface {
	// Configured is false when queries would certainly fail, for example
	// when no project is set.
	Configured() bool
	// Query runs a GROQ query and returns the raw "result" value.
	Query(ctx context.Context, query string, params map[string]string) (json.RawMessage, error)
}

// QueryError is a non-200 answer from the query API.
type QueryError struct {
	StatusCode int
	Message    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("sanity: query failed with status %d: %s", e.StatusCode, e.Message)
}

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool
	// BaseURL overrides the project host, e.g. for a local proxy.
	BaseURL string
	Timeout time.Duration
}

// SanityStore queries the Sanity HTTP query API.
type SanityStore struct {
	cfg        SanityConfig
	configured bool
	logger     *slog.Logger
}

func NewSanityStore(cfg SanityConfig, logger *slog.Logger) *SanityStore {
	if logger == nil {
		logger = slog.Default()
	}

	configured := cfg.ProjectID != ""
	if configured {
		if valid := ValidProjectID(cfg.ProjectID); valid != cfg.ProjectID {
			logger.Warn("invalid content project id, using fallback",
				slog.String("project_id", cfg.ProjectID),
				slog.String("fallback", valid),
			)
			cfg.ProjectID = valid
		}
	}
	if cfg.Dataset == "" {
		cfg.Dataset = defaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	cfg.APIVersion = strings.TrimPrefix(cfg.APIVersion, "v")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &SanityStore{cfg: cfg, configured: configured, logger: logger}
}

func (s *SanityStore) Configured() bool {
	return s.configured
}

// ProjectID returns the project id in use after validation.
func (s *SanityStore) ProjectID() string { return s.cfg.ProjectID }

// Dataset returns the dataset queries run against.
func (s *SanityStore) Dataset() string { return s.cfg.Dataset }

func (s *SanityStore) host() string {
	if s.cfg.BaseURL != "" {
		return strings.TrimRight(s.cfg.BaseURL, "/")
	}
	api := "api"
	if s.cfg.UseCDN {
		api = "apicdn"
	}
	return fmt.Sprintf("https://%s.%s.sanity.io", s.cfg.ProjectID, api)
}

// QueryURL builds the GET url for query. Parameter values are sent as JSON
// strings, the format the API expects for $name parameters.
func (s *SanityStore) QueryURL(query string, params map[string]string) string {
	values := url.Values{}
	values.Set("query", query)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		encoded, _ := json.Marshal(params[name])
		values.Set("$"+name, string(encoded))
	}

	return fmt.Sprintf("%s/v%s/data/query/%s?%s", s.host(), s.cfg.APIVersion, url.PathEscape(s.cfg.Dataset), values.Encode())
}

func (s *SanityStore) Query(ctx context.Context, query string, params map[string]string) (json.RawMessage, error) {
	if !s.configured {
		return nil, errors.New("sanity: no project configured")
	}

	timeout := s.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ctx.Err()
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Get(s.QueryURL(query, params))
	agent.Set("Accept", "application/json")
	agent.Timeout(timeout)

	start := time.Now()
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("sanity: query request: %w", errors.Join(errs...))
	}

	if status != fiber.StatusOK {
		var payload struct {
			Error struct {
				Description string `json:"description"`
			} `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		msg := payload.Error.Description
		if msg == "" {
			msg = payload.Message
		}
		return nil, &QueryError{StatusCode: status, Message: msg}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("sanity: decode response: %w", err)
	}

	s.logger.Debug("content query completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", len(body)),
	)
	return envelope.Result, nil
}
