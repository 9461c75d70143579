// Package mailer sends notification emails through the Resend HTTP API.
package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("mailer: resend api key is not configured")

// DefaultBaseURL is the public Resend API.
const DefaultBaseURL = "https://api.resend.com"

const defaultTimeout = 10 * time.Second

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers a Message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resend: %s (%d): %s", e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("resend: status %d: %s", e.StatusCode, e.Message)
}

var domainNotVerified = []*regexp.Regexp{
	regexp.MustCompile(`(?i)domain`),
	regexp.MustCompile(`(?i)not verified`),
}

// IsDomainNotVerified reports whether err is a provider rejection caused by
// the sending domain not being verified.
func IsDomainNotVerified(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	for _, re := range domainNotVerified {
		if re.MatchString(perr.Message) {
			return true
		}
	}
	return false
}

// Resend is a Sender backed by the Resend API.
type Resend struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewResend creates a Resend sender. An empty baseURL uses DefaultBaseURL.
func NewResend(apiKey, baseURL string, logger *slog.Logger) *Resend {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resend{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Configured reports whether an API key is set.
func (r *Resend) Configured() bool {
	return r.apiKey != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendResponse struct {
	ID         string `json:"id"`
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// Send posts msg to {base}/emails.
func (r *Resend) Send(ctx context.Context, msg Message) (string, error) {
	if !r.Configured() {
		return "", ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return "", errors.New("mailer: message has no recipients")
	}

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", ctx.Err()
	}

	agent := fiber.Post(r.baseURL + "/emails")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+r.apiKey)
	agent.JSON(sendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	agent.Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("resend request: %w", errors.Join(errs...))
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil && status < 300 {
		return "", fmt.Errorf("resend response: %w", err)
	}

	if status < 200 || status >= 300 {
		perr := &ProviderError{StatusCode: status, Name: resp.Name, Message: resp.Message}
		if perr.Message == "" {
			perr.Message = strings.TrimSpace(string(body))
		}
		r.logger.Warn("resend rejected message",
			slog.Int("status", status),
			slog.String("name", perr.Name),
			slog.String("message", perr.Message),
		)
		return "", perr
	}

	r.logger.Debug("resend accepted message", slog.String("id", resp.ID))
	return resp.ID, nil
}
