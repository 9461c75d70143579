package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultEndpoint is the path the token handler is mounted on.
const DefaultEndpoint = "/api/identity-token"

const defaultClientTimeout = 5 * time.Second

// StatusError is returned by Client when the token endpoint answers with a
// non-200 status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity token request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("identity token request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client requests tokens from a running token endpoint over HTTP.
// It does not retry.
type Client struct {
	url     string
	timeout time.Duration
}

// NewClient creates a client for the token endpoint at baseURL+endpoint.
// An empty endpoint uses DefaultEndpoint.
func NewClient(baseURL, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		url:     strings.TrimRight(baseURL, "/") + endpoint,
		timeout: defaultClientTimeout,
	}
}

// WithTimeout returns a copy of the client with a different request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

// IssueToken posts userID to the endpoint and decodes the token.
func (c *Client) IssueToken(ctx context.Context, userID string) (Token, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Token{}, ctx.Err()
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(c.url)
	agent.JSON(fiber.Map{"userId": userID})
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return Token{}, fmt.Errorf("identity token request: %w", errors.Join(errs...))
	}

	if status != fiber.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return Token{}, &StatusError{StatusCode: status, Message: payload.Error}
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return Token{}, fmt.Errorf("identity token response: %w", err)
	}
	if token.Hash == "" {
		return Token{}, errors.New("identity token response has no hash")
	}
	return token, nil
}
