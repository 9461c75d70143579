// Package identity issues the signed user tokens the chat widget uses to
// trust an identity claim made by the page.
//
// A token is the pair (userId, hex(HMAC-SHA256(secret, userId))). The
// secret is loaded once at startup and never leaves the server.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

var (
	// ErrInvalidRequest is returned when the user id is missing or empty.
	ErrInvalidRequest = errors.New("user id is required")
	// ErrMisconfigured is returned when no signing secret is configured.
	ErrMisconfigured = errors.New("identity secret is not configured")
	// ErrInternal wraps any unexpected failure while computing a token.
	ErrInternal = errors.New("failed to generate hash")
)

// Token is the identity proof forwarded to the widget's identify call.
type Token struct {
	Hash   string `json:"hash"`
	UserID string `json:"userId"`
}

// Service computes identity tokens. It is immutable and safe for concurrent use.
type Service struct {
	secret []byte
	logger *slog.Logger
}

// NewService creates a token service for the given secret. An empty secret
// produces a service that refuses every request.
func NewService(secret string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if secret == "" {
		logger.Warn("identity token service has no secret configured; token requests will fail")
	}
	return &Service{secret: []byte(secret), logger: logger}
}

// Configured reports whether a signing secret is available.
func (s *Service) Configured() bool {
	return len(s.secret) > 0
}

// IssueToken signs userID. The secret check runs before input validation so
// a misconfigured deployment is reported the same way for every caller.
func (s *Service) IssueToken(ctx context.Context, userID string) (token Token, err error) {
	if !s.Configured() {
		s.logger.Error("identity token requested but no secret is configured")
		return Token{}, ErrMisconfigured
	}
	if userID == "" {
		return Token{}, ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("identity token signing panicked", slog.Any("panic", r))
			token, err = Token{}, ErrInternal
		}
	}()

	return Token{Hash: Sign(s.secret, userID), UserID: userID}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of userID keyed with secret.
func Sign(secret []byte, userID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether hash is the token for userID under secret.
// The comparison runs in constant time.
func Verify(secret []byte, userID, hash string) bool {
	if len(secret) == 0 || userID == "" {
		return false
	}
	expected := Sign(secret, userID)
	return hmac.Equal([]byte(expected), []byte(hash))
}

// CoerceUserID converts a decoded JSON value into the string form that gets
// signed. Missing, null, empty string, zero and false are all treated as
// absent; everything else is rendered the way a browser would stringify it.
func CoerceUserID(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case json.Number:
		f, err := v.Float64()
		if err == nil && f == 0 {
			return "", false
		}
		return v.String(), true
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		if v == 0 {
			return "", false
		}
		return strconv.Itoa(v), true
	case int64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatInt(v, 10), true
	default:
		// Objects and arrays are truthy but have no meaningful id form.
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
