package identity_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurion/internal/identity"
)

func expectedHash(secret, userID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIssueTokenKnownVector(t *testing.T) {
	svc := identity.NewService("topsecret", slog.Default())

	token, err := svc.IssueToken(context.Background(), "user-42")
	require.NoError(t, err)

	assert.Equal(t, "user-42", token.UserID)
	assert.Equal(t, expectedHash("topsecret", "user-42"), token.Hash)
	assert.Len(t, token.Hash, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", token.Hash)
}

func TestIssueTokenIsDeterministic(t *testing.T) {
	svc := identity.NewService("topsecret", slog.Default())

	first, err := svc.IssueToken(context.Background(), "visitor-7")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := svc.IssueToken(context.Background(), "visitor-7")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestIssueTokenDistinctUsers(t *testing.T) {
	svc := identity.NewService("topsecret", slog.Default())

	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		userID := fmt.Sprintf("user-%d", i)
		token, err := svc.IssueToken(context.Background(), userID)
		require.NoError(t, err)
		if prev, ok := seen[token.Hash]; ok {
			t.Fatalf("hash collision between %q and %q", prev, userID)
		}
		seen[token.Hash] = userID
	}
}

func TestIssueTokenDependsOnSecret(t *testing.T) {
	a := identity.NewService("secret-a", slog.Default())
	b := identity.NewService("secret-b", slog.Default())

	ta, err := a.IssueToken(context.Background(), "user-1")
	require.NoError(t, err)
	tb, err := b.IssueToken(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, ta.Hash, tb.Hash)
}

func TestIssueTokenMissingInput(t *testing.T) {
	svc := identity.NewService("topsecret", slog.Default())

	_, err := svc.IssueToken(context.Background(), "")
	assert.ErrorIs(t, err, identity.ErrInvalidRequest)
}

func TestIssueTokenMissingSecret(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	svc := identity.NewService("", logger)

	assert.False(t, svc.Configured())

	token, err := svc.IssueToken(context.Background(), "abc")
	assert.ErrorIs(t, err, identity.ErrMisconfigured)
	assert.Empty(t, token.Hash)
	assert.Contains(t, logs.String(), "no secret")
}

func TestIssueTokenNeverLogsSecret(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := identity.NewService("super-private-value", logger)

	_, _ = svc.IssueToken(context.Background(), "")
	_, err := svc.IssueToken(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotContains(t, logs.String(), "super-private-value")
}

func TestIssueTokenCanceledContext(t *testing.T) {
	svc := identity.NewService("topsecret", slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.IssueToken(ctx, "user-1")
	assert.ErrorIs(t, err, identity.ErrInternal)
}

func TestVerify(t *testing.T) {
	secret := []byte("topsecret")
	hash := identity.Sign(secret, "user-42")

	assert.True(t, identity.Verify(secret, "user-42", hash))
	assert.False(t, identity.Verify(secret, "user-43", hash))
	assert.False(t, identity.Verify([]byte("other"), "user-42", hash))
	assert.False(t, identity.Verify(secret, "user-42", hash[:63]))
	assert.False(t, identity.Verify(nil, "user-42", hash))
	assert.False(t, identity.Verify(secret, "", hash))
}

func TestCoerceUserID(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   string
		wantOK bool
	}{
		{name: "nil", raw: nil, want: "", wantOK: false},
		{name: "empty string", raw: "", want: "", wantOK: false},
		{name: "string", raw: "user-42", want: "user-42", wantOK: true},
		{name: "whitespace is kept", raw: "  ", want: "  ", wantOK: true},
		{name: "zero", raw: float64(0), want: "", wantOK: false},
		{name: "integer float", raw: float64(42), want: "42", wantOK: true},
		{name: "fraction", raw: 4.5, want: "4.5", wantOK: true},
		{name: "json number", raw: json.Number("1001"), want: "1001", wantOK: true},
		{name: "json number zero", raw: json.Number("0"), want: "", wantOK: false},
		{name: "false", raw: false, want: "", wantOK: false},
		{name: "true", raw: true, want: "true", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := identity.CoerceUserID(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
