package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	sender := NewResend("re_test", srv.URL, nil)
	id, err := sender.Send(context.Background(), Message{
		From:    "Contacto <contacto@example.com>",
		To:      []string{"team@example.com"},
		ReplyTo: "ana@example.com",
		Subject: "Hola",
		HTML:    "<p>hola</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_123", id)
	assert.Equal(t, []string{"team@example.com"}, got.To)
	assert.Equal(t, "ana@example.com", got.ReplyTo)
	assert.Equal(t, "Hola", got.Subject)
}

func TestResendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"statusCode":403,"name":"validation_error","message":"The example.com domain is not verified."}`))
	}))
	defer srv.Close()

	_, err := NewResend("re_test", srv.URL, nil).Send(context.Background(), Message{
		From: "a@example.com", To: []string{"b@example.com"}, Subject: "s", HTML: "h",
	})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
	assert.Equal(t, "validation_error", perr.Name)
	assert.True(t, IsDomainNotVerified(err))
}

func TestResendNotConfigured(t *testing.T) {
	_, err := NewResend("", "", nil).Send(context.Background(), Message{To: []string{"b@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResendRequiresRecipients(t *testing.T) {
	_, err := NewResend("re_test", "", nil).Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestIsDomainNotVerified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"domain mention", &ProviderError{StatusCode: 403, Message: "Domain mismatch"}, true},
		{"not verified", &ProviderError{StatusCode: 403, Message: "Sender NOT VERIFIED"}, true},
		{"wrapped", fmt.Errorf("send: %w", &ProviderError{Message: "unverified domain"}), true},
		{"rate limit", &ProviderError{StatusCode: 429, Message: "Too many requests"}, false},
		{"plain error", errors.New("domain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDomainNotVerified(tt.err))
		})
	}
}
