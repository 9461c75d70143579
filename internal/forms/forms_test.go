package forms_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"futurion/internal/forms"
	"futurion/internal/mailer"
	"futurion/internal/testsupport"
)

func strPtr(s string) *string { return &s }

func newPipeline(t *testing.T, sender mailer.Sender) (*forms.Pipeline, *gorm.DB) {
	t.Helper()
	db := testsupport.SetupTestDB(t)
	testsupport.CleanTables(db)

	p, err := forms.NewPipeline(db, sender, forms.Recipients{
		From:        "Contacto Futurion <contacto@example.com>",
		ContactTo:   "team@example.com",
		SubscribeTo: "news@example.com, team@example.com",
	}, testsupport.GetLogger())
	require.NoError(t, err)
	return p, db
}

func TestContactInputValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      forms.ContactInput
		wantFields []string
	}{
		{
			name:  "valid minimal",
			input: forms.ContactInput{Name: "Ana", Email: "ana@example.com", Message: "Hola equipo"},
		},
		{
			name:       "short name",
			input:      forms.ContactInput{Name: "A", Email: "ana@example.com", Message: "Hola equipo"},
			wantFields: []string{"name"},
		},
		{
			name:       "bad email and short message",
			input:      forms.ContactInput{Name: "Ana", Email: "not-an-email", Message: "Hi"},
			wantFields: []string{"email", "message"},
		},
		{
			name:       "display name email is rejected",
			input:      forms.ContactInput{Name: "Ana", Email: "Ana <ana@example.com>", Message: "Hola equipo"},
			wantFields: []string{"email"},
		},
		{
			name:  "unknown country is accepted",
			input: forms.ContactInput{Name: "Ana", Email: "ana@example.com", Message: "Hola equipo", Country: strPtr("ZZ")},
		},
		{
			name:  "multibyte name counts runes",
			input: forms.ContactInput{Name: "Íñ", Email: "ana@example.com", Message: "Hola equipo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs forms.ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
			for _, field := range tt.wantFields {
				assert.Contains(t, verrs, field)
			}
			assert.Len(t, verrs, len(tt.wantFields))
		})
	}
}

func TestContactInputResolvesCountry(t *testing.T) {
	in := forms.ContactInput{Name: "Ana", Email: "ana@example.com", Message: "Hola equipo", Country: strPtr("co")}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Colombia", *in.Country)
}

func TestContactInputKeepsUnresolvedCountry(t *testing.T) {
	for _, raw := range []string{"ZZ", "  Narnia "} {
		in := forms.ContactInput{Name: "Ana", Email: "ana@example.com", Message: "Hola equipo", Country: strPtr(raw)}
		require.NoError(t, in.Validate())
		require.NotNil(t, in.Country)
		assert.Equal(t, strings.TrimSpace(raw), *in.Country)
	}
}

func TestValidationErrorsDetails(t *testing.T) {
	verrs := forms.ValidationErrors{"name": {"too short"}}
	details := verrs.Details()

	assert.Equal(t, []string{}, details["formErrors"])
	assert.Equal(t, map[string][]string{"name": {"too short"}}, details["fieldErrors"])
	assert.Contains(t, verrs.Error(), "name: too short")
}

func TestSubmitContact(t *testing.T) {
	sender := &testsupport.RecordingSender{}
	p, db := newPipeline(t, sender)

	msg, err := p.SubmitContact(context.Background(), forms.ContactInput{
		Name:    "Ana <b>López</b>",
		Email:   "ana@example.com",
		Phone:   strPtr("+57 300 000 0000"),
		Service: strPtr("Ciberseguridad"),
		Message: "Necesitamos una auditoría.",
	})
	require.NoError(t, err)
	require.NotZero(t, msg.ID)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"team@example.com"}, sent[0].To)
	assert.Equal(t, "ana@example.com", sent[0].ReplyTo)
	assert.Equal(t, "Nuevo mensaje de contacto: Ana <b>López</b>", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Ana &lt;b&gt;López&lt;/b&gt;")
	assert.NotContains(t, sent[0].HTML, "<b>López</b>")
	assert.Contains(t, sent[0].HTML, "Ciberseguridad")
	assert.NotContains(t, sent[0].HTML, "Empresa")

	var stored forms.ContactMessage
	require.NoError(t, db.First(&stored, msg.ID).Error)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, "test-msg-1", stored.ProviderMessageID)
	assert.Empty(t, stored.DeliveryError)
}

func TestSubmitContactValidationStoresNothing(t *testing.T) {
	sender := &testsupport.RecordingSender{}
	p, db := newPipeline(t, sender)

	_, err := p.SubmitContact(context.Background(), forms.ContactInput{Name: "A"})
	var verrs forms.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	var count int64
	db.Model(&forms.ContactMessage{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, sender.Sent())
}

func TestSubmitContactDeliveryFailureIsRecorded(t *testing.T) {
	sender := &testsupport.RecordingSender{Err: &mailer.ProviderError{StatusCode: 403, Message: "domain is not verified"}}
	p, db := newPipeline(t, sender)

	msg, err := p.SubmitContact(context.Background(), forms.ContactInput{
		Name: "Ana", Email: "ana@example.com", Message: "Hola equipo",
	})

	var derr *forms.DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.True(t, mailer.IsDomainNotVerified(err))
	require.NotNil(t, msg)

	var stored forms.ContactMessage
	require.NoError(t, db.First(&stored, msg.ID).Error)
	assert.Nil(t, stored.DeliveredAt)
	assert.True(t, strings.Contains(stored.DeliveryError, "not verified"))
}

func TestSubmitContactWithoutSender(t *testing.T) {
	p, _ := newPipeline(t, nil)

	_, err := p.SubmitContact(context.Background(), forms.ContactInput{
		Name: "Ana", Email: "ana@example.com", Message: "Hola equipo",
	})
	assert.ErrorIs(t, err, mailer.ErrNotConfigured)
}

func TestSubscribe(t *testing.T) {
	sender := &testsupport.RecordingSender{}
	p, db := newPipeline(t, sender)

	first, err := p.Subscribe(context.Background(), forms.SubscribeInput{Email: "Lector@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "lector@example.com", first.Email)

	second, err := p.Subscribe(context.Background(), forms.SubscribeInput{Email: "lector@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.LastSubscribedAt.Before(first.LastSubscribedAt))

	var count int64
	db.Model(&forms.Subscriber{}).Count(&count)
	assert.Equal(t, int64(1), count)

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"news@example.com", "team@example.com"}, sent[0].To)
	assert.Equal(t, "Nueva suscripción al newsletter", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "lector@example.com")
}

func TestSubscribeInvalidEmail(t *testing.T) {
	p, _ := newPipeline(t, &testsupport.RecordingSender{})

	_, err := p.Subscribe(context.Background(), forms.SubscribeInput{Email: "nope"})
	var verrs forms.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}
