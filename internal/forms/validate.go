package forms

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pariz/gountries"
)

// ValidationErrors maps a field name to its messages.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v[field], ", ")))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Details is the error body shape sent to the form: form-level errors and
// per-field errors.
func (v ValidationErrors) Details() map[string]any {
	fieldErrors := make(map[string][]string, len(v))
	for field, msgs := range v {
		fieldErrors[field] = append([]string(nil), msgs...)
	}
	return map[string]any{
		"formErrors":  []string{},
		"fieldErrors": fieldErrors,
	}
}

// ContactInput is the body of the contact form.
type ContactInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Service *string `json:"service"`
	Country *string `json:"country"`
	Message string  `json:"message"`
}

// SubscribeInput is the body of the newsletter form.
type SubscribeInput struct {
	Email string `json:"email"`
}

var countries = gountries.New()

// Validate checks the input and returns ValidationErrors (or nil). On
// success the country code, if any, is resolved to its common name.
func (in *ContactInput) Validate() error {
	errs := ValidationErrors{}

	if utf8.RuneCountInString(in.Name) < 2 {
		errs.add("name", "String must contain at least 2 character(s)")
	}
	if !validEmail(in.Email) {
		errs.add("email", "Invalid email")
	}
	if utf8.RuneCountInString(in.Message) < 5 {
		errs.add("message", "String must contain at least 5 character(s)")
	}
	if code := optional(in.Country); code != "" {
		// Codes resolve to the common name; anything else is kept as typed.
		if country, err := countries.FindCountryByAlpha(strings.ToUpper(code)); err == nil {
			code = country.Name.Common
		}
		in.Country = &code
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks the subscription email.
func (in *SubscribeInput) Validate() error {
	if !validEmail(in.Email) {
		return ValidationErrors{"email": {"Invalid email"}}
	}
	return nil
}

// validEmail accepts a bare address only: no display name, no brackets.
func validEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
