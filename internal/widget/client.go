package widget

import (
	"context"
	"errors"

	"futurion/internal/identity"
)

// Identity is the visible identity of the current visitor.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// IdentifyPayload is the argument of the identify command. Optional profile
// fields are omitted from the wire form when nil.
type IdentifyPayload struct {
	UserID   string  `json:"userId"`
	UserHash string  `json:"userHash"`
	Email    *string `json:"userEmail,omitempty"`
	Name     *string `json:"userName,omitempty"`
}

// NewIdentifyPayload builds the payload for id signed with token. Empty
// email or name are left out.
func NewIdentifyPayload(id Identity, token identity.Token) IdentifyPayload {
	p := IdentifyPayload{UserID: id.UserID, UserHash: token.Hash}
	if id.Email != "" {
		email := id.Email
		p.Email = &email
	}
	if id.Name != "" {
		name := id.Name
		p.Name = &name
	}
	return p
}

// TokenSource issues identity tokens. Both *identity.Service and
// *identity.Client satisfy it.
type TokenSource interface {
	IssueToken(ctx context.Context, userID string) (identity.Token, error)
}

// WidgetClient is the control surface of the embed.
type WidgetClient interface {
	Open() error
	Close() error
	Identify(IdentifyPayload) error
	State() (string, error)
}

// NewClient adapts a Handle to WidgetClient.
func NewClient(h Handle) WidgetClient {
	return &handleClient{handle: h}
}

type handleClient struct {
	handle Handle
}

func (c *handleClient) Open() error {
	_, err := c.call(CommandOpen)
	return err
}

func (c *handleClient) Close() error {
	_, err := c.call(CommandClose)
	return err
}

func (c *handleClient) Identify(p IdentifyPayload) error {
	_, err := c.call(CommandIdentify, p)
	return err
}

func (c *handleClient) State() (string, error) {
	v, err := c.call(CommandGetState)
	if err != nil {
		return "", err
	}
	return stateString(v), nil
}

// call turns a panicking handle into an error; the embed is foreign code.
func (c *handleClient) call(command string, args ...any) (result any, err error) {
	if c.handle == nil {
		return nil, ErrWidgetUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, errors.Join(ErrWidgetUnavailable, panicError{r})
		}
	}()
	return c.handle.Call(command, args...)
}

// Toggle opens the widget when it reports closed and closes it otherwise.
func Toggle(h Handle) error {
	c := &handleClient{handle: h}
	v, err := c.call(CommandGetState)
	if err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		if open, _ := m["isOpen"].(bool); open {
			return c.Close()
		}
	}
	return c.Open()
}
