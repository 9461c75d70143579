package widget

import (
	"errors"
	"fmt"
	"sync"
)

// Widget commands understood by the embed's control surface.
const (
	CommandGetState = "getState"
	CommandOpen     = "open"
	CommandClose    = "close"
	CommandIdentify = "identify"
)

// Widget states reported by getState that mean the embed is usable.
const (
	StateInitialized = "initialized"
	StateReady       = "ready"
)

// Handle is the page-wide callable the embed script exposes.
type Handle interface {
	Call(command string, args ...any) (any, error)
}

// HandleFunc adapts a function to Handle.
type HandleFunc func(command string, args ...any) (any, error)

func (f HandleFunc) Call(command string, args ...any) (any, error) {
	return f(command, args...)
}

// QueuedCall is one call recorded by a Shim before the target handle attached.
type QueuedCall struct {
	Command string
	Args    []any
}

// Shim stands in for the embed before its script has loaded. Calls are
// recorded in order and replayed once the target handle is attached; after
// that every call is forwarded.
type Shim struct {
	mu     sync.Mutex
	queue  []QueuedCall
	target Handle
}

// NewShim returns an empty queuing shim.
func NewShim() *Shim {
	return &Shim{}
}

// Call forwards to the attached handle, or queues the call and returns nil.
func (s *Shim) Call(command string, args ...any) (any, error) {
	s.mu.Lock()
	if s.target != nil {
		target := s.target
		s.mu.Unlock()
		return target.Call(command, args...)
	}
	s.queue = append(s.queue, QueuedCall{Command: command, Args: append([]any(nil), args...)})
	s.mu.Unlock()
	return nil, nil
}

// Attach hands the queue to target, replaying it in call order. Replay errors
// are joined and returned; forwarding is enabled regardless.
func (s *Shim) Attach(target Handle) error {
	if target == nil {
		return errors.New("widget: cannot attach a nil handle")
	}

	s.mu.Lock()
	queued := s.queue
	s.queue = nil
	s.target = target
	s.mu.Unlock()

	var errs []error
	for _, call := range queued {
		if _, err := target.Call(call.Command, call.Args...); err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", call.Command, err))
		}
	}
	return errors.Join(errs...)
}

// Pending returns a copy of the calls still waiting for the target handle.
func (s *Shim) Pending() []QueuedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]QueuedCall(nil), s.queue...)
}

// Attached reports whether the target handle has taken over.
func (s *Shim) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target != nil
}

// Bootstrap returns the handle the page should use. An already initialized
// embed is kept, as is a shim that is already installed; anything else is
// replaced by a fresh Shim.
func Bootstrap(current Handle) Handle {
	if current == nil {
		return NewShim()
	}
	if _, ok := current.(*Shim); ok {
		return current
	}
	state, err := current.Call(CommandGetState)
	if err == nil && stateString(state) == StateInitialized {
		return current
	}
	return NewShim()
}

func stateString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]any:
		if str, ok := s["state"].(string); ok {
			return str
		}
	}
	return ""
}
