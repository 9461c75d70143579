// Package widget drives the third-party chat embed: it injects the script
// once, waits for the widget to report ready, fetches a signed identity
// token and identifies the visitor at most once per identity.
//
// The Controller is event driven. Every transition happens inside a timer
// callback, a page callback or a token result, each one serialized by a
// mutex and checked against the session and attempt counters so callbacks
// that fire after Unmount or after the identity changed do nothing.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"futurion/internal/identity"
	"futurion/internal/pkg/clock"
)

var (
	// ErrWidgetUnavailable means the embed never loaded or never became ready.
	ErrWidgetUnavailable = errors.New("widget unavailable")
	// ErrIdentificationFailed means the token request or the identify call failed.
	ErrIdentificationFailed = errors.New("widget identification failed")
)

type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("widget handle panicked: %v", p.value) }

// ScriptTag is the element injected into the page.
type ScriptTag struct {
	ID     string
	Src    string
	Domain string
}

// Page is the DOM surface used by the controller.
type Page interface {
	// HasScript reports whether an element with the given id is present.
	HasScript(id string) bool
	// InjectScript appends tag to the document. onLoad or onError is called
	// at most once, from any goroutine, when the browser settles the load.
	InjectScript(tag ScriptTag, onLoad func(), onError func(error)) error
}

// Options configures a Controller.
type Options struct {
	Config Config
	Page   Page
	Client WidgetClient
	Tokens TokenSource
	Clock  clock.Clock
	Logger *slog.Logger
}

// Controller owns one widget session per mount.
type Controller struct {
	cfg    Config
	page   Page
	client WidgetClient
	tokens TokenSource
	clock  clock.Clock
	base   *slog.Logger

	mu          sync.Mutex
	logger      *slog.Logger
	mounted     bool
	session     uint64
	attempt     uint64
	sessionID   string
	state       State
	err         error
	identity    *Identity
	scriptReady bool
	identified  map[Identity]bool

	// identifying is set while an Identify call runs outside the lock. A new
	// identification requested meanwhile waits in restartPending.
	identifying    bool
	restartPending bool

	loadTimer   clock.Timer
	settleTimer clock.Timer
	pollTimer   clock.Timer
	cancelToken context.CancelFunc

	done     chan struct{}
	doneOnce *sync.Once
}

// NewController creates a controller. Nothing happens until Mount.
func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		cfg:      opts.Config.withDefaults(),
		page:     opts.Page,
		client:   opts.Client,
		tokens:   opts.Tokens,
		clock:    opts.Clock,
		base:     opts.Logger,
		logger:   opts.Logger,
		done:     make(chan struct{}),
		doneOnce: &sync.Once{},
	}
}

// Mount starts a session for the page at path. id may be nil for an
// anonymous visitor. Mounting an already mounted controller is ignored.
func (c *Controller) Mount(path string, id *Identity) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		c.logger.Warn("widget controller already mounted", slog.String("path", path))
		return
	}

	c.mounted = true
	c.session++
	c.attempt++
	c.sessionID = uuid.NewString()
	c.logger = c.base.With(slog.String("widget_session", c.sessionID))
	c.state = Uninitialized
	c.err = nil
	c.identity = normalize(id)
	c.scriptReady = false
	c.identified = make(map[Identity]bool)
	c.restartPending = false
	c.done = make(chan struct{})
	c.doneOnce = &sync.Once{}
	session := c.session

	if RouteSuppressed(path, c.cfg.SuppressedRoutes) {
		c.state = Suppressed
		c.finishLocked()
		c.mu.Unlock()
		c.logger.Debug("widget suppressed on route", slog.String("path", path))
		return
	}
	c.state = ScriptLoading
	c.mu.Unlock()

	if c.page.HasScript(c.cfg.ScriptID) {
		c.logger.Debug("widget script already present, skipping injection")
		c.onScriptReady(session)
		return
	}
	if c.alreadyInitialized() {
		c.logger.Debug("widget already initialized, skipping injection")
		c.onScriptReady(session)
		return
	}

	c.mu.Lock()
	if !c.liveLocked(session) {
		c.mu.Unlock()
		return
	}
	if c.cfg.ScriptLoadTimeout > 0 {
		c.loadTimer = c.clock.AfterFunc(c.cfg.ScriptLoadTimeout, func() { c.onScriptTimeout(session) })
	}
	c.mu.Unlock()

	err := c.page.InjectScript(c.cfg.Tag(),
		func() { c.onScriptLoad(session) },
		func(err error) { c.onScriptError(session, err) },
	)
	if err != nil {
		c.onScriptError(session, err)
	}
}

// Render updates the visible identity. An unchanged identity is a no-op;
// a changed one cancels any identification in flight and starts over once
// the script is ready.
func (c *Controller) Render(id *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted || c.state == Suppressed {
		return
	}
	next := normalize(id)
	if sameIdentity(c.identity, next) {
		return
	}

	c.identity = next
	c.attempt++
	c.stopIdentificationLocked()

	if !c.scriptReady {
		if c.state == IdentityFailed {
			c.state = ScriptLoading
			c.err = nil
			if c.cfg.ScriptLoadTimeout > 0 && c.loadTimer == nil {
				session := c.session
				c.loadTimer = c.clock.AfterFunc(c.cfg.ScriptLoadTimeout, func() { c.onScriptTimeout(session) })
			}
		}
		return
	}
	if next == nil {
		c.state = ScriptReady
		c.err = nil
		return
	}
	if c.identified[*next] {
		c.state = Identified
		c.err = nil
		return
	}
	c.startIdentificationLocked()
}

// Unmount ends the session. Timers that fire afterwards are ignored.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.mounted = false
	c.session++
	c.attempt++
	stopTimer(&c.loadTimer)
	stopTimer(&c.settleTimer)
	c.stopIdentificationLocked()
	c.logger.Debug("widget controller unmounted", slog.String("state", c.state.String()))
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the session to IdentityFailed, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the session first reaches a resting state: Suppressed,
// Identified, IdentityFailed, or ScriptReady without an identity.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// SessionID identifies the current mount in logs.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) alreadyInitialized() bool {
	if c.client == nil {
		return false
	}
	state, err := c.clientState()
	return err == nil && state == StateInitialized
}

// clientState, issueToken and identify shield the controller from a
// misbehaving embed or token source by turning a panic into an error.
func (c *Controller) clientState() (state string, err error) {
	defer func() {
		if r := recover(); r != nil {
			state, err = "", panicError{r}
		}
	}()
	return c.client.State()
}

func (c *Controller) issueToken(ctx context.Context, userID string) (token identity.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			token, err = identity.Token{}, panicError{r}
		}
	}()
	return c.tokens.IssueToken(ctx, userID)
}

func (c *Controller) identify(payload IdentifyPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return c.client.Identify(payload)
}

func (c *Controller) onScriptLoad(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(session) || c.scriptReady || c.settleTimer != nil {
		return
	}
	stopTimer(&c.loadTimer)

	if c.cfg.SettleDelay <= 0 {
		c.scriptReadyLocked()
		return
	}
	c.settleTimer = c.clock.AfterFunc(c.cfg.SettleDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.liveLocked(session) {
			return
		}
		c.settleTimer = nil
		c.scriptReadyLocked()
	})
}

func (c *Controller) onScriptReady(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(session) || c.scriptReady {
		return
	}
	c.scriptReadyLocked()
}

// onScriptError leaves the session loading: the embed is not retried.
func (c *Controller) onScriptError(session uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(session) {
		return
	}
	c.logger.Warn("widget script failed to load", slog.String("error", err.Error()))
}

func (c *Controller) onScriptTimeout(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(session) || c.scriptReady || c.state != ScriptLoading {
		return
	}
	c.loadTimer = nil
	if c.identity == nil {
		c.logger.Warn("widget script did not load in time", slog.Duration("timeout", c.cfg.ScriptLoadTimeout))
		return
	}
	c.failLocked(fmt.Errorf("%w: script did not load within %s", ErrWidgetUnavailable, c.cfg.ScriptLoadTimeout))
}

func (c *Controller) scriptReadyLocked() {
	c.scriptReady = true
	if c.state != ScriptLoading {
		// The load timeout already failed this identity.
		return
	}
	c.state = ScriptReady
	if c.identity == nil {
		c.logger.Debug("widget ready for anonymous visitor")
		c.finishLocked()
		return
	}
	c.startIdentificationLocked()
}

func (c *Controller) startIdentificationLocked() {
	c.state = IdentityPending
	c.err = nil
	if c.identifying {
		c.restartPending = true
		return
	}
	attempt := c.attempt
	c.pollTimer = c.clock.AfterFunc(0, func() { c.poll(attempt, 0) })
}

// poll checks readiness once. checks counts the checks already made.
func (c *Controller) poll(attempt uint64, checks int) {
	c.mu.Lock()
	if !c.currentLocked(attempt) {
		c.mu.Unlock()
		return
	}
	c.pollTimer = nil
	c.mu.Unlock()

	ready := c.widgetReady()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(attempt) {
		return
	}
	if ready {
		c.requestTokenLocked(attempt)
		return
	}

	checks++
	if checks >= c.cfg.Readiness.MaxAttempts {
		c.failLocked(fmt.Errorf("%w: not ready after %d checks", ErrWidgetUnavailable, checks))
		return
	}
	c.pollTimer = c.clock.AfterFunc(c.cfg.Readiness.Interval, func() { c.poll(attempt, checks) })
}

func (c *Controller) widgetReady() bool {
	if c.client == nil {
		return false
	}
	state, err := c.clientState()
	if err != nil {
		return false
	}
	return state == StateInitialized || state == StateReady
}

func (c *Controller) requestTokenLocked(attempt uint64) {
	if c.tokens == nil {
		c.failLocked(fmt.Errorf("%w: no token source", ErrIdentificationFailed))
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.cfg.TokenTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.cfg.TokenTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.cancelToken = cancel
	session := c.session
	id := *c.identity

	go func() {
		defer cancel()
		token, err := c.issueToken(ctx, id.UserID)
		c.onToken(session, attempt, id, token, err)
	}()
}

func (c *Controller) onToken(session, attempt uint64, id Identity, token identity.Token, err error) {
	c.mu.Lock()
	if !c.currentLocked(attempt) {
		c.mu.Unlock()
		return
	}
	c.cancelToken = nil
	if err != nil {
		c.failLocked(fmt.Errorf("%w: token request: %v", ErrIdentificationFailed, err))
		c.mu.Unlock()
		return
	}
	c.identifying = true
	c.mu.Unlock()

	identifyErr := c.identify(NewIdentifyPayload(id, token))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.identifying = false
	if identifyErr == nil && c.liveLocked(session) {
		c.identified[id] = true
	}
	if attempt != c.attempt {
		if c.restartPending {
			c.resumeLocked()
		}
		return
	}
	if identifyErr != nil {
		c.failLocked(fmt.Errorf("%w: identify: %v", ErrIdentificationFailed, identifyErr))
		return
	}
	c.state = Identified
	c.logger.Info("widget visitor identified", slog.String("user_id", id.UserID))
	c.finishLocked()
}

// resumeLocked runs the identification that was queued behind an Identify
// call for an identity that has since changed.
func (c *Controller) resumeLocked() {
	c.restartPending = false
	if !c.mounted || c.state != IdentityPending || c.identity == nil {
		return
	}
	if c.identified[*c.identity] {
		c.state = Identified
		c.logger.Debug("widget visitor already identified", slog.String("user_id", c.identity.UserID))
		c.finishLocked()
		return
	}
	c.startIdentificationLocked()
}

func (c *Controller) failLocked(err error) {
	c.state = IdentityFailed
	c.err = err
	c.logger.Warn("widget identification failed", slog.String("error", err.Error()))
	c.finishLocked()
}

func (c *Controller) finishLocked() {
	done := c.done
	c.doneOnce.Do(func() { close(done) })
}

func (c *Controller) stopIdentificationLocked() {
	c.restartPending = false
	stopTimer(&c.pollTimer)
	if c.cancelToken != nil {
		c.cancelToken()
		c.cancelToken = nil
	}
}

func (c *Controller) liveLocked(session uint64) bool {
	return c.mounted && c.session == session
}

func (c *Controller) currentLocked(attempt uint64) bool {
	return c.mounted && c.attempt == attempt && c.state == IdentityPending
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func normalize(id *Identity) *Identity {
	if id == nil || id.UserID == "" {
		return nil
	}
	cp := *id
	return &cp
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
