package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

var (
	// ErrLoginInProgress is returned when a login is attempted while another is still running.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrInvalidTransition is returned when an operation is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSuperseded is returned when a transition lost a race with another one.
	ErrSuperseded = errors.New("session changed while transition was running")
)

const (
	MsgLoginFailed = "Login failed: the server returned an unreadable token."
	MsgLoggedOut   = "Logged out."
	MsgSoftLogout  = "Session expired. Please log in again."
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (string, error)
}

// Validator asks the server whether the current token is still honored.
//
// A nil error with false means the server answered and rejected the token.
type Validator interface {
	Validate(ctx context.Context) (bool, error)
}

// Routes names the navigation targets used after login and hard logout.
type Routes struct {
	Login string
	Items string
}

// Options holds the collaborators of a [Manager]. Store is required.
type Options struct {
	Store         CredentialStore
	Decoder       Decoder
	Authenticator Authenticator
	Validator     Validator
	Notifier      shared.Notifier
	Navigator     shared.Navigator
	Routes        Routes
	Logger        *log.Logger
}

// Manager owns the session state machine.
type Manager struct {
	mu         sync.Mutex
	status     Status
	token      string
	identity   models.Identity
	generation uint64
	loggingIn  bool
	attempt    uint64

	store     CredentialStore
	decode    Decoder
	auth      Authenticator
	validator Validator
	notifier  shared.Notifier
	navigator shared.Navigator
	routes    Routes
	logger    *log.Logger

	initialized bool
	cancel      context.CancelFunc
	done        chan struct{}

	listeners    map[int]func(Snapshot)
	nextListener int
}

// NewManager creates an unauthenticated [Manager]. Call [Manager.Init] to restore a persisted session.
func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = NewMemoryStore("")
	}
	if opts.Decoder == nil {
		opts.Decoder = Decode
	}
	if opts.Notifier == nil {
		opts.Notifier = shared.NopNotifier{}
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.NopNavigator{}
	}
	if opts.Routes.Login == "" {
		opts.Routes.Login = "/login"
	}
	if opts.Routes.Items == "" {
		opts.Routes.Items = "/todos"
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &Manager{
		store:     opts.Store,
		decode:    opts.Decoder,
		auth:      opts.Authenticator,
		validator: opts.Validator,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		routes:    opts.Routes,
		logger:    shared.WithLogger(opts.Logger, "component", "session"),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Init restores a persisted token, if any, and starts the one-time startup validation in the background.
//
// Init never waits on the network. The returned channel is closed once validation has settled, or
// immediately when there is nothing to validate. Calling Init again returns the same channel.
func (m *Manager) Init(ctx context.Context) <-chan struct{} {
	m.mu.Lock()
	if m.initialized {
		done := m.done
		m.mu.Unlock()
		return done
	}
	m.initialized = true
	m.done = make(chan struct{})

	token, err := m.store.Get()
	if err != nil {
		m.logger.Warn("failed to read credential store", "err", err)
	}
	if err != nil || token == "" || m.status != Unauthenticated {
		close(m.done)
		m.mu.Unlock()
		return m.done
	}

	identity, err := m.decode(token)
	if err != nil {
		m.logger.Warn("discarding unreadable stored token", "err", err)
		m.clearStoreLocked()
		close(m.done)
		m.mu.Unlock()
		return m.done
	}

	m.token, m.identity = token, identity
	m.generation++
	gen := m.generation

	if m.validator == nil {
		m.status = Authenticated
		snap := m.snapshotLocked()
		close(m.done)
		m.mu.Unlock()
		m.emit(snap)
		return m.done
	}

	m.status = Validating
	// Only Teardown stops validation; the caller's ctx may end before it settles.
	vctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	done := m.done
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.emit(snap)
	m.logger.Debug("validating restored session", "subject", identity.SubjectID)
	go m.validate(vctx, gen, done)

	return done
}

// validate performs the startup validation call and settles the Validating status.
func (m *Manager) validate(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ok, err := m.validator.Validate(ctx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if m.status != Validating || m.generation != gen {
		m.mu.Unlock()
		m.logger.Debug("startup validation superseded")
		return
	}

	switch {
	case err == nil && ok:
		m.status = Authenticated
	case err != nil && apierr.IsKind(err, apierr.KindNetwork):
		m.logger.Warn("could not validate session, keeping it", "err", err)
		m.status = Authenticated
	default:
		m.logger.Info("stored session rejected by server", "err", err)
		m.resetLocked()
		m.clearStoreLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.emit(snap)
		m.notifier.Notify(shared.NoticeError, MsgSoftLogout)
		return
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.emit(snap)
}

// Teardown stops a pending startup validation and drops all listeners.
func (m *Manager) Teardown() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.listeners = make(map[int]func(Snapshot))
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Login submits credentials through the [Authenticator] and accepts the returned token.
//
// A second Login while one is running is rejected with [ErrLoginInProgress]. A failed call leaves the
// session untouched and returns the error for the caller to classify.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) error {
	if m.auth == nil {
		return fmt.Errorf("%w: no authenticator configured", shared.ErrNotImplemented)
	}

	m.mu.Lock()
	if m.loggingIn || m.status == Authenticating {
		m.mu.Unlock()
		return ErrLoginInProgress
	}
	if m.status != Unauthenticated && m.status != Authenticated {
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot log in while %s", ErrInvalidTransition, status)
	}
	m.loggingIn = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loggingIn = false
		m.mu.Unlock()
	}()

	token, err := m.auth.Login(ctx, creds)
	if err != nil {
		return err
	}
	return m.accept(token, true)
}

// Accept installs a token obtained out of band, as if a login had just returned it.
func (m *Manager) Accept(token string) error {
	return m.accept(token, false)
}

func (m *Manager) accept(token string, fromLogin bool) error {
	m.mu.Lock()
	if m.status == Authenticating || (m.loggingIn && !fromLogin) {
		m.mu.Unlock()
		return ErrLoginInProgress
	}
	if m.status != Unauthenticated && m.status != Authenticated {
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot accept a token while %s", ErrInvalidTransition, status)
	}

	m.attempt++
	attempt := m.attempt
	m.status = Authenticating
	m.token = token
	m.identity = models.Identity{}
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.emit(snap)

	identity, decodeErr := m.decode(token)

	m.mu.Lock()
	if m.status != Authenticating || m.attempt != attempt {
		m.mu.Unlock()
		return ErrSuperseded
	}

	if decodeErr != nil {
		m.resetLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.emit(snap)
		m.logger.Warn("rejected token at login", "err", decodeErr)
		m.notifier.Notify(shared.NoticeError, MsgLoginFailed)
		return decodeErr
	}

	if err := m.store.Set(token); err != nil {
		m.logger.Warn("failed to persist token", "err", err)
	}
	m.status = Authenticated
	m.identity = identity
	snap = m.snapshotLocked()
	m.mu.Unlock()

	m.emit(snap)
	m.logger.Debug("logged in", "subject", identity.SubjectID)
	m.notifier.Notify(shared.NoticeSuccess, fmt.Sprintf("Logged in as %s.", identity.SubjectID))
	m.navigator.GoTo(m.routes.Items)
	return nil
}

// Logout clears token, identity and store together.
//
// It is idempotent: from Unauthenticated it only clears the store again. A hard logout also notifies
// the user and navigates to the login route; a soft one does neither.
func (m *Manager) Logout(hard bool) {
	m.mu.Lock()
	wasActive := m.status != Unauthenticated
	if wasActive {
		m.resetLocked()
	}
	m.clearStoreLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if !wasActive {
		return
	}

	m.emit(snap)
	m.logger.Debug("logged out", "hard", hard)
	if hard {
		m.notifier.Notify(shared.NoticeSuccess, MsgLoggedOut)
		m.navigator.GoTo(m.routes.Login)
	}
}

// Expire degrades the session after the server reported the token as no longer valid.
//
// The session passes through SoftExpired and ends Unauthenticated. Expire neither notifies nor navigates;
// the caller that observed the failure has already told the user.
func (m *Manager) Expire() {
	m.mu.Lock()
	if m.status != Authenticated && m.status != Validating {
		m.mu.Unlock()
		return
	}

	m.status = SoftExpired
	m.identity = models.Identity{}
	m.generation++
	expired := m.snapshotLocked()

	m.resetLocked()
	m.clearStoreLocked()
	cleared := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session expired")
	m.emit(expired)
	m.emit(cleared)
}

// Token returns the current bearer token, or "" when there is none.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Identity returns the current identity and whether one is present.
func (m *Manager) Identity() (models.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, !m.identity.IsZero()
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Generation returns the current session generation.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a [Snapshot] after every transition. Call the returned function to stop.
//
// Listeners run on the goroutine that performed the transition, after the lock is released.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) emit(snap Snapshot) {
	m.mu.Lock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// resetLocked returns to Unauthenticated, clearing token and identity together.
func (m *Manager) resetLocked() {
	if m.token != "" || !m.identity.IsZero() {
		m.generation++
	}
	m.status = Unauthenticated
	m.token = ""
	m.identity = models.Identity{}
}

func (m *Manager) clearStoreLocked() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear credential store", "err", err)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     m.status,
		Identity:   m.identity,
		HasToken:   m.token != "",
		Generation: m.generation,
	}
}
