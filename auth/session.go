package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/taskflow/taskflow-go/credentials"
	"github.com/taskflow/taskflow-go/token"
	"github.com/taskflow/taskflow-go/users"
)

// State is the session lifecycle state. A session starts Bootstrapping,
// resolves to Authenticated or Unauthenticated, and never re-enters
// Bootstrapping.
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// SessionManager owns the authoritative in-memory session. All
// authentication state transitions go through it; page-level code reads
// CurrentUser and never touches tokens directly.
type SessionManager struct {
	service *Service
	store   credentials.Store
	logger  zerolog.Logger
	nowTime func() time.Time

	lock         sync.RWMutex
	state        State
	current      *users.UserProfile
	bootstrapped bool
}

// SessionManagerOption modifies a SessionManager at construction time.
type SessionManagerOption func(*SessionManager)

// WithSessionLogger sets the logger for session transitions.
func WithSessionLogger(logger zerolog.Logger) SessionManagerOption {
	return func(sm *SessionManager) { sm.logger = logger }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) SessionManagerOption {
	return func(sm *SessionManager) { sm.nowTime = nowFunc }
}

// NewSessionManager creates a session manager in the Bootstrapping state.
func NewSessionManager(service *Service, store credentials.Store, options ...SessionManagerOption) (*SessionManager, error) {
	if service == nil {
		return nil, errors.New("[NewSessionManager] service is required")
	}
	if store == nil {
		return nil, errors.New("[NewSessionManager] store is required")
	}

	sm := &SessionManager{
		service: service,
		store:   store,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
		state:   StateBootstrapping,
	}
	for _, opt := range options {
		opt(sm)
	}
	return sm, nil
}

// Bootstrap resolves the initial session state from the credential store,
// validating any cached token against the auth service. It runs once;
// subsequent calls are no-ops. Any validation failure (including a failed
// silent refresh inside the HTTP client) clears all credentials.
func (sm *SessionManager) Bootstrap(ctx context.Context) error {
	sm.lock.Lock()
	if sm.bootstrapped {
		sm.lock.Unlock()
		return nil
	}
	sm.bootstrapped = true
	sm.lock.Unlock()

	cachedUser := sm.store.User()
	accessToken := sm.store.AccessToken()

	if cachedUser == nil || accessToken == "" {
		sm.setState(StateUnauthenticated, nil)
		return nil
	}

	if token.Expired(accessToken, sm.nowTime()) {
		sm.logger.Debug().Msg("cached access token expired, validation will refresh")
	}

	profile, err := sm.service.CurrentUser(ctx)
	if err != nil {
		sm.logger.Warn().Err(err).Msg("cached session rejected, logging out")
		sm.store.Clear()
		sm.setState(StateUnauthenticated, nil)
		return nil
	}

	sm.store.SetUser(profile)
	sm.setState(StateAuthenticated, profile)
	sm.logger.Info().Str("email", profile.Email).Msg("session restored")
	return nil
}

// Login authenticates and adopts the returned profile as the current user.
// On failure the session state is left unchanged.
func (sm *SessionManager) Login(ctx context.Context, email, password string) (*users.UserProfile, error) {
	result, err := sm.service.Login(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionManager.Login]")
	}
	sm.setState(StateAuthenticated, &result.User)
	return &result.User, nil
}

// Signup registers a new account and adopts the returned profile.
func (sm *SessionManager) Signup(ctx context.Context, params SignupParams) (*users.UserProfile, error) {
	result, err := sm.service.Signup(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionManager.Signup]")
	}
	sm.setState(StateAuthenticated, &result.User)
	return &result.User, nil
}

// Logout clears credentials and the current user. Idempotent and offline-safe.
func (sm *SessionManager) Logout() {
	sm.service.Logout()
	sm.setState(StateUnauthenticated, nil)
}

// RefreshUser re-fetches the current profile. Any failure is treated as a
// logout rather than retried; the error is returned for logging only.
func (sm *SessionManager) RefreshUser(ctx context.Context) error {
	profile, err := sm.service.CurrentUser(ctx)
	if err != nil {
		sm.Logout()
		return errors.Wrap(err, "[SessionManager.RefreshUser]")
	}
	sm.store.SetUser(profile)
	sm.setState(StateAuthenticated, profile)
	return nil
}

// CurrentUser returns the current user, nil when unauthenticated.
func (sm *SessionManager) CurrentUser() *users.UserProfile {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	if sm.current == nil {
		return nil
	}
	u := *sm.current
	return &u
}

// Authenticated reports whether a user is signed in.
func (sm *SessionManager) Authenticated() bool {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.state == StateAuthenticated
}

// Loading reports whether the initial bootstrap is still unresolved.
func (sm *SessionManager) Loading() bool {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.state == StateBootstrapping
}

// State returns the current session state.
func (sm *SessionManager) State() State {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.state
}

// Invalidate is the session-invalidated hook wired to the refresher: a
// failed token refresh anywhere drops the session to Unauthenticated. The
// credential store has already been cleared by then.
func (sm *SessionManager) Invalidate() {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if sm.state == StateBootstrapping {
		// Bootstrap resolves its own outcome.
		return
	}
	sm.state = StateUnauthenticated
	sm.current = nil
}

func (sm *SessionManager) setState(state State, user *users.UserProfile) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	sm.state = state
	sm.current = user
}
