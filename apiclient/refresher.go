package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/taskflow/taskflow-go/credentials"
)

// refreshPath is the auth service's refresh endpoint. There is one refresh
// authority for the whole system: clients talking to the team and task
// services still refresh through the auth service.
const refreshPath = "/api/auth/token/refresh/"

// Refresher exchanges the stored refresh token for a new access token.
// Concurrent callers (parallel 401s across any of the backend clients)
// coalesce onto a single in-flight network call; only the first caller hits
// the network and every waiter observes the same outcome.
//
// On any refresh failure the Refresher clears the credential store and fires
// the session-invalidated handler so the application can return to its
// unauthenticated entry point.
type Refresher struct {
	endpoint    string
	store       credentials.Store
	httpClient  *http.Client
	logger      zerolog.Logger
	invalidated func()

	lock     sync.Mutex
	inflight *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// RefresherOption modifies a Refresher at construction time.
type RefresherOption func(*Refresher)

// WithRefresherHTTPClient overrides the transport used for refresh calls.
func WithRefresherHTTPClient(hc *http.Client) RefresherOption {
	return func(r *Refresher) { r.httpClient = hc }
}

// WithRefresherLogger sets the logger used for refresh events.
func WithRefresherLogger(logger zerolog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = logger }
}

// WithSessionInvalidatedHandler registers the callback fired after a failed
// refresh has cleared the credentials. The routing layer subscribes here
// instead of the transport layer navigating anywhere itself.
func WithSessionInvalidatedHandler(handler func()) RefresherOption {
	return func(r *Refresher) { r.invalidated = handler }
}

// NewRefresher creates the refresh authority for authBaseURL, shared by every
// backend client that uses store.
func NewRefresher(authBaseURL string, store credentials.Store, options ...RefresherOption) (*Refresher, error) {
	if authBaseURL == "" {
		return nil, errors.New("[NewRefresher] authBaseURL is required")
	}
	if store == nil {
		return nil, errors.New("[NewRefresher] store is required")
	}

	r := &Refresher{
		endpoint:   strings.TrimRight(authBaseURL, "/") + refreshPath,
		store:      store,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Refresh obtains a new access token, joining any refresh already in flight.
// A nil return means the store now holds a server-accepted access token.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.lock.Lock()
	if call := r.inflight; call != nil {
		r.lock.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	r.lock.Unlock()

	call.err = r.refresh(ctx)

	r.lock.Lock()
	r.inflight = nil
	r.lock.Unlock()
	close(call.done)

	if call.err != nil {
		r.logger.Warn().Err(call.err).Msg("token refresh failed, session invalidated")
		r.store.Clear()
		if r.invalidated != nil {
			r.invalidated()
		}
	}
	return call.err
}

func (r *Refresher) refresh(ctx context.Context) error {
	refreshToken := r.store.RefreshToken()
	if refreshToken == "" {
		return errors.Wrap(ErrUnauthenticated, "[Refresher.refresh] no refresh token available")
	}

	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return errors.Wrap(err, "[Refresher.refresh] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "[Refresher.refresh] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Refresher.refresh] refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(normalizeError(resp), "[Refresher.refresh]")
	}

	var body struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "[Refresher.refresh] decode response")
	}
	if body.Access == "" {
		return errors.New("[Refresher.refresh] empty access token in response")
	}

	// Re-read the refresh token at write time: a concurrent login may have
	// rotated it since this refresh started. An empty re-read means a logout
	// raced the refresh; the logout wins and the new token is discarded.
	current := r.store.RefreshToken()
	if current == "" {
		r.logger.Debug().Msg("credentials cleared during refresh, discarding new access token")
		return nil
	}
	r.store.SetTokens(body.Access, current)
	r.logger.Debug().Msg("access token refreshed")
	return nil
}
