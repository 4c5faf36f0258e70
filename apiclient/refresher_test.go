package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-go/apiclient"
	"github.com/taskflow/taskflow-go/credentials"
)

func TestRefresherCoalescesConcurrentCalls(t *testing.T) {
	var networkCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkCalls.Add(1)
		time.Sleep(200 * time.Millisecond) // Hold the call open so waiters pile up
		_ = json.NewEncoder(w).Encode(map[string]string{"access": newAccessToken})
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	store.SetTokens(oldAccessToken, theRefreshToken)

	refresher, err := apiclient.NewRefresher(server.URL, store)
	require.NoError(t, err)

	const waiters = 8
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = refresher.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
	}
	require.Equal(t, int64(1), networkCalls.Load(), "concurrent refreshes must share one network call")
	require.Equal(t, newAccessToken, store.AccessToken())
}

func TestRefresherPreservesRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access": newAccessToken})
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	store.SetTokens(oldAccessToken, theRefreshToken)

	refresher, err := apiclient.NewRefresher(server.URL, store)
	require.NoError(t, err)
	require.NoError(t, refresher.Refresh(context.Background()))

	require.Equal(t, newAccessToken, store.AccessToken())
	require.Equal(t, theRefreshToken, store.RefreshToken())
}

func TestRefresherLogoutDuringRefreshWins(t *testing.T) {
	store := credentials.NewMemoryStore()
	store.SetTokens(oldAccessToken, theRefreshToken)

	// The store is cleared while the refresh call is still in flight, as a
	// logout from another goroutine would do. The new access token must not
	// resurrect the cleared session.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store.Clear()
		_ = json.NewEncoder(w).Encode(map[string]string{"access": newAccessToken})
	}))
	defer server.Close()

	refresher, err := apiclient.NewRefresher(server.URL, store)
	require.NoError(t, err)
	require.NoError(t, refresher.Refresh(context.Background()))

	require.Empty(t, store.AccessToken())
	require.Empty(t, store.RefreshToken())
}

func TestRefresherWithoutTokenFailsWithoutNetworkCall(t *testing.T) {
	var networkCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkCalls.Add(1)
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	var invalidated atomic.Int64
	refresher, err := apiclient.NewRefresher(server.URL, store,
		apiclient.WithSessionInvalidatedHandler(func() { invalidated.Add(1) }),
	)
	require.NoError(t, err)

	err = refresher.Refresh(context.Background())
	require.ErrorIs(t, err, apiclient.ErrUnauthenticated)
	require.Equal(t, int64(0), networkCalls.Load())
	require.Equal(t, int64(1), invalidated.Load())
}

func TestRefresherRefreshAfterCompletionIssuesNewCall(t *testing.T) {
	var networkCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"access": newAccessToken})
	}))
	defer server.Close()

	store := credentials.NewMemoryStore()
	store.SetTokens(oldAccessToken, theRefreshToken)

	refresher, err := apiclient.NewRefresher(server.URL, store)
	require.NoError(t, err)

	// Sequential refreshes are not coalesced, only overlapping ones.
	require.NoError(t, refresher.Refresh(context.Background()))
	require.NoError(t, refresher.Refresh(context.Background()))
	require.Equal(t, int64(2), networkCalls.Load())
}
