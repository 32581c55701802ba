package users_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/retry"
	"github.com/rpggio/trackboard/internal/users"
	"github.com/stretchr/testify/require"
)

const directoryJSON = `[
  {"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz",
   "address": {"street": "Kulas Light", "city": "Gwenborough"}, "phone": "1-770-736-8031"},
  {"id": 2, "name": "Ervin Howell", "username": "Antonette", "email": "Shanna@melissa.tv"}
]`

var fastRetry = retry.Policy{
	MaxTimeoutRetries:   3,
	MaxTransientRetries: 3,
	NetworkIsTransient:  true,
	BaseDelay:           time.Millisecond,
	MaxDelay:            2 * time.Millisecond,
}

func newDirectoryServer(t *testing.T, failures int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		if int(calls.Add(1)) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(directoryJSON))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestDirectory_LookupResolves(t *testing.T) {
	server, calls := newDirectoryServer(t, 0)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))
	ctx := context.Background()

	res := dir.Lookup(ctx, 2)
	require.True(t, res.Resolved)
	require.Equal(t, users.User{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"}, res.User)
	require.Equal(t, "Ervin Howell", res.Label())

	res = dir.Lookup(ctx, 1)
	require.Equal(t, "Leanne Graham", res.Label())
	require.Equal(t, int32(1), calls.Load(), "second lookup is served from cache")
}

func TestDirectory_UnknownIDDegrades(t *testing.T) {
	server, _ := newDirectoryServer(t, 0)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))

	res := dir.Lookup(context.Background(), 99)
	require.False(t, res.Resolved)
	require.Equal(t, 99, res.ID)
	require.Equal(t, users.UnknownLabel, res.Label())
}

func TestDirectory_RetriesTransientFailures(t *testing.T) {
	server, calls := newDirectoryServer(t, 3)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))

	list, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int32(4), calls.Load())
}

func TestDirectory_FailureDegrades(t *testing.T) {
	server, calls := newDirectoryServer(t, 100)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))

	_, err := dir.List(context.Background())
	var serr *client.StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusServiceUnavailable, serr.Status)
	require.Equal(t, int32(4), calls.Load())
	require.Equal(t, "Failed to fetch users", users.Message(err))

	res := dir.Lookup(context.Background(), 1)
	require.Equal(t, users.UnknownLabel, res.Label())
}

func TestDirectory_FailureRememberedAcrossLookups(t *testing.T) {
	server, calls := newDirectoryServer(t, 100)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))
	ctx := context.Background()

	for id := 1; id <= 5; id++ {
		require.Equal(t, users.UnknownLabel, dir.Lookup(ctx, id).Label())
	}
	require.Equal(t, int32(4), calls.Load(), "one retry cycle for all lookups")

	_, err := dir.List(ctx)
	var serr *client.StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, int32(4), calls.Load())
}

func TestDirectory_FailureExpires(t *testing.T) {
	server, calls := newDirectoryServer(t, 4)
	dir := users.New(time.Minute,
		users.WithBaseURL(server.URL),
		users.WithRetry(fastRetry),
		users.WithFailureTTL(20*time.Millisecond),
	)
	ctx := context.Background()

	_, err := dir.List(ctx)
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return dir.Lookup(ctx, 1).Resolved
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(5), calls.Load())
}

func TestDirectory_InvalidateForgetsFailure(t *testing.T) {
	server, calls := newDirectoryServer(t, 4)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))
	ctx := context.Background()

	_, err := dir.List(ctx)
	require.Error(t, err)
	dir.Invalidate()

	require.True(t, dir.Lookup(ctx, 2).Resolved)
	require.Equal(t, int32(5), calls.Load())
}

func TestResolve(t *testing.T) {
	list := []users.User{{ID: 1, Name: "Leanne Graham"}}
	require.Equal(t, "Leanne Graham", users.Resolve(list, 1).Label())
	require.Equal(t, users.UnknownLabel, users.Resolve(list, 2).Label())
	require.False(t, users.Resolve(nil, 1).Resolved)
}

func TestDirectory_TTLExpiry(t *testing.T) {
	server, calls := newDirectoryServer(t, 0)
	dir := users.New(20*time.Millisecond, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))
	ctx := context.Background()

	_, err := dir.List(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := dir.List(ctx)
		return err == nil && calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDirectory_Invalidate(t *testing.T) {
	server, calls := newDirectoryServer(t, 0)
	dir := users.New(time.Minute, users.WithBaseURL(server.URL), users.WithRetry(fastRetry))
	ctx := context.Background()

	_, err := dir.List(ctx)
	require.NoError(t, err)
	dir.Invalidate()
	_, err = dir.List(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestMessage(t *testing.T) {
	require.Equal(t, "Request timed out while fetching user data. Please try again.",
		users.Message(client.Classify(context.Background(), context.DeadlineExceeded)))
	require.Equal(t, "Network error while fetching user data. Please check your connection.",
		users.Message(client.Classify(context.Background(), errors.New("connection refused"))))
}
