package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtkoskinen/onedrive-batch/internal/tokenfile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCreds(authURL string) Credentials {
	return Credentials{
		AuthURL:     authURL,
		ClientID:    "client-1",
		Scope:       "Files.ReadWrite offline_access",
		RedirectURI: "http://localhost/",
	}
}

// tokenEndpoint returns an httptest server speaking the refresh-token grant,
// and a counter of exchanges performed.
func tokenEndpoint(t *testing.T, access, refresh string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.NotEmpty(t, r.PostForm.Get("refresh_token"))

		_, _ = w.Write([]byte(`{"access_token":"` + access +
			`","refresh_token":"` + refresh + `","expires_in":3600}`))
	}))

	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestRefresh_Success(t *testing.T) {
	srv, _ := tokenEndpoint(t, "new-access", "new-refresh")

	sess := New("initial-refresh")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	require.NoError(t, life.Refresh(context.Background()))

	tok, err := sess.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok)
	assert.Equal(t, "new-refresh", sess.currentRefreshToken())
	assert.False(t, sess.LastRefreshed().IsZero())
}

func TestRefresh_SendsRotatedTokenOnSecondExchange(t *testing.T) {
	var exchanges atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		n := exchanges.Add(1)
		if n == 1 {
			assert.Equal(t, "initial-refresh", r.PostForm.Get("refresh_token"))
		} else {
			assert.Equal(t, "rotated-1", r.PostForm.Get("refresh_token"))
		}

		_, _ = w.Write([]byte(`{"access_token":"a","refresh_token":"rotated-` +
			string(rune('0'+n)) + `"}`))
	}))
	defer srv.Close()

	sess := New("initial-refresh")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	require.NoError(t, life.Refresh(context.Background()))
	require.NoError(t, life.Refresh(context.Background()))
	assert.Equal(t, int32(2), exchanges.Load())
}

func TestRefresh_MissingAccessTokenLeavesSessionUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"refresh_token":"only-refresh"}`))
	}))
	defer srv.Close()

	sess := New("keep-me")
	sess.update("old-access", "keep-me", time.Unix(1000, 0))

	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	err := life.Refresh(context.Background())
	require.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "access_token")

	// Old state retained.
	tok, tokErr := sess.Token()
	require.NoError(t, tokErr)
	assert.Equal(t, "old-access", tok)
	assert.Equal(t, "keep-me", sess.currentRefreshToken())
	assert.Equal(t, time.Unix(1000, 0), sess.LastRefreshed())
}

func TestRefresh_MissingRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"a"}`))
	}))
	defer srv.Close()

	sess := New("r")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	assert.ErrorIs(t, life.Refresh(context.Background()), ErrAuth)
}

func TestRefresh_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	sess := New("r")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	err := life.Refresh(context.Background())
	require.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "400")
}

func TestEnsureFresh_RefreshesOnlyWhenStale(t *testing.T) {
	srv, calls := tokenEndpoint(t, "a", "r2")

	sess := New("r")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), "", testLogger())

	now := time.Unix(10_000, 0)
	life.now = func() time.Time { return now }

	const interval = time.Hour

	// Zero lastRefreshed is maximally stale — first call refreshes.
	require.NoError(t, life.EnsureFresh(context.Background(), interval))
	assert.Equal(t, int32(1), calls.Load())

	// Immediately after, the token is fresh — no second refresh.
	require.NoError(t, life.EnsureFresh(context.Background(), interval))
	assert.Equal(t, int32(1), calls.Load())

	// Advance past the interval — refreshes again.
	now = now.Add(interval + time.Second)
	require.NoError(t, life.EnsureFresh(context.Background(), interval))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefresh_PersistsRotatedToken(t *testing.T) {
	srv, _ := tokenEndpoint(t, "persisted-access", "persisted-refresh")

	cachePath := filepath.Join(t.TempDir(), "token.json")

	sess := New("r")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), cachePath, testLogger())

	require.NoError(t, life.Refresh(context.Background()))

	tok, err := tokenfile.Load(cachePath)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "persisted-refresh", tok.RefreshToken)
	assert.False(t, tok.Expiry.IsZero())
}

func TestRestore_SeedsRefreshTokenFromCache(t *testing.T) {
	srv, _ := tokenEndpoint(t, "a", "r2")

	cachePath := filepath.Join(t.TempDir(), "token.json")
	sess := New("configured-refresh")
	life := NewLifecycle(sess, srv.Client(), testCreds(srv.URL), cachePath, testLogger())

	// No cache file yet — configured token stands.
	require.NoError(t, life.Restore())
	assert.Equal(t, "configured-refresh", sess.currentRefreshToken())

	// Write a cache and restore again — cached rotation wins.
	require.NoError(t, life.Refresh(context.Background()))

	sess2 := New("configured-refresh")
	life2 := NewLifecycle(sess2, srv.Client(), testCreds(srv.URL), cachePath, testLogger())
	require.NoError(t, life2.Restore())
	assert.Equal(t, "r2", sess2.currentRefreshToken())
}

func TestSession_TokenBeforeRefresh(t *testing.T) {
	sess := New("r")

	_, err := sess.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = sess.Snapshot().Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSnapshot_FrozenAcrossRefresh(t *testing.T) {
	sess := New("r")
	sess.update("first", "r", time.Now())

	snap := sess.Snapshot()

	sess.update("second", "r2", time.Now())

	tok, err := snap.Token()
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	live, err := sess.Token()
	require.NoError(t, err)
	assert.Equal(t, "second", live)
}
