// Package session owns the mutable authentication and connectivity state of
// one client instance: the bearer credential, the rotating refresh token, and
// the connection flag. All mutation goes through the Lifecycle and Guard
// types; everything else only ever reads immutable snapshots, so concurrent
// transfer workers never race on token state.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNoToken is returned by Token before the first successful refresh.
var ErrNoToken = errors.New("session: no access token (refresh has not succeeded yet)")

// Session is the per-client authentication state. One Session exists per
// client instance; it is passed explicitly, never held in a package global.
// Auth headers are always derived from the current access token at the point
// of use, so they can never fall out of sync with it.
type Session struct {
	mu            sync.RWMutex
	accessToken   string
	refreshToken  string
	lastRefreshed time.Time
	connected     bool
}

// New creates a Session seeded with the configured refresh token.
// The access token is empty until the first Refresh.
func New(refreshToken string) *Session {
	return &Session{refreshToken: refreshToken}
}

// Token returns the current access token. Implements the graph package's
// TokenSource for request-time reads.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return "", ErrNoToken
	}

	return s.accessToken, nil
}

// Snapshot is an immutable copy of the access token, taken once before a
// batch is launched. Workers authenticate with the snapshot and never read
// live session state.
type Snapshot string

// Token implements the graph package's TokenSource.
func (s Snapshot) Token() (string, error) {
	if s == "" {
		return "", ErrNoToken
	}

	return string(s), nil
}

// Snapshot returns the current access token frozen for the duration of a batch.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot(s.accessToken)
}

// Connected reports whether the last connectivity check succeeded.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

// LastRefreshed returns the time of the last successful token refresh.
func (s *Session) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastRefreshed
}

// currentRefreshToken reads the refresh token for the next exchange.
func (s *Session) currentRefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.refreshToken
}

// update atomically replaces both tokens and the refresh timestamp.
// Only called by Lifecycle after a successful exchange.
func (s *Session) update(accessToken, refreshToken string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.lastRefreshed = at
}

// setConnected records the outcome of a connectivity check.
// Only called by Guard.
func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = v
}

// RetryPolicy bounds the connection guard's behavior. Immutable after
// construction; built from validated configuration.
type RetryPolicy struct {
	// MaxAttempts is the number of refresh+probe rounds before giving up.
	MaxAttempts int
	// ProbeDelay is the fixed wait between failed probe attempts.
	ProbeDelay time.Duration
	// RefreshInterval is how long a token is considered fresh.
	RefreshInterval time.Duration
}
