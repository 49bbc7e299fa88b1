package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mtkoskinen/onedrive-batch/internal/tokenfile"
)

// ErrAuth is returned when the token exchange fails. It always propagates
// to the caller unchanged — the session never continues on a stale token.
var ErrAuth = errors.New("session: token refresh failed")

// maxTokenResponseBytes bounds the token endpoint response read.
const maxTokenResponseBytes = 1 << 20

// Credentials are the static parameters of the refresh-token grant.
type Credentials struct {
	AuthURL     string
	ClientID    string
	Scope       string
	RedirectURI string
}

// Lifecycle is the single authority over the Session's token state. Only its
// Refresh mutates the tokens; workers never trigger a refresh themselves.
type Lifecycle struct {
	sess       *Session
	httpClient *http.Client
	creds      Credentials
	cachePath  string // "" disables on-disk token persistence
	logger     *slog.Logger

	// now is the clock, injectable for staleness tests.
	now func() time.Time
}

// NewLifecycle creates the token lifecycle for a session. cachePath, when
// non-empty, is where rotated tokens are persisted between runs.
func NewLifecycle(
	sess *Session,
	httpClient *http.Client,
	creds Credentials,
	cachePath string,
	logger *slog.Logger,
) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Lifecycle{
		sess:       sess,
		httpClient: httpClient,
		creds:      creds,
		cachePath:  cachePath,
		logger:     logger,
		now:        time.Now,
	}
}

// tokenResponse mirrors the token endpoint's JSON success body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Restore seeds the session from the on-disk token cache, if one exists.
// The cached token's refresh token supersedes the configured one because the
// endpoint rotates it on every exchange. The refresh timestamp is left at
// zero so the next EnsureFresh performs a real refresh.
func (l *Lifecycle) Restore() error {
	if l.cachePath == "" {
		return nil
	}

	tok, err := tokenfile.Load(l.cachePath)
	if err != nil {
		return err
	}

	if tok == nil || tok.RefreshToken == "" {
		return nil
	}

	l.sess.mu.Lock()
	l.sess.refreshToken = tok.RefreshToken
	l.sess.mu.Unlock()

	l.logger.Info("restored refresh token from cache",
		slog.String("path", l.cachePath),
	)

	return nil
}

// Refresh exchanges the current refresh token for a new access/refresh token
// pair. On success both tokens and the refresh timestamp are replaced
// atomically and the rotated token is persisted. On any failure the session
// is left untouched and ErrAuth propagates.
func (l *Lifecycle) Refresh(ctx context.Context) error {
	form := url.Values{
		"client_id":     {l.creds.ClientID},
		"scope":         {l.creds.Scope},
		"refresh_token": {l.sess.currentRefreshToken()},
		"redirect_uri":  {l.creds.RedirectURI},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.creds.AuthURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrAuth, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrAuth, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned HTTP %d", ErrAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrAuth, err)
	}

	if tr.AccessToken == "" {
		return fmt.Errorf("%w: response missing access_token", ErrAuth)
	}

	if tr.RefreshToken == "" {
		return fmt.Errorf("%w: response missing refresh_token", ErrAuth)
	}

	refreshedAt := l.now()
	l.sess.update(tr.AccessToken, tr.RefreshToken, refreshedAt)

	l.logger.Info("token refreshed",
		slog.Time("refreshed_at", refreshedAt),
	)

	l.persist(&tr, refreshedAt)

	return nil
}

// persist writes the rotated token to the cache path. A persistence failure
// is logged but does not fail the refresh — the in-memory session is already
// consistent and usable.
func (l *Lifecycle) persist(tr *tokenResponse, refreshedAt time.Time) {
	if l.cachePath == "" {
		return
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    "Bearer",
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = refreshedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if err := tokenfile.Save(l.cachePath, tok); err != nil {
		l.logger.Warn("failed to persist rotated token",
			slog.String("path", l.cachePath),
			slog.String("error", err.Error()),
		)

		return
	}

	l.logger.Debug("persisted rotated token",
		slog.String("path", l.cachePath),
	)
}

// EnsureFresh refreshes the token when it is older than the given interval.
// Two calls in immediate succession perform at most one refresh.
func (l *Lifecycle) EnsureFresh(ctx context.Context, interval time.Duration) error {
	if l.now().Sub(l.sess.LastRefreshed()) <= interval {
		return nil
	}

	l.logger.Debug("token stale, refreshing",
		slog.Time("last_refreshed", l.sess.LastRefreshed()),
		slog.Duration("interval", interval),
	)

	return l.Refresh(ctx)
}
