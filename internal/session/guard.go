package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotConnected is returned when the connection guard exhausts its retry
// budget without a successful probe. Fatal for the calling operation; no
// layer above retries it transparently.
var ErrNotConnected = errors.New("session: could not establish connection")

// Prober checks reachability of the remote API's identity endpoint.
// Defined here at the consumer; the graph client provides the implementation.
type Prober interface {
	Probe(ctx context.Context) error
}

// Guard gates every public operation: connect if needed, refresh if stale.
// Combining both checks means each public call pays at most one lightweight
// timestamp comparison on the happy path.
type Guard struct {
	sess   *Session
	life   *Lifecycle
	prober Prober
	policy RetryPolicy
	logger *slog.Logger

	// sleepFunc waits between probe attempts. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewGuard creates the connection guard. The policy must allow at least one
// attempt.
func NewGuard(
	sess *Session,
	life *Lifecycle,
	prober Prober,
	policy RetryPolicy,
	logger *slog.Logger,
) (*Guard, error) {
	if policy.MaxAttempts < 1 {
		return nil, fmt.Errorf("session: retry policy needs at least 1 attempt, got %d", policy.MaxAttempts)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{
		sess:      sess,
		life:      life,
		prober:    prober,
		policy:    policy,
		logger:    logger,
		sleepFunc: sleepCtx,
	}, nil
}

// EnsureConnected is the idempotent precondition for every public operation.
// When disconnected it runs up to MaxAttempts refresh+probe rounds with a
// fixed delay between them. A refresh failure aborts immediately — retrying
// cannot help an invalid grant. Once connected it performs the heartbeat
// freshness check.
func (g *Guard) EnsureConnected(ctx context.Context) error {
	if !g.sess.Connected() {
		if err := g.connect(ctx); err != nil {
			return err
		}
	}

	return g.life.EnsureFresh(ctx, g.policy.RefreshInterval)
}

func (g *Guard) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := g.life.Refresh(ctx); err != nil {
			return err
		}

		probeErr := g.prober.Probe(ctx)
		if probeErr == nil {
			g.sess.setConnected(true)
			g.logger.Info("connection established",
				slog.Int("attempt", attempt),
			)

			return nil
		}

		g.logger.Warn("connection probe failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", g.policy.MaxAttempts),
			slog.String("error", probeErr.Error()),
		)

		if attempt >= g.policy.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrNotConnected, attempt, probeErr)
		}

		if err := g.sleepFunc(ctx, g.policy.ProbeDelay); err != nil {
			return fmt.Errorf("session: connect canceled: %w", err)
		}
	}
}

// sleepCtx waits for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
