// Package throttle limits repeated failed logins per account. A fixed window
// of failures hard-locks the email until the window lapses; successful login
// clears the counter.
package throttle

import (
	"context"
	"log/slog"
	"strings"
	"time"

	dErrors "quizforge/pkg/domain-errors"
	"quizforge/pkg/requestcontext"
)

const (
	// DefaultMaxFailures before the email is locked for the window.
	DefaultMaxFailures = 5
	// DefaultWindow bounds both the failure count and the lock duration.
	DefaultWindow = 15 * time.Minute
)

// Store counts failures inside a fixed window. Implementations are pure I/O;
// the lock decision lives here.
type Store interface {
	// RecordFailure increments the counter, starting the window on the
	// first failure, and returns the new count.
	RecordFailure(ctx context.Context, key string) (int, error)
	// Failures returns the current in-window count.
	Failures(ctx context.Context, key string) (int, error)
	// Clear resets the counter.
	Clear(ctx context.Context, key string) error
}

type Throttle struct {
	store       Store
	maxFailures int
	logger      *slog.Logger
}

type Option func(*Throttle)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Throttle) { t.logger = logger }
}

func WithMaxFailures(n int) Option {
	return func(t *Throttle) {
		if n > 0 {
			t.maxFailures = n
		}
	}
}

func New(store Store, opts ...Option) *Throttle {
	t := &Throttle{store: store, maxFailures: DefaultMaxFailures}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow reports whether a login attempt for the email may proceed. Store
// failures degrade to allowing the attempt: the throttle is a shield, not a
// gate that can take down logins when its backend is unreachable.
func (t *Throttle) Allow(ctx context.Context, email string) bool {
	count, err := t.store.Failures(ctx, keyFor(email))
	if err != nil {
		if t.logger != nil {
			t.logger.WarnContext(ctx, "login throttle check failed, allowing attempt",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return true
	}
	return count < t.maxFailures
}

// OnFailure records a failed attempt. Returns a domain error only when the
// failure tips the account into a locked state, so the caller can log it.
func (t *Throttle) OnFailure(ctx context.Context, email string) error {
	count, err := t.store.RecordFailure(ctx, keyFor(email))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if count == t.maxFailures && t.logger != nil {
		t.logger.WarnContext(ctx, "login throttle engaged",
			"email", email,
			"failures", count,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

// OnSuccess clears the failure counter.
func (t *Throttle) OnSuccess(ctx context.Context, email string) {
	if err := t.store.Clear(ctx, keyFor(email)); err != nil && t.logger != nil {
		t.logger.WarnContext(ctx, "failed to clear login throttle",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func keyFor(email string) string {
	return "login_failures:" + strings.ToLower(strings.TrimSpace(email))
}
