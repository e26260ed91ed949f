// Package session answers "who, if anyone, is making this request". The
// resolver is the single source of truth for session state: middleware runs it
// once per request and caches the result in the request context, so no other
// component re-derives identity from the cookie.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"quizforge/internal/auth/cookies"
	"quizforge/internal/auth/models"
	"quizforge/internal/auth/token"
	"quizforge/internal/platform/metrics"
	"quizforge/pkg/requestcontext"
)

type sessionKey struct{}

// FromContext returns the session resolved by Middleware. Missing value means
// the middleware did not run; treat as anonymous, never fail open.
func FromContext(ctx context.Context) models.Session {
	if s, ok := ctx.Value(sessionKey{}).(models.Session); ok {
		return s
	}
	return models.Anonymous
}

// Resolver maps a request's stored credential to a verified identity or to
// the anonymous session.
type Resolver struct {
	codec   *token.Codec
	cookies *cookies.Manager
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(codec *token.Codec, cookieManager *cookies.Manager, opts ...Option) *Resolver {
	r := &Resolver{codec: codec, cookies: cookieManager}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads the credential cookie and verifies it. Absent credential is
// anonymous. A credential that fails verification is also anonymous, and the
// stale client-held copy is discarded so subsequent requests short-circuit
// without re-attempting verification. Idempotent for unchanged cookie state.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) models.Session {
	credential, ok := cookies.Credential(req)
	if !ok {
		r.countVerification("missing")
		return models.Anonymous
	}

	identity, err := r.codec.Verify(credential, requestcontext.Now(req.Context()))
	if err != nil {
		// The taxonomy distinction is for logging only; the caller sees
		// a uniform anonymous result.
		r.countVerification(verificationResult(err))
		if r.logger != nil {
			r.logger.WarnContext(req.Context(), "discarding invalid credential",
				"reason", verificationResult(err),
				"request_id", requestcontext.RequestID(req.Context()),
			)
		}
		r.cookies.ClearCredential(w)
		return models.Anonymous
	}

	r.countVerification("ok")
	return models.Session{Identity: identity}
}

// Middleware resolves the session once and stores it in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sess := r.Resolve(w, req)
		ctx := context.WithValue(req.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (r *Resolver) countVerification(result string) {
	if r.metrics != nil {
		r.metrics.TokenVerifications.WithLabelValues(result).Inc()
	}
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "signature_mismatch"
	case errors.Is(err, token.ErrMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
