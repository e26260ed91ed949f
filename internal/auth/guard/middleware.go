package guard

import (
	"log/slog"
	"net/http"
	"strings"

	"quizforge/internal/auth/cookies"
	"quizforge/internal/auth/session"
	"quizforge/internal/platform/metrics"
	"quizforge/pkg/requestcontext"
)

// Classify maps a navigation path to its role requirement. Everything under
// the dashboard prefixes is role-partitioned; anything else handled by this
// middleware (/, /login, /register, /demo) is public.
func Classify(path string) PathClass {
	switch {
	case strings.HasPrefix(path, StudentHomePath):
		return StudentArea
	case strings.HasPrefix(path, InstructorHomePath):
		return InstructorArea
	default:
		return Public
	}
}

// Guard applies the policy table to page navigation. It must be mounted after
// the session resolver middleware and before any protected handler.
type Guard struct {
	cookies *cookies.Manager
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func New(cookieManager *cookies.Manager, opts ...Option) *Guard {
	g := &Guard{cookies: cookieManager}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware classifies the request path, consults the policy table against
// the resolved session, and either passes through or redirects. Verification
// failures never reach here as errors: the resolver already collapsed them to
// an anonymous session and purged the stale credential.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := Classify(r.URL.Path)
		state := StateOf(session.FromContext(r.Context()))
		decision := Decide(class, state)

		g.countDecision(decision)
		switch decision.Kind {
		case Allow:
			next.ServeHTTP(w, r)
		case RedirectToLogin:
			g.redirectToLogin(w, r)
		case RedirectToRoleHome:
			http.Redirect(w, r, RoleHome(decision.Role), http.StatusFound)
		}
	})
}

// redirectToLogin sends the requester to the login page with a transient
// "login required" notice. The notice is suppressed exactly once when the
// anonymous state was reached via explicit logout, so a user who just logged
// out is not scolded for it.
func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if !g.cookies.ConsumeLogoutNotice(w, r) {
		target = LoginPath + "?notice=login_required"
	}
	if g.logger != nil {
		g.logger.InfoContext(r.Context(), "redirecting unauthenticated request to login",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (g *Guard) countDecision(d Decision) {
	if g.metrics != nil {
		g.metrics.GuardDecisions.WithLabelValues(d.Kind.String()).Inc()
	}
}
