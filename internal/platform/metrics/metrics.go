package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Registrations      prometheus.Counter
	Logins             prometheus.Counter
	LoginsThrottled    prometheus.Counter
	TokenVerifications *prometheus.CounterVec
	GuardDecisions     *prometheus.CounterVec
	QuizzesGenerated   prometheus.Counter
	AttemptsGraded     prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registerer so tests can
// use an isolated registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_registrations_total",
			Help: "Total number of accounts registered.",
		}),
		Logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_logins_total",
			Help: "Total number of successful logins.",
		}),
		LoginsThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_logins_throttled_total",
			Help: "Total number of login attempts rejected by the throttle.",
		}),
		TokenVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizforge_token_verifications_total",
			Help: "Credential verification outcomes.",
		}, []string{"result"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quizforge_guard_decisions_total",
			Help: "Route guard decisions by outcome.",
		}, []string{"decision"}),
		QuizzesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_quizzes_generated_total",
			Help: "Total number of AI-generated quiz drafts.",
		}),
		AttemptsGraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "quizforge_attempts_graded_total",
			Help: "Total number of quiz attempts graded.",
		}),
	}
}
