package app

import (
	"strings"
	"time"

	"quizrevenue/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts      *prometheus.CounterVec
	submitLatency prometheus.Histogram
	otp           *prometheus.CounterVec
	auth          *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizrevenue",
			Name:      "attempts_total",
			Help:      "Submitted quiz attempts by risk action",
		}, []string{"action"}),
		submitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizrevenue",
			Name:      "attempt_submit_duration_seconds",
			Help:      "Attempt pipeline latency",
			Buckets:   prometheus.DefBuckets,
		}),
		otp: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizrevenue",
			Name:      "otp_total",
			Help:      "OTP challenges by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		auth: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizrevenue",
			Name:      "auth_total",
			Help:      "Registrations and logins by outcome",
		}, []string{"op", "outcome"}),
	}
}

func (m *Metrics) observeAttempt(action string, started time.Time) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(action).Inc()
	m.submitLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeOTP(purpose, outcome string) {
	if m == nil {
		return
	}
	m.otp.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) observeAuth(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(domain.CodeOf(err)))
	}
	m.auth.WithLabelValues(op, outcome).Inc()
}
