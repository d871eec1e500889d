// Package metrics публикует счётчики жизненного цикла отчётов и начислений в Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/littypicky-backend/internal/domain/valueobject"
)

const namespace = "littypicky"

var (
	// transitions: from, to
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "transitions_total",
		Help:      "Committed report status transitions",
	}, []string{"from", "to"})

	// conflicts: operation (claim, clear, release, vote), code
	conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "conflicts_total",
		Help:      "Operations rejected because a concurrent transition won",
	}, []string{"operation", "code"})

	votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verification",
		Name:      "votes_total",
		Help:      "Accepted verification votes",
	}, []string{"positive"})

	points = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "points_awarded_total",
		Help:      "Points awarded by score event kind",
	}, []string{"kind"})

	duplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "duplicate_events_total",
		Help:      "Score events ignored by the dedup key",
	}, []string{"kind"})

	releasedClaims = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "stale_claims_released_total",
		Help:      "Claims released by the expiry scheduler",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route", "method", "status"})
)

func Transition(from, to valueobject.ReportStatus) {
	transitions.WithLabelValues(string(from), string(to)).Inc()
}

func Conflict(operation, code string) {
	conflicts.WithLabelValues(operation, code).Inc()
}

func Vote(positive bool) {
	votes.WithLabelValues(strconv.FormatBool(positive)).Inc()
}

func PointsAwarded(kind valueobject.ScoreKind, n int) {
	if n > 0 {
		points.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func DuplicateScoreEvent(kind valueobject.ScoreKind) {
	duplicateEvents.WithLabelValues(string(kind)).Inc()
}

func ClaimsReleased(n int) {
	releasedClaims.Add(float64(n))
}

func HTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
