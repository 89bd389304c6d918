// Package telemetry tracks per-feature visit counters and a capped visit
// log. It drives splash-screen timing only; gate and routing decisions must
// never depend on it, since the data is lossy and non-authoritative.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LogCap bounds the visit log: appending past the cap evicts the oldest
// entry first.
const LogCap = 100

type Visit struct {
	Feature string    `json:"feature"`
	At      time.Time `json:"at"`
}

type Store interface {
	// RecordVisit increments the feature counter, stamps the first-visit
	// time if unset, and appends to the capped log.
	RecordVisit(ctx context.Context, userID, feature string, at time.Time) error
	VisitCount(ctx context.Context, userID, feature string) (int64, error)
	FirstVisit(ctx context.Context, userID, feature string) (time.Time, bool, error)
	RecentVisits(ctx context.Context, userID string, limit int) ([]Visit, error)
}

var visitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reflectify_feature_visits_total",
	Help: "Feature navigations observed by the visit instrumentation.",
}, []string{"feature"})

func CountVisitMetric(feature string) {
	visitCounter.WithLabelValues(feature).Inc()
}

// Splash display durations. The overlay shortens as the user gains
// experience with a feature.
const (
	SplashFull    = 4 * time.Second
	SplashShort   = 2 * time.Second
	SplashMinimal = 500 * time.Millisecond
)

// SplashDuration picks the overlay duration from cumulative visits and time
// since first visit: past 20 visits or 7 days it shortens, past 50 visits or
// 14 days it shortens further.
func SplashDuration(count int64, first time.Time, now time.Time) time.Duration {
	age := time.Duration(0)
	if !first.IsZero() {
		age = now.Sub(first)
	}
	switch {
	case count >= 50 || age >= 14*24*time.Hour:
		return SplashMinimal
	case count >= 20 || age >= 7*24*time.Hour:
		return SplashShort
	default:
		return SplashFull
	}
}
