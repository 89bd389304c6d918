// Package analytics holds the small in-memory aggregations behind the
// dashboards: trend classification over a short score series, mood counts
// for the pie chart, and time-window filtering.
package analytics

import (
	"time"

	"reflectify/server/internal/model"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendSteady    Trend = "steady"
)

// trendTolerance is the minimum average-score movement between the older and
// newer half of the series before we call it a trend.
const trendTolerance = 0.5

// ClassifyTrend compares the average of the newer half of the series against
// the older half. Scores are ordered oldest first. Fewer than three points
// always reads as steady.
func ClassifyTrend(scores []int) Trend {
	if len(scores) < 3 {
		return TrendSteady
	}
	mid := len(scores) / 2
	older := average(scores[:mid])
	newer := average(scores[mid:])
	switch {
	case newer-older >= trendTolerance:
		return TrendImproving
	case older-newer >= trendTolerance:
		return TrendDeclining
	default:
		return TrendSteady
	}
}

func average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, score := range scores {
		sum += score
	}
	return float64(sum) / float64(len(scores))
}

// AverageScore reports the mean check-in score, 0 when empty.
func AverageScore(checkins []model.MoodCheckin) float64 {
	if len(checkins) == 0 {
		return 0
	}
	sum := 0
	for _, checkin := range checkins {
		sum += checkin.Score
	}
	return float64(sum) / float64(len(checkins))
}

// CountMoods groups check-ins by mood label for the pie chart.
func CountMoods(checkins []model.MoodCheckin) map[string]int {
	counts := make(map[string]int)
	for _, checkin := range checkins {
		counts[checkin.Mood]++
	}
	return counts
}

// FilterCheckins keeps check-ins at or after the cutoff.
func FilterCheckins(checkins []model.MoodCheckin, since time.Time) []model.MoodCheckin {
	filtered := make([]model.MoodCheckin, 0, len(checkins))
	for _, checkin := range checkins {
		if !checkin.CreatedAt.Before(since) {
			filtered = append(filtered, checkin)
		}
	}
	return filtered
}

// Scores extracts the score series, preserving order.
func Scores(checkins []model.MoodCheckin) []int {
	scores := make([]int, len(checkins))
	for i, checkin := range checkins {
		scores[i] = checkin.Score
	}
	return scores
}
