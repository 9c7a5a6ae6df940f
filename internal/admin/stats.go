package admin

import (
	"math"
	"sort"

	"github.com/HanTheDev/policyguard/internal/models"
)

// statFields are the metrics summarized on the dashboard.
var statFields = []struct {
	name  string
	value func(models.BehaviorMetrics) float64
}{
	{"inter_api_access_duration", func(m models.BehaviorMetrics) float64 { return m.InterAPIAccessDuration }},
	{"api_access_uniqueness", func(m models.BehaviorMetrics) float64 { return m.APIAccessUniqueness }},
	{"sequence_length", func(m models.BehaviorMetrics) float64 { return float64(m.SequenceLength) }},
	{"session_duration_minutes", func(m models.BehaviorMetrics) float64 { return m.SessionDurationMinutes }},
	{"num_users", func(m models.BehaviorMetrics) float64 { return float64(m.NumUsers) }},
	{"unique_apis", func(m models.BehaviorMetrics) float64 { return float64(m.UniqueAPIs) }},
}

func summarize(entries []models.BehaviorLogEntry, anomalyCount int) models.BehaviorStats {
	stats := models.BehaviorStats{
		Metrics:       make(map[string]models.MetricStats),
		TotalSessions: len(entries),
		AnomalyCount:  anomalyCount,
	}
	if len(entries) == 0 {
		return stats
	}

	stats.AnomalyRate = float64(anomalyCount) / float64(len(entries))

	for _, field := range statFields {
		values := make([]float64, len(entries))
		for i, e := range entries {
			values[i] = field.value(e.Metrics)
		}
		stats.Metrics[field.name] = describe(values)
	}

	return stats
}

func describe(values []float64) models.MetricStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	ms := models.MetricStats{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P95: sorted[len(sorted)-1],
	}
	// Small samples report the max as p95.
	if len(sorted) > 5 {
		ms.P95 = percentile(sorted, 95)
	}
	return ms
}

// percentile interpolates linearly between closest ranks of sorted values.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
