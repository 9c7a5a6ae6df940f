package tracker

import (
	"errors"
	"log"
	"net/netip"
	"time"

	"github.com/HanTheDev/policyguard/internal/models"
)

var ErrNotEnoughSamples = errors.New("at least two buffered requests are required")

// Behavior encoding levels. These are provisional cut-offs, not a fitted
// model; see DESIGN.md.
const (
	behaviorCommon   = 0.7
	behaviorUnusual  = 0.3
	behaviorSuspect  = 0.1
	maxInterAccess   = 10.0
	maxSequence      = 100
	maxUniqueAPIs    = 15
	maxSessionMinute = 1000.0
)

const (
	sessionCountPlaceholder = 1
	sourcePlaceholder       = 0
)

type Appender interface {
	Append(entry *models.BehaviorLogEntry) error
}

// ComputeMetrics turns a flushed buffer into the named behavior metrics.
func ComputeMetrics(s Snapshot) (models.BehaviorMetrics, error) {
	n := len(s.Timestamps)
	if n < 2 {
		return models.BehaviorMetrics{}, ErrNotEnoughSamples
	}

	var total float64
	for i := 1; i < n; i++ {
		total += s.Timestamps[i].Sub(s.Timestamps[i-1]).Seconds()
	}
	interAccess := total / float64(n-1)

	duration := s.Timestamps[n-1].Sub(s.StartTime).Minutes()

	users := s.NumUsers
	if users < 1 {
		users = 1
	}

	m := models.BehaviorMetrics{
		InterAPIAccessDuration: interAccess,
		APIAccessUniqueness:    float64(s.UniqueAPIs) / float64(n),
		SequenceLength:         n,
		SessionDurationMinutes: duration,
		NumUsers:               users,
		UniqueAPIs:             s.UniqueAPIs,
		IPTypeDefault:          1,
	}

	if isPrivateIP(s.LastIP) {
		m.IPTypeDefault = 0
		m.IPTypePrivate = 1
	}

	m.BehaviorEncoded = behaviorEncoding(m)
	return m, nil
}

// behaviorEncoding applies the two rules in order; the second overrides the
// first.
func behaviorEncoding(m models.BehaviorMetrics) float64 {
	encoded := behaviorCommon
	if m.InterAPIAccessDuration > maxInterAccess || m.SequenceLength > maxSequence || m.UniqueAPIs > maxUniqueAPIs {
		encoded = behaviorUnusual
	}
	if m.NumUsers > 1 || m.SessionDurationMinutes > maxSessionMinute {
		encoded = behaviorSuspect
	}
	return encoded
}

func isPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// Sample is the model input vector, in training column order.
func Sample(m models.BehaviorMetrics) []float64 {
	return []float64{
		m.InterAPIAccessDuration,
		m.APIAccessUniqueness,
		float64(m.SequenceLength),
		m.SessionDurationMinutes,
		sessionCountPlaceholder,
		float64(m.NumUsers),
		float64(m.UniqueAPIs),
		float64(m.IPTypeDefault),
		float64(m.IPTypeBot),
		float64(m.IPTypePrivate),
		sourcePlaceholder,
		m.BehaviorEncoded,
	}
}

// Aggregator computes metrics for flushed buffers and appends them to the
// behavior log. Write failures are logged and counted, never returned to the
// request path.
type Aggregator struct {
	out     Appender
	metrics *Metrics
	now     func() time.Time
}

func NewAggregator(out Appender, metrics *Metrics) *Aggregator {
	return &Aggregator{out: out, metrics: metrics, now: time.Now}
}

// Flush reports whether a log line was written.
func (a *Aggregator) Flush(s Snapshot, reason string) bool {
	m, err := ComputeMetrics(s)
	if err != nil {
		return false
	}

	entry := &models.BehaviorLogEntry{
		SessionID: s.SessionID,
		Timestamp: a.now().UTC(),
		Metrics:   m,
		Sample:    Sample(m),
	}

	if err := a.out.Append(entry); err != nil {
		log.Printf("Failed to write behavior log: %v", err)
		a.metrics.LogWriteFailures.Inc()
		return false
	}

	a.metrics.Flushes.WithLabelValues(reason).Inc()
	return true
}
