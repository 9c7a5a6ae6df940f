package tracker

import "github.com/prometheus/client_golang/prometheus"

const (
	ReasonThreshold = "threshold"
	ReasonSweep     = "sweep"
)

type Metrics struct {
	ActiveSessions   prometheus.Gauge
	Flushes          *prometheus.CounterVec
	Evictions        prometheus.Counter
	LogWriteFailures prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "behavior_active_sessions",
			Help: "Sessions currently held by the behavior tracker",
		}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "behavior_flushes_total",
			Help: "Behavior snapshots written to the log",
		}, []string{"reason"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "behavior_evictions_total",
			Help: "Sessions evicted by the expiry sweeper",
		}),
		LogWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "behavior_log_write_failures_total",
			Help: "Behavior snapshots dropped because the log could not be written",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Wall-clock duration of handled requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"code"}),
	}

	reg.MustRegister(m.ActiveSessions, m.Flushes, m.Evictions, m.LogWriteFailures, m.RequestDuration)
	return m
}
