package tracker

import (
	"context"
	"log"
	"time"
)

// Sweeper bounds the registry: sessions older than ttl are flushed one last
// time and dropped.
type Sweeper struct {
	registry   *Registry
	aggregator *Aggregator
	metrics    *Metrics
	interval   time.Duration
	ttl        time.Duration
}

func NewSweeper(registry *Registry, aggregator *Aggregator, metrics *Metrics, interval, ttl time.Duration) *Sweeper {
	return &Sweeper{
		registry:   registry,
		aggregator: aggregator,
		metrics:    metrics,
		interval:   interval,
		ttl:        ttl,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Session sweeper started (interval %s, ttl %s)", s.interval, s.ttl)
	for {
		select {
		case <-ctx.Done():
			log.Println("Session sweeper stopped")
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Evicted %d expired sessions", n)
			}
		}
	}
}

// Sweep runs one eviction pass and returns the number of evicted sessions.
// A session with fewer than two buffered requests is dropped without a
// final flush.
func (s *Sweeper) Sweep() int {
	expired := s.registry.Expire(s.ttl)
	for _, snap := range expired {
		if len(snap.Timestamps) > 0 {
			s.aggregator.Flush(snap, ReasonSweep)
		}
	}

	s.metrics.Evictions.Add(float64(len(expired)))
	s.metrics.ActiveSessions.Set(float64(s.registry.Len()))
	return len(expired)
}
