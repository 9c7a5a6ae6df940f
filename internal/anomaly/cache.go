package anomaly

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 7 * 24 * time.Hour

// Cache is the part of the Redis client the scorer needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedScorer memoizes model verdicts in Redis. Log entries are immutable,
// so a sample always scores the same against a given model.
type CachedScorer struct {
	next   Scorer
	cache  Cache
	client *redis.Client
}

func NewCachedScorer(next Scorer, redisURL string) (*CachedScorer, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	c := newCachedScorer(next, client)
	c.client = client
	return c, nil
}

func newCachedScorer(next Scorer, cache Cache) *CachedScorer {
	return &CachedScorer{next: next, cache: cache}
}

// SampleKey hashes the exact bit patterns of the sample values.
func SampleKey(sample []float64) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range sample {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("anomaly:score:%x", h.Sum(nil))
}

func (c *CachedScorer) Score(ctx context.Context, sample []float64) (Prediction, error) {
	preds, err := c.ScoreBatch(ctx, [][]float64{sample})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// ScoreBatch answers what it can from the cache and sends the rest to the
// next scorer in one batch.
func (c *CachedScorer) ScoreBatch(ctx context.Context, samples [][]float64) ([]Prediction, error) {
	preds := make([]Prediction, len(samples))

	var missing []int
	var pending [][]float64
	for i, sample := range samples {
		if p, ok := c.lookup(ctx, sample); ok {
			preds[i] = p
			continue
		}
		missing = append(missing, i)
		pending = append(pending, sample)
	}

	if len(pending) == 0 {
		return preds, nil
	}

	scored, err := ScoreAll(ctx, c.next, pending)
	if err != nil {
		return nil, err
	}

	for j, p := range scored {
		preds[missing[j]] = p
		c.store(ctx, pending[j], p)
	}

	return preds, nil
}

func (c *CachedScorer) lookup(ctx context.Context, sample []float64) (Prediction, bool) {
	cached, err := c.cache.Get(ctx, SampleKey(sample)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Anomaly score cache lookup failed: %v", err)
		}
		return Prediction{}, false
	}

	var p Prediction
	if err := json.Unmarshal(cached, &p); err != nil {
		log.Printf("Discarding unreadable cached anomaly score: %v", err)
		return Prediction{}, false
	}
	return p, true
}

func (c *CachedScorer) store(ctx context.Context, sample []float64, p Prediction) {
	// Placeholder verdicts are not worth remembering.
	if p.Label == LabelNotLoaded {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("Failed to encode anomaly score: %v", err)
		return
	}

	if err := c.cache.Set(ctx, SampleKey(sample), data, cacheTTL).Err(); err != nil {
		log.Printf("Failed to cache anomaly score: %v", err)
	}
}

func (c *CachedScorer) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
