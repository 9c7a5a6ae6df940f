package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []float64 {
	return []float64{0.4, 0.6, 5, 0.03, 1, 1, 3, 1, 0, 0, 0, 0.7}
}

// modelServer fakes the model service, answering every sample with raw.
func modelServer(t *testing.T, raw float64) *httptest.Server {
	srv, _ := countingModelServer(t, func([]float64) float64 { return raw })
	return srv
}

// countingModelServer answers each sample with score(sample) and counts
// decision_function calls.
func countingModelServer(t *testing.T, score func([]float64) float64) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/decision_function", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Samples [][]float64 `json:"samples"`
		}
		atomic.AddInt32(&calls, 1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		scores := make([]float64, len(req.Samples))
		for i, s := range req.Samples {
			require.Len(t, s, SampleSize)
			scores[i] = score(s)
		}
		json.NewEncoder(w).Encode(map[string][]float64{"scores": scores})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNormalize(t *testing.T) {
	p := Normalize(0.1)
	assert.InDelta(t, 0.4, p.Score, 1e-9)
	assert.True(t, p.Anomaly)
	assert.Equal(t, LabelAnomaly, p.Label)

	p = Normalize(1)
	assert.InDelta(t, 1.0, p.Score, 1e-9)
	assert.False(t, p.Anomaly)
}

func TestNormalizeThreshold(t *testing.T) {
	cases := []struct {
		raw     float64
		anomaly bool
	}{
		{raw: -0.5, anomaly: true},
		{raw: 0.24, anomaly: true},
		{raw: 0.25, anomaly: false},
		{raw: 0.5, anomaly: false},
	}

	for _, tc := range cases {
		p := Normalize(tc.raw)
		assert.Equal(t, tc.anomaly, p.Anomaly, "raw %v", tc.raw)
		if tc.anomaly {
			assert.Equal(t, LabelAnomaly, p.Label)
		} else {
			assert.Equal(t, LabelNormal, p.Label)
		}
	}
}

func TestNeutral(t *testing.T) {
	p, err := Neutral{}.Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, LabelNotLoaded, p.Label)
	assert.Equal(t, NeutralScore, p.Score)
	assert.False(t, p.Anomaly)
}

func TestHTTPModelScores(t *testing.T) {
	srv := modelServer(t, -0.2)

	p, err := NewHTTPModel(srv.URL).Score(context.Background(), sample())
	require.NoError(t, err)
	assert.True(t, p.Anomaly)
	assert.InDelta(t, 0.2, p.Score, 1e-9)
}

func TestHTTPModelScoresBatchInOneCall(t *testing.T) {
	srv, calls := countingModelServer(t, func(s []float64) float64 { return s[0] })

	samples := make([][]float64, 3)
	for i, raw := range []float64{-0.5, 0.4, 1} {
		samples[i] = sample()
		samples[i][0] = raw
	}

	preds, err := NewHTTPModel(srv.URL).ScoreBatch(context.Background(), samples)
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, LabelAnomaly, preds[0].Label)
	assert.Equal(t, LabelNormal, preds[1].Label)
	assert.InDelta(t, 1.0, preds[2].Score, 1e-9)
}

func TestHTTPModelRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]float64{"scores": {0.1}})
	}))
	defer srv.Close()

	_, err := NewHTTPModel(srv.URL).ScoreBatch(context.Background(), [][]float64{sample(), sample()})
	assert.Error(t, err)
}

func TestHTTPModelRejectsWrongSize(t *testing.T) {
	srv := modelServer(t, 0)

	_, err := NewHTTPModel(srv.URL).Score(context.Background(), []float64{1, 2})
	assert.ErrorIs(t, err, ErrSampleSize)
}

func TestHTTPModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPModel(srv.URL).Score(context.Background(), sample())
	assert.Error(t, err)
}

func TestLoadFallsBackToNeutral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scorer := Load(context.Background(), srv.URL)
	assert.IsType(t, Neutral{}, scorer)
}

func TestLoadUsesReachableModel(t *testing.T) {
	srv := modelServer(t, 0.4)

	scorer := Load(context.Background(), srv.URL)
	require.IsType(t, &HTTPModel{}, scorer)

	p, err := scorer.Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, p.Label)
}

func TestSampleKey(t *testing.T) {
	a := SampleKey(sample())
	assert.Equal(t, a, SampleKey(sample()))

	other := sample()
	other[0] = 9
	assert.NotEqual(t, a, SampleKey(other))
	assert.Contains(t, a, "anomaly:score:")
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (m *memoryCache) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.data[key] = string(value.([]byte))
	m.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingScorer struct {
	calls int
	pred  Prediction
	err   error
}

func (c *countingScorer) Score(ctx context.Context, sample []float64) (Prediction, error) {
	c.calls++
	return c.pred, c.err
}

func TestCachedScorerHitSkipsModel(t *testing.T) {
	cache := newMemoryCache()
	stored, err := json.Marshal(Normalize(-0.4))
	require.NoError(t, err)
	cache.data[SampleKey(sample())] = string(stored)

	next := &countingScorer{pred: Normalize(1)}
	p, err := newCachedScorer(next, cache).Score(context.Background(), sample())
	require.NoError(t, err)

	assert.Equal(t, 0, next.calls)
	assert.Equal(t, LabelAnomaly, p.Label)
	assert.InDelta(t, 0.1/1.5, p.Score, 1e-9)
}

func TestCachedScorerMissStoresVerdict(t *testing.T) {
	cache := newMemoryCache()
	next := &countingScorer{pred: Normalize(0.7)}
	scorer := newCachedScorer(next, cache)

	p, err := scorer.Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, p.Label)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, cacheTTL, cache.ttl)
	require.Contains(t, cache.data, SampleKey(sample()))

	again, err := scorer.Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, 1, next.calls, "second lookup is served from the cache")
}

func TestCachedScorerSkipsNeutralVerdicts(t *testing.T) {
	cache := newMemoryCache()
	scorer := newCachedScorer(Neutral{}, cache)

	p, err := scorer.Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, LabelNotLoaded, p.Label)
	assert.Empty(t, cache.data)
}

func TestCachedScorerRedisErrorFallsThrough(t *testing.T) {
	cache := newMemoryCache()
	cache.err = errors.New("connection refused")
	next := &countingScorer{pred: Normalize(-0.5)}

	p, err := newCachedScorer(next, cache).Score(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, LabelAnomaly, p.Label)
}

func TestCachedScorerModelErrorIsReturned(t *testing.T) {
	next := &countingScorer{err: errors.New("model down")}
	_, err := newCachedScorer(next, newMemoryCache()).Score(context.Background(), sample())
	assert.Error(t, err)
}

func TestCachedScorerBatchesOnlyMisses(t *testing.T) {
	srv, calls := countingModelServer(t, func(s []float64) float64 { return s[0] })
	cache := newMemoryCache()
	scorer := newCachedScorer(NewHTTPModel(srv.URL), cache)

	cached := sample()
	cached[0] = 0.9
	stored, err := json.Marshal(Normalize(0.9))
	require.NoError(t, err)
	cache.data[SampleKey(cached)] = string(stored)

	fresh := sample()
	fresh[0] = -0.5

	preds, err := scorer.ScoreBatch(context.Background(), [][]float64{cached, fresh, sample()})
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, LabelNormal, preds[0].Label)
	assert.Equal(t, LabelAnomaly, preds[1].Label)
	assert.Len(t, cache.data, 3)
}

func TestScoreAllFallsBackToSingleScores(t *testing.T) {
	next := &countingScorer{pred: Normalize(0)}
	preds, err := ScoreAll(context.Background(), next, [][]float64{sample(), sample()})
	require.NoError(t, err)
	assert.Len(t, preds, 2)
	assert.Equal(t, 2, next.calls)

	preds, err = ScoreAll(context.Background(), next, nil)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestNewCachedScorerBadURL(t *testing.T) {
	_, err := NewCachedScorer(Neutral{}, "://nope")
	assert.Error(t, err)
}
