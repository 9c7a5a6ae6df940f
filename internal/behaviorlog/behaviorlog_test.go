package behaviorlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, at time.Time) *models.BehaviorLogEntry {
	return &models.BehaviorLogEntry{
		SessionID: id,
		Timestamp: at,
		Metrics:   models.BehaviorMetrics{SequenceLength: 5, UniqueAPIs: 3, BehaviorEncoded: 0.7},
		Sample:    []float64{0.5, 0.6, 5, 0.1, 1, 1, 3, 1, 0, 0, 0, 0.7},
	}
}

func TestAppendCreatesDirAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "behavior.jsonl")
	l := New(path)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, l.Append(entry("s1", now)))
	require.NoError(t, l.Append(entry("s2", now.Add(time.Second))))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].SessionID)
	assert.Equal(t, "s2", entries[1].SessionID)
	assert.True(t, entries[0].Timestamp.Equal(now))
	assert.Len(t, entries[0].Sample, 12)
}

func TestLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behavior.jsonl")
	l := New(path)
	require.NoError(t, l.Append(entry("s1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"session_id", "timestamp", "metrics", "sample"}, keys(raw))
	assert.Equal(t, `"2026-01-02T03:04:05Z"`, string(raw["timestamp"]))

	var metrics map[string]any
	require.NoError(t, json.Unmarshal(raw["metrics"], &metrics))
	assert.Len(t, metrics, 10)
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behavior.jsonl")
	l := New(path)
	require.NoError(t, l.Append(entry("s1", time.Now())))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n{\"other\":true}\n" +
		`{"session_id":"short","timestamp":"2026-01-02T03:04:05Z","sample":[1,2]}` + "\n" +
		`{"session_id":"undated","sample":[1,2,3,4,5,6,7,8,9,10,11,12]}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, l.Append(entry("s2", time.Now())))

	entries, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[1].SessionID)
}

func TestReadAllMissingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "absent.jsonl"))
	_, err := l.ReadAll()
	assert.ErrorIs(t, err, ErrNoLog)
}

func TestRecentMostRecentFirst(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "behavior.jsonl"))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(entry(fmt.Sprintf("s%d", i), time.Now())))
	}

	recent, err := l.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "s4", recent[0].SessionID)
	assert.Equal(t, "s2", recent[2].SessionID)

	all, err := l.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestConcurrentAppendsStayWhole(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "behavior.jsonl"))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, l.Append(entry(fmt.Sprintf("w%d-%d", w, i), time.Now())))
			}
		}(w)
	}
	wg.Wait()

	entries, err := l.ReadAll()
	require.NoError(t, err)
	assert.Len(t, entries, 200)
}

func TestReadAllDoesNotWaitForWriters(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "behavior.jsonl"))
	require.NoError(t, l.Append(entry("s1", time.Now())))

	l.mu.Lock()
	defer l.mu.Unlock()

	done := make(chan int, 1)
	go func() {
		entries, err := l.ReadAll()
		assert.NoError(t, err)
		done <- len(entries)
	}()

	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadAll blocked on the append lock")
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
