package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/HanTheDev/policyguard/internal/anomaly"
	"github.com/HanTheDev/policyguard/internal/behaviorlog"
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/gorilla/mux"
)

const (
	defaultRecentLimit = 50
	statsWindow        = 7 * 24 * time.Hour
)

type LogReader interface {
	ReadAll() ([]models.BehaviorLogEntry, error)
	Recent(n int) ([]models.BehaviorLogEntry, error)
}

// AdminHandler serves the behavior dashboard: every persisted snapshot is
// re-scored by the anomaly model on read.
type AdminHandler struct {
	logs   LogReader
	scorer anomaly.Scorer
	now    func() time.Time
}

func NewAdminHandler(logs LogReader, scorer anomaly.Scorer) *AdminHandler {
	return &AdminHandler{logs: logs, scorer: scorer, now: time.Now}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/log/behavior", h.ListBehavior).Methods("GET")
	router.HandleFunc("/log/anomalies", h.ListAnomalies).Methods("GET")
	router.HandleFunc("/log/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/log/detect-anomaly", h.DetectAnomaly).Methods("POST")
}

func (h *AdminHandler) ListBehavior(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.logs.Recent(limit)
	if err != nil {
		h.writeLogError(w, err)
		return
	}

	logs := h.scoreEntries(r.Context(), entries)

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *AdminHandler) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ReadAll()
	if err != nil {
		h.writeLogError(w, err)
		return
	}

	anomalies := make([]models.ScoredEntry, 0)
	for _, scored := range h.scoreEntries(r.Context(), entries) {
		if scored.Prediction == anomaly.LabelAnomaly {
			anomalies = append(anomalies, scored)
		}
	}

	// Most anomalous first.
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].AnomalyScore < anomalies[j].AnomalyScore
	})

	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ReadAll()
	if err != nil {
		h.writeLogError(w, err)
		return
	}

	since := h.now().Add(-statsWindow)
	var recent []models.BehaviorLogEntry
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			recent = append(recent, e)
		}
	}

	anomalyCount := 0
	for _, scored := range h.scoreEntries(r.Context(), recent) {
		if scored.Prediction == anomaly.LabelAnomaly {
			anomalyCount++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"stats": summarize(recent, anomalyCount)})
}

func (h *AdminHandler) DetectAnomaly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sample []float64 `json:"sample"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.Sample) != anomaly.SampleSize {
		http.Error(w, anomaly.ErrSampleSize.Error(), http.StatusBadRequest)
		return
	}

	p := h.predict(r.Context(), [][]float64{req.Sample})[0]

	writeJSON(w, http.StatusOK, map[string]any{
		"anomaly":    p.Anomaly,
		"prediction": p.Label,
		"score":      p.Score,
		"threshold":  anomaly.Threshold,
	})
}

func (h *AdminHandler) scoreEntries(ctx context.Context, entries []models.BehaviorLogEntry) []models.ScoredEntry {
	samples := make([][]float64, len(entries))
	for i, e := range entries {
		samples[i] = e.Sample
	}

	preds := h.predict(ctx, samples)
	scored := make([]models.ScoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = models.ScoredEntry{
			BehaviorLogEntry: e,
			Prediction:       preds[i].Label,
			AnomalyScore:     preds[i].Score,
		}
	}
	return scored
}

// predict scores all samples in one batch and degrades to the neutral
// verdict when the model call fails.
func (h *AdminHandler) predict(ctx context.Context, samples [][]float64) []anomaly.Prediction {
	preds, err := anomaly.ScoreAll(ctx, h.scorer, samples)
	if err == nil && len(preds) == len(samples) {
		return preds
	}
	if err != nil {
		log.Printf("Anomaly scoring failed: %v", err)
	}
	preds, _ = anomaly.Neutral{}.ScoreBatch(ctx, samples)
	return preds
}

func (h *AdminHandler) writeLogError(w http.ResponseWriter, err error) {
	if errors.Is(err, behaviorlog.ErrNoLog) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No logs found"})
		return
	}
	log.Printf("Failed to read behavior log: %v", err)
	http.Error(w, "Failed to read behavior log", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
