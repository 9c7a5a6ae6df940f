package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/HanTheDev/policyguard/internal/models"
)

const SampleSize = models.SampleSize

var ErrSampleSize = fmt.Errorf("sample must have %d values", SampleSize)

// HTTPModel calls a model service that applies the training-time scaling
// and returns isolation-forest decision values.
type HTTPModel struct {
	baseURL string
	client  *http.Client
}

func NewHTTPModel(baseURL string) *HTTPModel {
	return &HTTPModel{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Load checks the model service once at startup. When it is unreachable the
// returned Scorer is Neutral, so reporting keeps working with placeholder
// verdicts.
func Load(ctx context.Context, baseURL string) Scorer {
	model := NewHTTPModel(baseURL)
	if err := model.Ping(ctx); err != nil {
		log.Printf("Warning: could not load anomaly detection model: %v", err)
		return Neutral{}
	}
	log.Printf("Anomaly model available at %s", baseURL)
	return model
}

func (m *HTTPModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model health check returned %d", resp.StatusCode)
	}
	return nil
}

func (m *HTTPModel) Score(ctx context.Context, sample []float64) (Prediction, error) {
	preds, err := m.ScoreBatch(ctx, [][]float64{sample})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// ScoreBatch posts every sample in a single decision_function call.
func (m *HTTPModel) ScoreBatch(ctx context.Context, samples [][]float64) ([]Prediction, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	for _, sample := range samples {
		if len(sample) != SampleSize {
			return nil, ErrSampleSize
		}
	}

	reqBody, err := json.Marshal(map[string][][]float64{"samples": samples})
	if err != nil {
		return nil, fmt.Errorf("failed to encode samples: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/decision_function", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model returned %d", resp.StatusCode)
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	if len(result.Scores) != len(samples) {
		return nil, fmt.Errorf("model returned %d scores for %d samples", len(result.Scores), len(samples))
	}

	preds := make([]Prediction, len(samples))
	for i, raw := range result.Scores {
		preds[i] = Normalize(raw)
	}
	return preds, nil
}
