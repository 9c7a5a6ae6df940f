// Package anomaly consumes the external outlier-detection model. The model
// scores a 12-element behavior sample; lower scores are more anomalous.
package anomaly

import "context"

const (
	LabelNormal    = "Normal"
	LabelAnomaly   = "Anomaly"
	LabelNotLoaded = "Model not loaded"

	// Threshold applies to the normalized score.
	Threshold    = 0.5
	NeutralScore = 0.5
)

type Prediction struct {
	Label   string  `json:"prediction"`
	Score   float64 `json:"anomaly_score"`
	Anomaly bool    `json:"anomaly"`
}

type Scorer interface {
	Score(ctx context.Context, sample []float64) (Prediction, error)
}

// BatchScorer scores many samples in one round trip. Predictions are returned
// in sample order.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, samples [][]float64) ([]Prediction, error)
}

// ScoreAll uses ScoreBatch when s supports it and falls back to scoring one
// sample at a time.
func ScoreAll(ctx context.Context, s Scorer, samples [][]float64) ([]Prediction, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if b, ok := s.(BatchScorer); ok {
		return b.ScoreBatch(ctx, samples)
	}

	out := make([]Prediction, len(samples))
	for i, sample := range samples {
		p, err := s.Score(ctx, sample)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Normalize maps the model's raw decision value onto a 0..1-ish scale and
// labels it against Threshold.
func Normalize(raw float64) Prediction {
	score := (raw + 0.5) / 1.5
	if score < Threshold {
		return Prediction{Label: LabelAnomaly, Score: score, Anomaly: true}
	}
	return Prediction{Label: LabelNormal, Score: score}
}

// Neutral stands in when the model could not be loaded.
type Neutral struct{}

func (Neutral) Score(ctx context.Context, sample []float64) (Prediction, error) {
	return Prediction{Label: LabelNotLoaded, Score: NeutralScore}, nil
}

func (n Neutral) ScoreBatch(ctx context.Context, samples [][]float64) ([]Prediction, error) {
	out := make([]Prediction, len(samples))
	for i := range out {
		out[i], _ = n.Score(ctx, samples[i])
	}
	return out, nil
}
