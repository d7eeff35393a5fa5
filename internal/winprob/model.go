package winprob

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/survivor-optimizer/internal/features"
)

// Tunables mirrored in config; these are the compiled-in defaults.
const (
	DefaultHomeFieldPts  = 3.0
	DefaultFallbackScale = 13.86
)

// foldModel is one cross-validation member of the calibrated ensemble: a
// standardized L2 logistic base plus its sigmoid (Platt) calibration layer
// fitted on the fold it was held out from.
type foldModel struct {
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	PlattA  float64   `json:"platt_a"`
	PlattB  float64   `json:"platt_b"`
}

// score is the uncalibrated decision value of the base classifier.
func (f *foldModel) score(vec []float64) float64 {
	z := f.Bias
	for i, w := range f.Weights {
		x := vec[i]
		if f.Std[i] > 0 {
			x = (x - f.Mean[i]) / f.Std[i]
		} else {
			x = x - f.Mean[i]
		}
		z += w * x
	}
	return z
}

func (f *foldModel) calibratedProb(vec []float64) float64 {
	return sigmoid(f.PlattA*f.score(vec) + f.PlattB)
}

// Model predicts P(home win) for a matchup. A trained model is an immutable
// value once loaded; the zero Model (no folds) transparently answers with the
// deterministic SRS-based logistic fallback.
type Model struct {
	Folds         []foldModel `json:"folds"`
	FeatureNames  []string    `json:"feature_names"`
	HomeFieldPts  float64     `json:"home_field_pts"`
	FallbackScale float64     `json:"fallback_scale"`
}

// NewFallbackModel returns an untrained model that only answers via the SRS
// logistic.
func NewFallbackModel(homeFieldPts, fallbackScale float64) *Model {
	return &Model{
		HomeFieldPts:  homeFieldPts,
		FallbackScale: fallbackScale,
	}
}

// IsTrained reports whether the calibrated classifier is available.
func (m *Model) IsTrained() bool {
	return len(m.Folds) > 0
}

// Matchup is one batch-prediction input.
type Matchup struct {
	Home      features.Bundle
	Away      features.Bundle
	IsNeutral bool
}

// Predict returns (pHome, pAway) with pHome + pAway = 1.
func (m *Model) Predict(home, away features.Bundle, isNeutral bool) (float64, float64) {
	if !m.IsTrained() {
		return m.srsFallback(home, away, isNeutral)
	}

	vec := features.Vector(home, away, isNeutral)
	return m.predictVector(vec)
}

// predictVector averages the calibrated probability across the fold ensemble.
func (m *Model) predictVector(vec []float64) (float64, float64) {
	var sum float64
	for i := range m.Folds {
		sum += m.Folds[i].calibratedProb(vec)
	}
	pHome := sum / float64(len(m.Folds))
	return pHome, 1 - pHome
}

// PredictBatch scores matchups independently, preserving input order.
func (m *Model) PredictBatch(matchups []Matchup) [][2]float64 {
	out := make([][2]float64, len(matchups))
	for i, mu := range matchups {
		pHome, pAway := m.Predict(mu.Home, mu.Away, mu.IsNeutral)
		out[i] = [2]float64{pHome, pAway}
	}
	return out
}

// srsFallback converts the SRS point spread plus home field into a win
// probability through a logistic. σ(spread / 13.86) puts a 7-point favorite
// near 62%.
func (m *Model) srsFallback(home, away features.Bundle, isNeutral bool) (float64, float64) {
	scale := m.FallbackScale
	if scale == 0 {
		scale = DefaultFallbackScale
	}
	hfa := m.HomeFieldPts
	if hfa == 0 {
		hfa = DefaultHomeFieldPts
	}
	if isNeutral {
		hfa = 0
	}

	spread := (home.SRS - away.SRS) + hfa
	pHome := sigmoid(spread / scale)
	return pHome, 1 - pHome
}

func sigmoid(z float64) float64 {
	if z > 30 {
		return 1.0
	}
	if z < -30 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// ── Persistence ────────────────────────────────────────────────────────────

// Save writes the fitted model as JSON, creating parent directories.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	logrus.Infof("Model saved to %s", path)
	return nil
}

// Load reads a trained model from disk. A missing file is not an error: it
// returns an untrained model that serves the SRS fallback.
func Load(path string, homeFieldPts, fallbackScale float64) (*Model, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logrus.Warnf("No model found at %s, using SRS fallback", path)
		return NewFallbackModel(homeFieldPts, fallbackScale), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if m.HomeFieldPts == 0 {
		m.HomeFieldPts = homeFieldPts
	}
	if m.FallbackScale == 0 {
		m.FallbackScale = fallbackScale
	}
	logrus.Infof("Loaded win probability model (%d folds) from %s", len(m.Folds), path)
	return &m, nil
}
