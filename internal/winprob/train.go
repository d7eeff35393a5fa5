package winprob

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/jstittsworth/survivor-optimizer/internal/features"
)

const (
	// MinTrainingSamples is the floor below which training refuses to fit.
	MinTrainingSamples = 100

	calibrationFolds = 5
	l2Lambda         = 1.0 // inverse of sklearn's C=1.0
	baseIterations   = 500
	baseLearningRate = 0.1
	plattIterations  = 300
	plattLearningRate = 0.05
)

// Metrics captures the fit quality persisted alongside the model weights.
type Metrics struct {
	TrainSeasons  []int   `json:"train_seasons,omitempty"`
	NTrainSamples int     `json:"n_train_samples"`
	TrainBrier    float64 `json:"train_brier_score"`
	TrainLogLoss  float64 `json:"train_log_loss"`
	HomeWinRate   float64 `json:"home_win_rate"`

	ValSeason   int     `json:"val_season,omitempty"`
	NValSamples int     `json:"n_val_samples,omitempty"`
	ValBrier    float64 `json:"val_brier_score,omitempty"`
	ValLogLoss  float64 `json:"val_log_loss,omitempty"`
	ValAccuracy float64 `json:"val_accuracy,omitempty"`
}

// Save writes metrics JSON next to the model weights.
func (m *Metrics) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Train fits the calibrated classifier: a standardized logistic regression
// with L2 regularization and class-balanced sample weights, wrapped in
// sigmoid (Platt) calibration over 5 cross-validation folds. Each fold's base
// model is fitted on the other folds and calibrated on its own held-out
// slice; prediction averages the calibrated fold probabilities.
func Train(X [][]float64, y []int, seed int64, homeFieldPts, fallbackScale float64) (*Model, error) {
	n := len(X)
	if n < MinTrainingSamples {
		return nil, fmt.Errorf("insufficient training data: only %d samples (need %d)", n, MinTrainingSamples)
	}
	if len(y) != n {
		return nil, fmt.Errorf("feature/label length mismatch: %d vs %d", n, len(y))
	}

	// Deterministic shuffle before fold assignment.
	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)

	model := &Model{
		FeatureNames:  features.Names,
		HomeFieldPts:  homeFieldPts,
		FallbackScale: fallbackScale,
	}

	foldSize := n / calibrationFolds
	for k := 0; k < calibrationFolds; k++ {
		lo := k * foldSize
		hi := lo + foldSize
		if k == calibrationFolds-1 {
			hi = n
		}

		var trainX, calX [][]float64
		var trainY, calY []int
		for i, idx := range order {
			if i >= lo && i < hi {
				calX = append(calX, X[idx])
				calY = append(calY, y[idx])
			} else {
				trainX = append(trainX, X[idx])
				trainY = append(trainY, y[idx])
			}
		}

		fold := fitBase(trainX, trainY)

		// Calibrate on the held-out slice.
		scores := make([]float64, len(calX))
		for i, vec := range calX {
			scores[i] = fold.score(vec)
		}
		fold.PlattA, fold.PlattB = fitPlatt(scores, calY)

		model.Folds = append(model.Folds, fold)
	}

	logrus.Infof("Trained calibrated model: %d folds over %d samples", calibrationFolds, n)
	return model, nil
}

// fitBase trains one standardized L2 logistic regression with class-balanced
// sample weighting via gradient descent on the weighted log loss.
func fitBase(X [][]float64, y []int) foldModel {
	n := len(X)
	dim := len(X[0])

	// Standardization parameters from the training slice only.
	mean := make([]float64, dim)
	std := make([]float64, dim)
	col := make([]float64, n)
	for j := 0; j < dim; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		mean[j], std[j] = stat.MeanStdDev(col, nil)
		if std[j] == 0 || math.IsNaN(std[j]) {
			std[j] = 1
		}
	}

	scaled := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, dim)
		for j := 0; j < dim; j++ {
			row[j] = (X[i][j] - mean[j]) / std[j]
		}
		scaled[i] = row
	}

	// Class-balanced weights: n / (2 * class count).
	var nPos int
	for _, label := range y {
		nPos += label
	}
	nNeg := n - nPos
	wPos, wNeg := 1.0, 1.0
	if nPos > 0 && nNeg > 0 {
		wPos = float64(n) / (2.0 * float64(nPos))
		wNeg = float64(n) / (2.0 * float64(nNeg))
	}

	weights := make([]float64, dim)
	bias := 0.0
	grad := make([]float64, dim)

	for iter := 0; iter < baseIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for i := 0; i < n; i++ {
			z := bias
			for j := 0; j < dim; j++ {
				z += weights[j] * scaled[i][j]
			}
			p := sigmoid(z)

			sw := wNeg
			if y[i] == 1 {
				sw = wPos
			}
			residual := sw * (p - float64(y[i]))
			for j := 0; j < dim; j++ {
				grad[j] += residual * scaled[i][j]
			}
			gradBias += residual
		}

		for j := 0; j < dim; j++ {
			grad[j] = grad[j]/float64(n) + l2Lambda*weights[j]/float64(n)
			weights[j] -= baseLearningRate * grad[j]
		}
		bias -= baseLearningRate * gradBias / float64(n)
	}

	return foldModel{
		Mean:    mean,
		Std:     std,
		Weights: weights,
		Bias:    bias,
	}
}

// fitPlatt fits the sigmoid calibration layer p = σ(A·score + B) on held-out
// scores, using Platt's smoothed targets to avoid saturating the fit.
func fitPlatt(scores []float64, y []int) (float64, float64) {
	n := len(scores)
	if n == 0 {
		return 1, 0
	}

	var nPos int
	for _, label := range y {
		nPos += label
	}
	nNeg := n - nPos
	tPos := (float64(nPos) + 1.0) / (float64(nPos) + 2.0)
	tNeg := 1.0 / (float64(nNeg) + 2.0)

	a, b := 1.0, 0.0
	for iter := 0; iter < plattIterations; iter++ {
		var gradA, gradB float64
		for i := 0; i < n; i++ {
			target := tNeg
			if y[i] == 1 {
				target = tPos
			}
			p := sigmoid(a*scores[i] + b)
			residual := p - target
			gradA += residual * scores[i]
			gradB += residual
		}
		a -= plattLearningRate * gradA / float64(n)
		b -= plattLearningRate * gradB / float64(n)
	}
	return a, b
}

// ── Evaluation ─────────────────────────────────────────────────────────────

// PredictProbs scores a feature matrix through the trained ensemble.
func (m *Model) PredictProbs(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	for i, vec := range X {
		p, _ := m.predictVector(vec)
		probs[i] = p
	}
	return probs
}

// BrierScore is the mean squared error between predicted probability and the
// binary outcome. Lower is better; the validation target is 0.22.
func BrierScore(probs []float64, y []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	sq := make([]float64, len(probs))
	for i, p := range probs {
		d := p - float64(y[i])
		sq[i] = d * d
	}
	return stat.Mean(sq, nil)
}

// LogLoss is the mean negative log likelihood, with probabilities clipped
// away from 0 and 1.
func LogLoss(probs []float64, y []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	const eps = 1e-15
	losses := make([]float64, len(probs))
	for i, p := range probs {
		p = math.Min(math.Max(p, eps), 1-eps)
		if y[i] == 1 {
			losses[i] = -math.Log(p)
		} else {
			losses[i] = -math.Log(1 - p)
		}
	}
	return stat.Mean(losses, nil)
}

// Accuracy is the share of 0.5-thresholded predictions matching the label.
func Accuracy(probs []float64, y []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	var correct int
	for i, p := range probs {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

// Evaluate computes train metrics, and validation metrics when a held-out
// feature matrix is provided.
func Evaluate(m *Model, X [][]float64, y []int, valX [][]float64, valY []int) Metrics {
	probs := m.PredictProbs(X)

	labels := make([]float64, len(y))
	for i, label := range y {
		labels[i] = float64(label)
	}

	metrics := Metrics{
		NTrainSamples: len(X),
		TrainBrier:    BrierScore(probs, y),
		TrainLogLoss:  LogLoss(probs, y),
		HomeWinRate:   stat.Mean(labels, nil),
	}

	if len(valX) > 0 {
		valProbs := m.PredictProbs(valX)
		metrics.NValSamples = len(valX)
		metrics.ValBrier = BrierScore(valProbs, valY)
		metrics.ValLogLoss = LogLoss(valProbs, valY)
		metrics.ValAccuracy = Accuracy(valProbs, valY)
	}

	return metrics
}
