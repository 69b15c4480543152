package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogisticRegression is a binary classifier trained with full-batch gradient
// descent on the cross-entropy loss. Weights start at zero, so training is
// fully deterministic for a given dataset.
type LogisticRegression struct {
	LearningRate float64
	MaxIter      int

	weights []float64
	bias    float64
	trained bool
}

// NewLogisticRegression returns a model with the default hyperparameters.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.1,
		MaxIter:      1000,
	}
}

func (m *LogisticRegression) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}

	dims := len(features[0])
	weights := make([]float64, dims)
	bias := 0.0
	n := float64(len(features))

	for iter := 0; iter < m.MaxIter; iter++ {
		gradW := make([]float64, dims)
		gradB := 0.0
		for i, row := range features {
			if len(row) != dims {
				return errors.New("inconsistent feature dimensions")
			}
			p := sigmoid(dot(weights, row) + bias)
			d := p - float64(labels[i])
			for j, v := range row {
				gradW[j] += d * v
			}
			gradB += d
		}
		for j := range weights {
			weights[j] -= m.LearningRate * gradW[j] / n
		}
		bias -= m.LearningRate * gradB / n
	}

	m.weights = weights
	m.bias = bias
	m.trained = true
	return nil
}

func (m *LogisticRegression) Predict(features []float64) (int, float64, error) {
	if !m.trained {
		return 0, 0, errors.New("model not trained")
	}
	if len(features) != len(m.weights) {
		return 0, 0, errors.New("feature dimension mismatch")
	}
	proba := sigmoid(dot(m.weights, features) + m.bias)
	if proba >= 0.5 {
		return 1, proba, nil
	}
	return 0, proba, nil
}

type logisticArtifact struct {
	Version int       `json:"version"`
	Type    string    `json:"type"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

const modelArtifactVersion = 1

func (m *LogisticRegression) Save(path string) error {
	if !m.trained {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(logisticArtifact{
		Version: modelArtifactVersion,
		Type:    ModelLogisticRegression,
		Weights: m.weights,
		Bias:    m.bias,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact logisticArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.Version != modelArtifactVersion {
		return fmt.Errorf("unsupported model artifact version %d", artifact.Version)
	}
	if artifact.Type != ModelLogisticRegression {
		return fmt.Errorf("artifact type %q is not %s", artifact.Type, ModelLogisticRegression)
	}
	if len(artifact.Weights) == 0 {
		return errors.New("artifact has no weights")
	}
	m.weights = artifact.Weights
	m.bias = artifact.Bias
	m.trained = true
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
