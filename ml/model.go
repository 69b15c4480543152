package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// Model names used in artifacts and training results.
const (
	ModelLogisticRegression = "logistic_regression"
	ModelDecisionTree       = "decision_tree"
	ModelRandomForest       = "random_forest"
)

// Model is a binary classifier over preprocessed feature vectors.
// Predict returns the class label and the positive-class probability.
type Model interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
	Save(path string) error
	Load(path string) error
}

// NewModel returns a fresh, untrained model of the named type with the
// default hyperparameters.
func NewModel(modelType string) (Model, error) {
	switch modelType {
	case ModelLogisticRegression:
		return NewLogisticRegression(), nil
	case ModelDecisionTree:
		return NewDecisionTree(10), nil
	case ModelRandomForest:
		return NewRandomForest(100, 10, 42), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// LoadModelFile reads the artifact header to discover the model type, then
// loads the full artifact into a model of that type.
func LoadModelFile(path string) (Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	model, err := NewModel(header.Type)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}

func validateTrainingSet(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return fmt.Errorf("features or labels empty")
	}
	if len(features) != len(labels) {
		return fmt.Errorf("features and labels size mismatch")
	}
	return nil
}
