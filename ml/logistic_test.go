package ml

import (
	"path/filepath"
	"testing"
)

func separableSet() ([][]float64, []int) {
	features := [][]float64{
		{-2.0, 0.1}, {-1.5, -0.2}, {-1.8, 0.3}, {-2.2, 0.0},
		{2.0, -0.1}, {1.5, 0.2}, {1.8, -0.3}, {2.2, 0.1},
	}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	return features, labels
}

func TestLogisticRegressionTrainPredict(t *testing.T) {
	features, labels := separableSet()
	model := NewLogisticRegression()
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, proba, err := model.Predict([]float64{-2.0, 0.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 || proba >= 0.5 {
		t.Fatalf("expected negative class, got label %d proba %v", label, proba)
	}

	label, proba, err = model.Predict([]float64{2.0, 0.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 || proba < 0.5 {
		t.Fatalf("expected positive class, got label %d proba %v", label, proba)
	}
}

func TestLogisticRegressionDeterministic(t *testing.T) {
	features, labels := separableSet()

	a := NewLogisticRegression()
	b := NewLogisticRegression()
	if err := a.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, pa, err := a.Predict([]float64{0.7, -0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, pb, err := b.Predict([]float64{0.7, -0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pa != pb {
		t.Fatalf("training is not deterministic: %v != %v", pa, pb)
	}
}

func TestLogisticRegressionUntrained(t *testing.T) {
	model := NewLogisticRegression()
	if _, _, err := model.Predict([]float64{0.0}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestLogisticRegressionDimensionMismatch(t *testing.T) {
	features, labels := separableSet()
	model := NewLogisticRegression()
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := model.Predict([]float64{1.0}); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

func TestLogisticRegressionSaveLoad(t *testing.T) {
	features, labels := separableSet()
	model := NewLogisticRegression()
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := NewLogisticRegression()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probe := []float64{1.3, 0.4}
	_, original, err := model.Predict(probe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, restored, err := loaded.Predict(probe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if original != restored {
		t.Fatalf("round trip changed prediction: %v != %v", original, restored)
	}
}

func TestLoadModelFileDispatch(t *testing.T) {
	features, labels := separableSet()
	model := NewLogisticRegression()
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadModelFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := loaded.(*LogisticRegression); !ok {
		t.Fatalf("expected *LogisticRegression, got %T", loaded)
	}
}
