package ml

import (
	"path/filepath"
	"testing"
)

func forestSet() ([][]float64, []int) {
	features := make([][]float64, 0, 24)
	labels := make([]int, 0, 24)
	for i := 0; i < 12; i++ {
		features = append(features, []float64{-1.0 - float64(i)*0.1, float64(i % 3)})
		labels = append(labels, 0)
	}
	for i := 0; i < 12; i++ {
		features = append(features, []float64{1.0 + float64(i)*0.1, float64(i % 3)})
		labels = append(labels, 1)
	}
	return features, labels
}

func TestRandomForestTrainPredict(t *testing.T) {
	features, labels := forestSet()
	model := NewRandomForest(20, 4, 42)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, proba, err := model.Predict([]float64{-1.5, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d (proba %v)", label, proba)
	}
	if proba < 0 || proba > 1 {
		t.Fatalf("probability out of range: %v", proba)
	}

	label, _, err = model.Predict([]float64{1.5, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected label 1, got %d", label)
	}
}

func TestRandomForestSeedDeterminism(t *testing.T) {
	features, labels := forestSet()

	a := NewRandomForest(15, 4, 7)
	b := NewRandomForest(15, 4, 7)
	if err := a.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, probe := range [][]float64{{-0.5, 0}, {0.5, 1}, {2.0, 2}} {
		_, pa, err := a.Predict(probe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, pb, err := b.Predict(probe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pa != pb {
			t.Fatalf("same seed produced different probabilities for %v: %v != %v", probe, pa, pb)
		}
	}
}

func TestRandomForestUntrained(t *testing.T) {
	model := NewRandomForest(10, 3, 42)
	if _, _, err := model.Predict([]float64{0.0, 0.0}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestRandomForestSaveLoad(t *testing.T) {
	features, labels := forestSet()
	model := NewRandomForest(10, 4, 42)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "forest.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := NewRandomForest(0, 0, 0)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probe := []float64{0.3, 1}
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

	dispatched, err := LoadModelFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := dispatched.(*RandomForest); !ok {
		t.Fatalf("expected *RandomForest, got %T", dispatched)
	}
}
