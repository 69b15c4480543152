package ml

import "testing"

func foldLabels() []int {
	labels := make([]int, 20)
	for i := 10; i < 20; i++ {
		labels[i] = 1
	}
	return labels
}

func TestStratifiedFoldsBalance(t *testing.T) {
	labels := foldLabels()
	folds, err := StratifiedFolds(labels, 5, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(folds) != 5 {
		t.Fatalf("expected 5 folds, got %d", len(folds))
	}

	seen := make(map[int]bool)
	for f, fold := range folds {
		if len(fold) != 4 {
			t.Fatalf("fold %d: expected 4 indices, got %d", f, len(fold))
		}
		positives := 0
		for _, idx := range fold {
			if seen[idx] {
				t.Fatalf("index %d appears in more than one fold", idx)
			}
			seen[idx] = true
			if labels[idx] == 1 {
				positives++
			}
		}
		if positives != 2 {
			t.Fatalf("fold %d: expected 2 positives, got %d", f, positives)
		}
	}
	if len(seen) != len(labels) {
		t.Fatalf("expected every index assigned, got %d of %d", len(seen), len(labels))
	}
}

func TestStratifiedFoldsDeterministic(t *testing.T) {
	labels := foldLabels()
	a, err := StratifiedFolds(labels, 4, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := StratifiedFolds(labels, 4, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for f := range a {
		if len(a[f]) != len(b[f]) {
			t.Fatalf("fold %d size differs", f)
		}
		for i := range a[f] {
			if a[f][i] != b[f][i] {
				t.Fatalf("fold %d differs at %d", f, i)
			}
		}
	}
}

func TestStratifiedFoldsBadK(t *testing.T) {
	if _, err := StratifiedFolds(foldLabels(), 1, 42); err == nil {
		t.Fatal("expected error for k < 2")
	}
	if _, err := StratifiedFolds([]int{0, 1}, 5, 42); err == nil {
		t.Fatal("expected error for too few samples")
	}
}

func TestCrossValidateAUCSeparable(t *testing.T) {
	features := make([][]float64, 20)
	labels := foldLabels()
	for i := range features {
		if labels[i] == 1 {
			features[i] = []float64{1.0 + float64(i%5)*0.1}
		} else {
			features[i] = []float64{-1.0 - float64(i%5)*0.1}
		}
	}

	factory := func() Model { return NewLogisticRegression() }
	mean, std, err := CrossValidateAUC(factory, features, labels, 4, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mean < 0.99 {
		t.Fatalf("expected near-perfect cv auc on separable data, got %v", mean)
	}
	if std < 0 {
		t.Fatalf("std must be non-negative, got %v", std)
	}
}
