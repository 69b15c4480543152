package ml

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func sampleRow(age float64) Row {
	return Row{
		"age": age, "trestbps": 130, "chol": 240, "thalach": 150, "oldpeak": 1.0,
		"sex": 1, "cp": 2, "fbs": 0, "restecg": 1, "exang": 0, "slope": 1, "ca": 0, "thal": 2,
	}
}

func sampleRows() []Row {
	return []Row{
		sampleRow(40), sampleRow(50), sampleRow(60), sampleRow(70),
	}
}

func TestPreprocessorNotFitted(t *testing.T) {
	p := NewPreprocessor()
	if _, err := p.Transform(sampleRows()); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if _, err := p.TransformRow(sampleRow(40)); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestPreprocessorFitTransformEquivalence(t *testing.T) {
	rows := sampleRows()

	a := NewPreprocessor()
	combined, err := a.FitTransform(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := NewPreprocessor()
	if err := b.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	separate, err := b.Transform(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range combined {
		for j := range combined[i] {
			if combined[i][j] != separate[i][j] {
				t.Fatalf("row %d col %d: %v != %v", i, j, combined[i][j], separate[i][j])
			}
		}
	}
}

func TestPreprocessorStandardization(t *testing.T) {
	// Two ages 40 and 60: median 50, mean 50, std 10.
	rows := []Row{sampleRow(40), sampleRow(60)}
	p := NewPreprocessor()
	if err := p.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector, err := p.TransformRow(sampleRow(70))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vector[0]-2.0) > 1e-9 {
		t.Fatalf("expected standardized age 2.0, got %v", vector[0])
	}

	// Missing age imputes the median 50, which standardizes to 0.
	missing := sampleRow(math.NaN())
	vector, err = p.TransformRow(missing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vector[0]) > 1e-9 {
		t.Fatalf("expected imputed age to standardize to 0, got %v", vector[0])
	}
}

func TestPreprocessorTrainColumnsCentered(t *testing.T) {
	rows := sampleRows()
	p := NewPreprocessor()
	vectors, err := p.FitTransform(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for col := range NumericalFeatures() {
		sum := 0.0
		for _, vector := range vectors {
			sum += vector[col]
		}
		if math.Abs(sum/float64(len(vectors))) > 1e-9 {
			t.Fatalf("column %d not centered: mean %v", col, sum/float64(len(vectors)))
		}
	}
}

func TestPreprocessorZeroStd(t *testing.T) {
	// Every numerical feature except age is constant in sampleRow, so its
	// learned std is 0 and every value must map to 0.
	rows := sampleRows()
	p := NewPreprocessor()
	if err := p.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vector, err := p.TransformRow(sampleRow(55))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// trestbps is the second numerical feature.
	if vector[1] != 0 {
		t.Fatalf("expected 0 for zero-std column, got %v", vector[1])
	}
}

func TestPreprocessorCategoricalPassThrough(t *testing.T) {
	rows := sampleRows()
	p := NewPreprocessor()
	if err := p.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := sampleRow(50)
	row["cp"] = 3
	vector, err := p.TransformRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	numCount := len(NumericalFeatures())
	// cp is the second categorical feature; it passes through unscaled.
	if vector[numCount+1] != 3 {
		t.Fatalf("expected cp pass-through 3, got %v", vector[numCount+1])
	}

	// Missing categorical imputes the training mode (cp=2 everywhere).
	delete(row, "cp")
	vector, err = p.TransformRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector[numCount+1] != 2 {
		t.Fatalf("expected mode 2 for missing cp, got %v", vector[numCount+1])
	}
}

func TestPreprocessorAllMissingFeature(t *testing.T) {
	rows := sampleRows()
	for _, row := range rows {
		delete(row, "chol")
	}
	p := NewPreprocessor()
	err := p.Fit(rows)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Feature != "chol" {
		t.Fatalf("expected chol, got %q", schemaErr.Feature)
	}
	if p.Fitted() {
		t.Fatal("failed fit must not mark the preprocessor fitted")
	}
}

func TestPreprocessorSaveLoadRoundTrip(t *testing.T) {
	rows := sampleRows()
	p := NewPreprocessor()
	if err := p.Fit(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := NewPreprocessor()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := sampleRow(55)
	row["oldpeak"] = math.NaN()
	original, err := p.TransformRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored, err := loaded.TransformRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range original {
		if original[i] != restored[i] {
			t.Fatalf("col %d differs after round trip: %v != %v", i, original[i], restored[i])
		}
	}
}

func TestPreprocessorSaveUnfitted(t *testing.T) {
	p := NewPreprocessor()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := p.Save(path); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}
