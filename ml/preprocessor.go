package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("preprocessor not fitted")

// SchemaError reports a mismatch between the configured feature schema and
// the rows handed to the preprocessor. It always aborts fit or transform.
type SchemaError struct {
	Feature string
	Reason  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: feature %q %s", e.Feature, e.Reason)
}

type numericalStats struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

type categoricalStats struct {
	Name string  `json:"name"`
	Mode float64 `json:"mode"`
}

// Preprocessor turns raw rows into fixed-order numeric vectors. Numerical
// features are imputed with the training median and standardized; categorical
// features are imputed with the training mode and passed through unscaled.
// All statistics are learned from the rows given to Fit and frozen afterwards,
// so test and serving data never leak into the training statistics.
type Preprocessor struct {
	fitted      bool
	numerical   []numericalStats
	categorical []categoricalStats
}

// NewPreprocessor returns an unfitted preprocessor over the package schema.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Fit learns imputation and scaling statistics from the training rows.
// The fitted state is replaced atomically: a failed Fit leaves the previous
// state untouched rather than half-populated.
func (p *Preprocessor) Fit(rows []Row) error {
	if len(rows) == 0 {
		return errors.New("no rows to fit")
	}

	numerical := make([]numericalStats, 0, len(NumericalFeatures()))
	for _, name := range NumericalFeatures() {
		values := observedValues(rows, name)
		if len(values) == 0 {
			return &SchemaError{Feature: name, Reason: "has no observed values in the training rows"}
		}
		med := median(values)

		// Mean and std are computed on the post-imputation column so that
		// scaling at transform time matches what Fit saw.
		mean := 0.0
		n := float64(len(rows))
		for _, row := range rows {
			mean += valueOrDefault(row, name, med)
		}
		mean /= n

		variance := 0.0
		for _, row := range rows {
			d := valueOrDefault(row, name, med) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / n)

		numerical = append(numerical, numericalStats{Name: name, Median: med, Mean: mean, Std: std})
	}

	categorical := make([]categoricalStats, 0, len(CategoricalFeatures()))
	for _, name := range CategoricalFeatures() {
		values := observedValues(rows, name)
		if len(values) == 0 {
			return &SchemaError{Feature: name, Reason: "has no observed values in the training rows"}
		}
		categorical = append(categorical, categoricalStats{Name: name, Mode: mode(values)})
	}

	p.numerical = numerical
	p.categorical = categorical
	p.fitted = true
	return nil
}

// TransformRow converts a single raw row into the canonical feature vector.
// Missing numericals get the learned median and are standardized; a zero
// learned std maps the value to 0. Missing categoricals get the learned mode.
func (p *Preprocessor) TransformRow(row Row) ([]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}

	vector := make([]float64, 0, len(p.numerical)+len(p.categorical))
	for _, stats := range p.numerical {
		v := valueOrDefault(row, stats.Name, stats.Median)
		if stats.Std == 0 {
			vector = append(vector, 0)
			continue
		}
		vector = append(vector, (v-stats.Mean)/stats.Std)
	}
	for _, stats := range p.categorical {
		vector = append(vector, valueOrDefault(row, stats.Name, stats.Mode))
	}
	return vector, nil
}

// Transform converts a batch of rows. Each row is transformed independently,
// so batch and single-row transforms are interchangeable.
func (p *Preprocessor) Transform(rows []Row) ([][]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vector, err := p.TransformRow(row)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// FitTransform fits on rows and transforms the same rows.
func (p *Preprocessor) FitTransform(rows []Row) ([][]float64, error) {
	if err := p.Fit(rows); err != nil {
		return nil, err
	}
	return p.Transform(rows)
}

// Fitted reports whether Fit has completed.
func (p *Preprocessor) Fitted() bool {
	return p.fitted
}

type preprocessorArtifact struct {
	Version     int                `json:"version"`
	Numerical   []numericalStats   `json:"numerical"`
	Categorical []categoricalStats `json:"categorical"`
}

const preprocessorArtifactVersion = 1

// Save writes the fitted state as a versioned JSON parameter table. The
// artifact is independent of the model artifact and loadable on its own.
func (p *Preprocessor) Save(path string) error {
	if !p.fitted {
		return ErrNotFitted
	}
	payload, err := json.MarshalIndent(preprocessorArtifact{
		Version:     preprocessorArtifactVersion,
		Numerical:   p.numerical,
		Categorical: p.categorical,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load restores a fitted preprocessor saved by Save. Transforms after a
// save/load round trip are bit-identical to the original.
func (p *Preprocessor) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact preprocessorArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.Version != preprocessorArtifactVersion {
		return fmt.Errorf("unsupported preprocessor artifact version %d", artifact.Version)
	}
	if err := checkArtifactSchema(artifact); err != nil {
		return err
	}
	p.numerical = artifact.Numerical
	p.categorical = artifact.Categorical
	p.fitted = true
	return nil
}

func checkArtifactSchema(artifact preprocessorArtifact) error {
	numNames := NumericalFeatures()
	if len(artifact.Numerical) != len(numNames) {
		return &SchemaError{Feature: "numerical", Reason: "count differs from configured schema"}
	}
	for i, stats := range artifact.Numerical {
		if stats.Name != numNames[i] {
			return &SchemaError{Feature: stats.Name, Reason: "does not match configured schema"}
		}
	}
	catNames := CategoricalFeatures()
	if len(artifact.Categorical) != len(catNames) {
		return &SchemaError{Feature: "categorical", Reason: "count differs from configured schema"}
	}
	for i, stats := range artifact.Categorical {
		if stats.Name != catNames[i] {
			return &SchemaError{Feature: stats.Name, Reason: "does not match configured schema"}
		}
	}
	return nil
}

func observedValues(rows []Row, name string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[name]; ok && !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values
}

func valueOrDefault(row Row, name string, fallback float64) float64 {
	if v, ok := row[name]; ok && !math.IsNaN(v) {
		return v
	}
	return fallback
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// mode returns the most frequent value; ties go to the smallest value so the
// result does not depend on row order.
func mode(values []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	bestCount := 0
	for v, count := range counts {
		if count > bestCount || (count == bestCount && v < best) {
			best = v
			bestCount = count
		}
	}
	return best
}
