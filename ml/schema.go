package ml

// Row is one subject's raw measurements keyed by feature name.
// A missing value is either an absent key or a NaN.
type Row map[string]float64

// Domain is the inclusive validation range of one input feature.
type Domain struct {
	Min float64
	Max float64
}

// NumericalFeatures returns the features that are imputed with the median
// and standardized. Order matters: it is the first half of the output vector.
func NumericalFeatures() []string {
	return []string{"age", "trestbps", "chol", "thalach", "oldpeak"}
}

// CategoricalFeatures returns the integer-coded features that are imputed
// with the mode and passed through unscaled.
func CategoricalFeatures() []string {
	return []string{"sex", "cp", "fbs", "restecg", "exang", "slope", "ca", "thal"}
}

// FeatureNames returns the canonical output column order:
// numerical features followed by categorical features.
func FeatureNames() []string {
	return append(NumericalFeatures(), CategoricalFeatures()...)
}

// Domains returns the inclusive validation range per feature. Values outside
// these ranges are rejected at the serving boundary before reaching the core.
func Domains() map[string]Domain {
	return map[string]Domain{
		"age":      {0, 120},
		"sex":      {0, 1},
		"cp":       {0, 3},
		"trestbps": {50, 250},
		"chol":     {100, 600},
		"fbs":      {0, 1},
		"restecg":  {0, 2},
		"thalach":  {50, 250},
		"exang":    {0, 1},
		"oldpeak":  {0, 10},
		"slope":    {0, 2},
		"ca":       {0, 4},
		"thal":     {0, 3},
	}
}
