package dataset

import (
	"fmt"
	"math"

	"cardioml/ml"
)

// Rule validates one raw row before it is allowed into training.
type Rule interface {
	Apply(ml.Row) error
	Name() string
}

// CleaningStats summarizes one cleaning pass.
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
}

// Cleaner drops raw rows that fail any of its rules, keeping labels aligned
// with the surviving rows.
type Cleaner struct {
	rules []Rule
	stats CleaningStats
}

// NewCleaner returns a cleaner with the default rule set.
func NewCleaner() *Cleaner {
	cleaner := &Cleaner{
		stats: CleaningStats{Issues: make(map[string]int64)},
	}
	cleaner.AddRule(NewMissingRatioRule(0.5))
	return cleaner
}

// AddRule appends a validation rule.
func (c *Cleaner) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Clean applies every rule to every row and returns the rows (and their
// labels) that passed all rules.
func (c *Cleaner) Clean(rows []ml.Row, labels []int) ([]ml.Row, []int) {
	cleaned := make([]ml.Row, 0, len(rows))
	keptLabels := make([]int, 0, len(labels))

	for i, row := range rows {
		c.stats.TotalProcessed++
		rejected := false
		for _, rule := range c.rules {
			if err := rule.Apply(row); err != nil {
				c.stats.Issues[rule.Name()]++
				rejected = true
				break
			}
		}
		if rejected {
			c.stats.Rejected++
			continue
		}
		c.stats.Passed++
		cleaned = append(cleaned, row)
		keptLabels = append(keptLabels, labels[i])
	}
	return cleaned, keptLabels
}

// Stats returns the counters accumulated so far.
func (c *Cleaner) Stats() CleaningStats {
	return c.stats
}

// MissingRatioRule rejects rows where more than MaxRatio of the schema
// features are missing. Sparse rows would otherwise be reconstructed almost
// entirely from imputed values.
type MissingRatioRule struct {
	MaxRatio float64
}

func NewMissingRatioRule(maxRatio float64) *MissingRatioRule {
	return &MissingRatioRule{MaxRatio: maxRatio}
}

func (r *MissingRatioRule) Name() string {
	return "missing_ratio"
}

func (r *MissingRatioRule) Apply(row ml.Row) error {
	names := ml.FeatureNames()
	missing := 0
	for _, name := range names {
		if v, ok := row[name]; !ok || math.IsNaN(v) {
			missing++
		}
	}
	ratio := float64(missing) / float64(len(names))
	if ratio > r.MaxRatio {
		return fmt.Errorf("%d of %d features missing", missing, len(names))
	}
	return nil
}
