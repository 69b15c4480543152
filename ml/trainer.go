package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrNoModelsTrained is returned by SelectBest when no candidate finished
// training successfully.
var ErrNoModelsTrained = errors.New("no models trained")

// UnknownMetricError is returned by SelectBest when the requested metric was
// never computed for any recorded result.
type UnknownMetricError struct {
	Metric string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("metric %q was not computed for any trained model", e.Metric)
}

// Candidate is a named model configuration. The factory builds a fresh
// untrained instance, which is also how cross-validation clones the model
// per fold.
type Candidate struct {
	Name string
	New  func() Model
}

// Result is one trained model together with its metric set.
type Result struct {
	Name    string
	Model   Model
	Metrics map[string]float64
}

// Trainer fits every registered candidate against the same train/test split,
// scores each with the metric evaluator plus a cross-validated roc_auc on the
// training split, and records results by candidate name. A candidate that
// fails to train is logged and skipped; it never aborts its siblings.
type Trainer struct {
	CVFolds int
	Seed    int64

	candidates []Candidate
	mu         sync.Mutex
	results    map[string]Result
	order      []string
	logger     *zap.SugaredLogger
}

// NewTrainer returns a trainer with no registered candidates.
func NewTrainer(cvFolds int, seed int64, logger *zap.SugaredLogger) *Trainer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Trainer{
		CVFolds: cvFolds,
		Seed:    seed,
		results: make(map[string]Result),
		logger:  logger,
	}
}

// Register adds a candidate. Registering the same name twice keeps both
// entries; the later result overwrites the earlier one in the record.
func (t *Trainer) Register(name string, factory func() Model) {
	t.candidates = append(t.candidates, Candidate{Name: name, New: factory})
}

// Run trains and scores every registered candidate. It fails only when zero
// candidates succeed.
func (t *Trainer) Run(trainX [][]float64, trainY []int, testX [][]float64, testY []int) error {
	if len(t.candidates) == 0 {
		return errors.New("no candidates registered")
	}

	succeeded := 0
	for _, candidate := range t.candidates {
		if err := t.trainOne(candidate, trainX, trainY, testX, testY); err != nil {
			t.logger.Warnw("candidate training failed, skipping", "model", candidate.Name, "error", err)
			continue
		}
		succeeded++
	}
	if succeeded == 0 {
		return errors.New("all candidates failed to train")
	}
	return nil
}

func (t *Trainer) trainOne(candidate Candidate, trainX [][]float64, trainY []int, testX [][]float64, testY []int) error {
	t.logger.Infow("training candidate", "model", candidate.Name, "train_rows", len(trainX), "test_rows", len(testX))

	model := candidate.New()
	if err := model.Train(trainX, trainY); err != nil {
		return err
	}

	predictions := make([]int, len(testX))
	probabilities := make([]float64, len(testX))
	for i, features := range testX {
		label, proba, err := model.Predict(features)
		if err != nil {
			return err
		}
		predictions[i] = label
		probabilities[i] = proba
	}

	metrics, err := Evaluate(testY, predictions, probabilities)
	if err != nil {
		if !errors.Is(err, ErrDegenerateLabels) {
			return err
		}
		// roc_auc is undefined for single-class test labels; keep the rest.
		t.logger.Warnw("roc_auc skipped", "model", candidate.Name, "error", err)
	}

	// Cross-validation runs on the training split only, never on test data.
	if t.CVFolds >= 2 {
		mean, std, err := CrossValidateAUC(candidate.New, trainX, trainY, t.CVFolds, t.Seed)
		if err != nil {
			t.logger.Warnw("cross-validation skipped", "model", candidate.Name, "error", err)
		} else {
			metrics["cv_roc_auc_mean"] = mean
			metrics["cv_roc_auc_std"] = std
		}
	}

	t.record(Result{Name: candidate.Name, Model: model, Metrics: metrics})
	t.logger.Infow("candidate scored", "model", candidate.Name, "metrics", metrics)
	return nil
}

func (t *Trainer) record(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.results[result.Name]; !seen {
		t.order = append(t.order, result.Name)
	}
	t.results[result.Name] = result
}

// Results returns the recorded results in first-recorded order.
func (t *Trainer) Results() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Result, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.results[name])
	}
	return out
}

// SelectBest returns the recorded result with the maximum value of the named
// metric. Ties keep the earlier-recorded model.
func (t *Trainer) SelectBest(metric string) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.results) == 0 {
		return Result{}, ErrNoModelsTrained
	}

	var best Result
	found := false
	for _, name := range t.order {
		result := t.results[name]
		value, ok := result.Metrics[metric]
		if !ok {
			continue
		}
		if !found || value > best.Metrics[metric] {
			best = result
			found = true
		}
	}
	if !found {
		return Result{}, &UnknownMetricError{Metric: metric}
	}
	return best, nil
}

// SaveModel persists a trained model, creating the parent directory first.
func (t *Trainer) SaveModel(model Model, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return model.Save(path)
}
