package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// StratifiedFolds partitions row indices into k folds that preserve the
// class balance of labels. The shuffle is seeded so folds are reproducible.
func StratifiedFolds(labels []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, errors.New("fold count must be at least 2")
	}
	if len(labels) < k {
		return nil, errors.New("not enough samples for the requested fold count")
	}

	rnd := rand.New(rand.NewSource(seed))
	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	folds := make([][]int, k)
	// Deterministic class order: labels are 0/1 here.
	for label := 0; label <= 1; label++ {
		indices := byClass[label]
		rnd.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		for i, idx := range indices {
			folds[i%k] = append(folds[i%k], idx)
		}
	}
	return folds, nil
}

// CrossValidateAUC estimates roc_auc with stratified k-fold cross-validation
// on the training split only. Each fold fits a fresh model from the factory,
// so folds are independent and run in parallel over the immutable matrix.
func CrossValidateAUC(factory func() Model, features [][]float64, labels []int, k int, seed int64) (mean, std float64, err error) {
	folds, err := StratifiedFolds(labels, k, seed)
	if err != nil {
		return 0, 0, err
	}

	aucs := make([]float64, len(folds))
	errs := make([]error, len(folds))
	var wg sync.WaitGroup
	for f := range folds {
		wg.Add(1)
		go func(f int) {
			defer wg.Done()
			aucs[f], errs[f] = scoreFold(factory, features, labels, folds, f)
		}(f)
	}
	wg.Wait()

	for f, ferr := range errs {
		if ferr != nil {
			return 0, 0, fmt.Errorf("fold %d: %w", f, ferr)
		}
	}

	for _, auc := range aucs {
		mean += auc
	}
	mean /= float64(len(aucs))
	for _, auc := range aucs {
		d := auc - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(aucs)))
	return mean, std, nil
}

func scoreFold(factory func() Model, features [][]float64, labels []int, folds [][]int, holdout int) (float64, error) {
	held := make(map[int]bool, len(folds[holdout]))
	for _, idx := range folds[holdout] {
		held[idx] = true
	}

	trainX := make([][]float64, 0, len(features))
	trainY := make([]int, 0, len(labels))
	for i := range features {
		if !held[i] {
			trainX = append(trainX, features[i])
			trainY = append(trainY, labels[i])
		}
	}

	model := factory()
	if err := model.Train(trainX, trainY); err != nil {
		return 0, err
	}

	truth := make([]int, 0, len(folds[holdout]))
	scores := make([]float64, 0, len(folds[holdout]))
	for _, idx := range folds[holdout] {
		_, proba, err := model.Predict(features[idx])
		if err != nil {
			return 0, err
		}
		truth = append(truth, labels[idx])
		scores = append(scores, proba)
	}
	return ROCAUC(truth, scores)
}
