package ml

import (
	"errors"
	"sort"
)

// ErrDegenerateLabels is returned when ROC-AUC is requested for labels that
// contain only one class. It is fatal for that metric only; the remaining
// metrics are still well defined.
var ErrDegenerateLabels = errors.New("roc_auc requires both classes in the true labels")

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// Precision is TP / predicted positives, 0 when nothing was predicted positive.
func Precision(yTrue, yPred []int) float64 {
	tp, fp := confusionPositives(yTrue, yPred)
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

// Recall is TP / actual positives, 0 when there are no actual positives.
func Recall(yTrue, yPred []int) float64 {
	tp, fn := 0, 0
	for i := range yTrue {
		if yTrue[i] == 1 {
			if yPred[i] == 1 {
				tp++
			} else {
				fn++
			}
		}
	}
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func F1(yTrue, yPred []int) float64 {
	precision := Precision(yTrue, yPred)
	recall := Recall(yTrue, yPred)
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// ROCAUC computes the area under the ROC curve from positive-class scores
// using average ranks, which handles tied scores the standard way.
func ROCAUC(yTrue []int, scores []float64) (float64, error) {
	if len(yTrue) == 0 || len(yTrue) != len(scores) {
		return 0, errors.New("labels and scores must be non-empty and the same length")
	}

	positives := 0
	for _, y := range yTrue {
		if y == 1 {
			positives++
		}
	}
	negatives := len(yTrue) - positives
	if positives == 0 || negatives == 0 {
		return 0, ErrDegenerateLabels
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	// Average ranks across ties, then AUC via the Mann-Whitney statistic.
	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && scores[order[j]] == scores[order[i]] {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avgRank
		}
		i = j
	}

	rankSum := 0.0
	for i, y := range yTrue {
		if y == 1 {
			rankSum += ranks[i]
		}
	}
	nPos := float64(positives)
	nNeg := float64(negatives)
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// Evaluate computes the full metric set for one model's test predictions.
// When the true labels are single-class, roc_auc is omitted from the result
// and ErrDegenerateLabels is returned alongside the remaining metrics.
func Evaluate(yTrue, yPred []int, proba []float64) (map[string]float64, error) {
	if len(yTrue) == 0 {
		return nil, errors.New("no labels to evaluate")
	}
	if len(yTrue) != len(yPred) || len(yTrue) != len(proba) {
		return nil, errors.New("labels, predictions and probabilities must be the same length")
	}

	metrics := map[string]float64{
		"accuracy":  Accuracy(yTrue, yPred),
		"precision": Precision(yTrue, yPred),
		"recall":    Recall(yTrue, yPred),
		"f1_score":  F1(yTrue, yPred),
	}
	auc, err := ROCAUC(yTrue, proba)
	if err != nil {
		return metrics, err
	}
	metrics["roc_auc"] = auc
	return metrics, nil
}

func confusionPositives(yTrue, yPred []int) (tp, fp int) {
	for i := range yTrue {
		if yPred[i] == 1 {
			if yTrue[i] == 1 {
				tp++
			} else {
				fp++
			}
		}
	}
	return tp, fp
}
