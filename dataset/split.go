package dataset

import (
	"errors"
	"math"
	"math/rand"

	"cardioml/ml"
)

// stratifiedIndices shuffles and splits row indices per class so both
// partitions keep the class balance. The shuffle is seeded, so the split is
// reproducible.
func stratifiedIndices(labels []int, testSize float64, seed int64) (trainIdx, testIdx []int, err error) {
	if len(labels) == 0 {
		return nil, nil, errors.New("labels must be non-empty")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.New("test size must be in (0, 1)")
	}

	rnd := rand.New(rand.NewSource(seed))
	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	for label := 0; label <= 1; label++ {
		indices := byClass[label]
		rnd.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		testCount := int(math.Round(float64(len(indices)) * testSize))
		testIdx = append(testIdx, indices[:testCount]...)
		trainIdx = append(trainIdx, indices[testCount:]...)
	}

	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, errors.New("split produced an empty partition")
	}
	return trainIdx, testIdx, nil
}

// TrainTestSplit splits a preprocessed feature matrix into stratified train
// and test partitions.
func TrainTestSplit(features [][]float64, labels []int, testSize float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int, err error) {
	if len(features) != len(labels) {
		return nil, nil, nil, nil, errors.New("features and labels must be the same length")
	}
	trainIdx, testIdx, err := stratifiedIndices(labels, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, i := range trainIdx {
		trainX = append(trainX, features[i])
		trainY = append(trainY, labels[i])
	}
	for _, i := range testIdx {
		testX = append(testX, features[i])
		testY = append(testY, labels[i])
	}
	return trainX, trainY, testX, testY, nil
}

// TrainTestSplitRows splits raw rows before preprocessing, so pipeline
// statistics can be fitted on the training partition only.
func TrainTestSplitRows(rows []ml.Row, labels []int, testSize float64, seed int64) (trainRows []ml.Row, trainY []int, testRows []ml.Row, testY []int, err error) {
	if len(rows) != len(labels) {
		return nil, nil, nil, nil, errors.New("rows and labels must be the same length")
	}
	trainIdx, testIdx, err := stratifiedIndices(labels, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, i := range trainIdx {
		trainRows = append(trainRows, rows[i])
		trainY = append(trainY, labels[i])
	}
	for _, i := range testIdx {
		testRows = append(testRows, rows[i])
		testY = append(testY, labels[i])
	}
	return trainRows, trainY, testRows, testY, nil
}
