package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
)

// RandomForest bags seeded decision trees over bootstrap samples. Trees are
// independent, so training runs them in parallel; each tree gets its own
// derived seed to keep the forest reproducible.
type RandomForest struct {
	NEstimators int
	MaxDepth    int
	// MaxFeatures per split; 0 picks sqrt of the feature count at train time.
	MaxFeatures int
	Seed        int64

	trees []*DecisionTree
}

// NewRandomForest returns an untrained forest.
func NewRandomForest(nEstimators, maxDepth int, seed int64) *RandomForest {
	return &RandomForest{
		NEstimators: nEstimators,
		MaxDepth:    maxDepth,
		Seed:        seed,
	}
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		rf.NEstimators = 100
	}
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(len(features[0]))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	n := len(features)
	trees := make([]*DecisionTree, rf.NEstimators)
	errs := make([]error, rf.NEstimators)

	var wg sync.WaitGroup
	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			treeSeed := rf.Seed + int64(idx)
			rnd := rand.New(rand.NewSource(treeSeed))

			sampleX := make([][]float64, n)
			sampleY := make([]int, n)
			for j := 0; j < n; j++ {
				pick := rnd.Intn(n)
				sampleX[j] = features[pick]
				sampleY[j] = labels[pick]
			}

			tree := NewDecisionTree(rf.MaxDepth)
			tree.MaxFeatures = maxFeatures
			tree.Seed = treeSeed
			errs[idx] = tree.Train(sampleX, sampleY)
			trees[idx] = tree
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	rf.trees = trees
	return nil
}

// Predict averages the leaf positive-class fractions across all trees.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.trees) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range rf.trees {
		_, proba, err := tree.Predict(features)
		if err != nil {
			return 0, 0, err
		}
		sum += proba
	}
	proba := sum / float64(len(rf.trees))
	if proba >= 0.5 {
		return 1, proba, nil
	}
	return 0, proba, nil
}

type forestArtifact struct {
	Version     int          `json:"version"`
	Type        string       `json:"type"`
	NEstimators int          `json:"n_estimators"`
	MaxDepth    int          `json:"max_depth"`
	MaxFeatures int          `json:"max_features"`
	Seed        int64        `json:"seed"`
	Trees       [][]TreeNode `json:"trees"`
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return errors.New("model not trained")
	}
	treeNodes := make([][]TreeNode, len(rf.trees))
	for i, tree := range rf.trees {
		treeNodes[i] = tree.nodes
	}
	payload, err := json.Marshal(forestArtifact{
		Version:     modelArtifactVersion,
		Type:        ModelRandomForest,
		NEstimators: rf.NEstimators,
		MaxDepth:    rf.MaxDepth,
		MaxFeatures: rf.MaxFeatures,
		Seed:        rf.Seed,
		Trees:       treeNodes,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact forestArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.Version != modelArtifactVersion {
		return fmt.Errorf("unsupported model artifact version %d", artifact.Version)
	}
	if artifact.Type != ModelRandomForest {
		return fmt.Errorf("artifact type %q is not %s", artifact.Type, ModelRandomForest)
	}
	if len(artifact.Trees) == 0 {
		return errors.New("artifact has no trees")
	}
	trees := make([]*DecisionTree, len(artifact.Trees))
	for i, nodes := range artifact.Trees {
		trees[i] = &DecisionTree{MaxDepth: artifact.MaxDepth, nodes: nodes}
	}
	rf.NEstimators = artifact.NEstimators
	rf.MaxDepth = artifact.MaxDepth
	rf.MaxFeatures = artifact.MaxFeatures
	rf.Seed = artifact.Seed
	rf.trees = trees
	return nil
}
