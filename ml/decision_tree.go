package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

// DecisionTree is a CART-style binary classifier. The fitted tree is stored
// as a flat node array so it serializes to a plain JSON table.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures limits how many features each split may consider;
	// 0 means all. Used by the random forest for decorrelation.
	MaxFeatures int
	Seed        int64

	nodes []TreeNode
}

// TreeNode is one node of the flattened tree. Child fields index into the
// node array; leaves carry the majority label and positive-class fraction.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Label      int     `json:"label"`
	Prob       float64 `json:"prob"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree returns an untrained tree with the given depth limit.
func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
	}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if err := validateTrainingSet(features, labels); err != nil {
		return err
	}
	if dt.MaxDepth <= 0 {
		dt.MaxDepth = 3
	}
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}

	rnd := rand.New(rand.NewSource(dt.Seed))
	dt.nodes = dt.buildNodes(features, labels, 0, rnd)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Label, node.Prob, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

type treeArtifact struct {
	Version  int        `json:"version"`
	Type     string     `json:"type"`
	MaxDepth int        `json:"max_depth"`
	Nodes    []TreeNode `json:"nodes"`
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeArtifact{
		Version:  modelArtifactVersion,
		Type:     ModelDecisionTree,
		MaxDepth: dt.MaxDepth,
		Nodes:    dt.nodes,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact treeArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return err
	}
	if artifact.Version != modelArtifactVersion {
		return fmt.Errorf("unsupported model artifact version %d", artifact.Version)
	}
	if artifact.Type != ModelDecisionTree {
		return fmt.Errorf("artifact type %q is not %s", artifact.Type, ModelDecisionTree)
	}
	if len(artifact.Nodes) == 0 {
		return errors.New("artifact has no nodes")
	}
	dt.MaxDepth = artifact.MaxDepth
	dt.nodes = artifact.Nodes
	return nil
}

// buildNodes grows a subtree and returns it flattened, root first. Child
// indices inside the returned slice are relative to its start and are shifted
// when subtrees are spliced into the parent slice.
func (dt *DecisionTree) buildNodes(features [][]float64, labels []int, depth int, rnd *rand.Rand) []TreeNode {
	label, prob := majorityLabel(labels)
	leaf := []TreeNode{{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Label:      label,
		Prob:       prob,
		IsLeaf:     true,
	}}

	if depth >= dt.MaxDepth || len(labels) < dt.MinSamplesSplit || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, rnd)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := dt.buildNodes(leftFeatures, leftLabels, depth+1, rnd)
	rightNodes := dt.buildNodes(rightFeatures, rightLabels, depth+1, rnd)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Label:      label,
		Prob:       prob,
	})
	nodes = append(nodes, shiftChildren(leftNodes, 1)...)
	nodes = append(nodes, shiftChildren(rightNodes, 1+len(leftNodes))...)
	return nodes
}

func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if !nodes[i].IsLeaf {
			nodes[i].LeftChild += offset
			nodes[i].RightChild += offset
		}
	}
	return nodes
}

// findBestSplit scans candidate thresholds (midpoints between consecutive
// distinct values) and keeps the one with the lowest weighted Gini impurity.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, rnd *rand.Rand) (int, float64, bool) {
	featureCount := len(features[0])
	candidates := dt.candidateFeatures(featureCount, rnd)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := gini(labels)

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		for i := 1; i < len(sorted); i++ {
			if sorted[i] == sorted[i-1] {
				continue
			}
			threshold := (sorted[i-1] + sorted[i]) / 2
			leftLabels, rightLabels := splitLabels(values, labels, threshold)
			if len(leftLabels) == 0 || len(rightLabels) == 0 {
				continue
			}
			impurity := weightedGini(leftLabels, rightLabels)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (dt *DecisionTree) candidateFeatures(featureCount int, rnd *rand.Rand) []int {
	all := make([]int, featureCount)
	for i := range all {
		all[i] = i
	}
	if dt.MaxFeatures <= 0 || dt.MaxFeatures >= featureCount {
		return all
	}
	rnd.Shuffle(len(all), func(a, b int) {
		all[a], all[b] = all[b], all[a]
	})
	subset := all[:dt.MaxFeatures]
	sort.Ints(subset)
	return subset
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	var leftFeatures, rightFeatures [][]float64
	var leftLabels, rightLabels []int
	for i, row := range features {
		if row[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(values []float64, labels []int, threshold float64) ([]int, []int) {
	var left, right []int
	for i, v := range values {
		if v <= threshold {
			left = append(left, labels[i])
		} else {
			right = append(right, labels[i])
		}
	}
	return left, right
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	positives := 0
	for _, label := range labels {
		if label == 1 {
			positives++
		}
	}
	p := float64(positives) / float64(len(labels))
	return 2 * p * (1 - p)
}

func majorityLabel(labels []int) (int, float64) {
	if len(labels) == 0 {
		return 0, 0
	}
	positives := 0
	for _, label := range labels {
		if label == 1 {
			positives++
		}
	}
	prob := float64(positives) / float64(len(labels))
	if positives*2 >= len(labels) {
		return 1, prob
	}
	return 0, prob
}

func isPure(labels []int) bool {
	for _, label := range labels[1:] {
		if label != labels[0] {
			return false
		}
	}
	return true
}
