package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// 默认超参数（与训练脚本保持一致）
const (
	DefaultEstimators    = 100
	DefaultContamination = 0.10
	DefaultSeed          = 42
	maxSubsampleSize     = 256
)

// treeNode 隔离树节点：内部节点按随机特征/随机切分值二分，
// 叶子只记录落入的样本数
type treeNode struct {
	Feature int       `json:"f,omitempty"`
	Split   float64   `json:"s,omitempty"`
	Left    *treeNode `json:"l,omitempty"`
	Right   *treeNode `json:"r,omitempty"`
	Size    int       `json:"n"`
}

func (t *treeNode) isLeaf() bool {
	return t.Left == nil || t.Right == nil
}

// IsolationForest 隔离森林：随机划分树集成的离群点检测器
// 训练期的随机性来自固定种子，推理完全确定
type IsolationForest struct {
	Estimators    int         `json:"n_estimators"`
	Contamination float64     `json:"contamination"`
	Seed          int64       `json:"seed"`
	Subsample     int         `json:"max_samples"`
	Offset        float64     `json:"offset"`
	Trees         []*treeNode `json:"trees"`
}

// NewIsolationForest 创建未训练的隔离森林
func NewIsolationForest(estimators int, contamination float64, seed int64) *IsolationForest {
	if estimators <= 0 {
		estimators = DefaultEstimators
	}
	if contamination <= 0 || contamination >= 0.5 {
		contamination = DefaultContamination
	}
	return &IsolationForest{
		Estimators:    estimators,
		Contamination: contamination,
		Seed:          seed,
	}
}

// Fit 在归一化后的特征矩阵上训练：逐棵树在子样本上做随机递归划分，
// 再用训练集分数的 contamination 分位数定出离群判定偏移
func (f *IsolationForest) Fit(matrix [][]float64) error {
	n := len(matrix)
	if n == 0 {
		return fmt.Errorf("cannot fit isolation forest on empty matrix")
	}
	dims := len(matrix[0])
	if dims == 0 {
		return fmt.Errorf("cannot fit isolation forest without features")
	}

	f.Subsample = n
	if f.Subsample > maxSubsampleSize {
		f.Subsample = maxSubsampleSize
	}
	heightLimit := int(math.Ceil(math.Log2(float64(f.Subsample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	trees := make([]*treeNode, 0, f.Estimators)
	for i := 0; i < f.Estimators; i++ {
		idx := rng.Perm(n)[:f.Subsample]
		trees = append(trees, buildTree(matrix, idx, 0, heightLimit, dims, rng))
	}
	f.Trees = trees

	// 训练集分数的分位数作为判定偏移：decision < 0 即离群
	scores := make([]float64, n)
	for i, row := range matrix {
		scores[i] = f.scoreSample(row)
	}
	f.Offset = percentile(scores, f.Contamination*100.0)

	return nil
}

// buildTree 递归构建隔离树
func buildTree(matrix [][]float64, idx []int, depth, heightLimit, dims int, rng *rand.Rand) *treeNode {
	if depth >= heightLimit || len(idx) <= 1 {
		return &treeNode{Size: len(idx)}
	}

	// 只在取值不恒定的特征里随机挑选
	candidates := make([]int, 0, dims)
	for j := 0; j < dims; j++ {
		lo, hi := matrix[idx[0]][j], matrix[idx[0]][j]
		for _, i := range idx[1:] {
			v := matrix[i][j]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &treeNode{Size: len(idx)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	lo, hi := matrix[idx[0]][feature], matrix[idx[0]][feature]
	for _, i := range idx[1:] {
		v := matrix[i][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, i := range idx {
		if matrix[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{Size: len(idx)}
	}

	return &treeNode{
		Feature: feature,
		Split:   split,
		Size:    len(idx),
		Left:    buildTree(matrix, left, depth+1, heightLimit, dims, rng),
		Right:   buildTree(matrix, right, depth+1, heightLimit, dims, rng),
	}
}

// Fitted 判断森林是否已训练
func (f *IsolationForest) Fitted() bool {
	return len(f.Trees) > 0
}

// pathLength 样本在单棵树中的路径长度（叶子按子集大小补平均路径）
func pathLength(node *treeNode, row []float64, depth float64) float64 {
	if node.isLeaf() {
		return depth + averagePathLength(node.Size)
	}
	if row[node.Feature] < node.Split {
		return pathLength(node.Left, row, depth+1)
	}
	return pathLength(node.Right, row, depth+1)
}

// averagePathLength BST 失败查找的期望路径长度 c(n)
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	harmonic := math.Log(fn-1) + 0.5772156649015329
	return 2*harmonic - 2*(fn-1)/fn
}

// scoreSample 原始异常分数的相反数：越负越异常，取值在 [-1, 0)
func (f *IsolationForest) scoreSample(row []float64) float64 {
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, row, 0)
	}
	avg := total / float64(len(f.Trees))
	s := math.Pow(2, -avg/averagePathLength(f.Subsample))
	return -s
}

// DecisionFunction 判定函数值：正常样本为正，离群样本为负
func (f *IsolationForest) DecisionFunction(row []float64) (float64, error) {
	if !f.Fitted() {
		return 0, fmt.Errorf("isolation forest has not been fitted")
	}
	return f.scoreSample(row) - f.Offset, nil
}

// percentile 线性插值分位数（p 取 0-100）
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
