package anomaly

import (
	"fmt"
	"math"
)

// StandardScaler 按特征列做均值/标准差归一化
// 在训练集上拟合一次，推理时用同一组参数变换
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit 在特征矩阵上拟合均值和标准差（标准差为 0 时记为 1，避免除零）
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return fmt.Errorf("cannot fit scaler on empty matrix")
	}
	dims := len(matrix[0])
	mean := make([]float64, dims)
	scale := make([]float64, dims)

	for _, row := range matrix {
		if len(row) != dims {
			return fmt.Errorf("inconsistent feature dimensions: expected %d, got %d", dims, len(row))
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(matrix))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range matrix {
		for j, v := range row {
			diff := v - mean[j]
			scale[j] += diff * diff
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1.0
		}
	}

	s.Mean = mean
	s.Scale = scale
	return nil
}

// Fitted 判断是否已拟合
func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0 && len(s.Mean) == len(s.Scale)
}

// Transform 变换单个样本
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("scaler has not been fitted")
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("dimension mismatch: scaler fitted on %d features, got %d", len(s.Mean), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformMatrix 变换整个矩阵
func (s *StandardScaler) TransformMatrix(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
