package anomaly

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"incubator-monitor/internal/models"

	"go.uber.org/zap"
)

// ErrNotTrained 模型尚未训练或加载
var ErrNotTrained = errors.New("anomaly model has not been trained")

// ErrInsufficientData 训练样本不足
var ErrInsufficientData = errors.New("insufficient training samples")

// MinTrainingSamples 训练所需的最小有效样本数
const MinTrainingSamples = 50

// ScoreResult 单条读数的打分结果
// Score 为判定函数值（越负越异常），Confidence 取其绝对值
type ScoreResult struct {
	IsOutlier  bool    `json:"is_outlier"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// TrainingReport 训练诊断信息（不用于门控）
type TrainingReport struct {
	SamplesTrained    int     `json:"samples_trained"`
	AnomaliesDetected int     `json:"anomalies_detected"`
	AnomalyRate       float64 `json:"anomaly_rate"`
	MeanAnomalyScore  float64 `json:"mean_anomaly_score"`
}

// ModelInfo 当前模型状态摘要
type ModelInfo struct {
	IsTrained     bool                          `json:"is_trained"`
	FeatureNames  []string                      `json:"feature_names"`
	NormalRanges  map[string]models.RangoNormal `json:"normal_ranges"`
	ModelType     string                        `json:"model_type,omitempty"`
	Estimators    int                           `json:"n_estimators,omitempty"`
	Contamination float64                       `json:"contamination,omitempty"`
	Seed          int64                         `json:"seed,omitempty"`
}

// bundle 持久化单元：模型 + 归一化器 + 特征表 + 正常范围 + 训练标志
type bundle struct {
	Forest       *IsolationForest              `json:"model"`
	Scaler       *StandardScaler               `json:"scaler"`
	FeatureNames []string                      `json:"feature_names"`
	NormalRanges map[string]models.RangoNormal `json:"normal_ranges"`
	IsTrained    bool                          `json:"is_trained"`
}

// Detector 异常检测器句柄
// 训练产生新的 bundle 整体替换旧的；并发 Predict 只会看到完整的新旧
// 其中之一（RWMutex 单写多读）
type Detector struct {
	mu      sync.RWMutex
	current *bundle

	estimators int
	seed       int64
	logger     *zap.Logger
}

// NewDetector 创建未训练的检测器
func NewDetector(estimators int, seed int64, logger *zap.Logger) *Detector {
	if estimators <= 0 {
		estimators = DefaultEstimators
	}
	return &Detector{
		estimators: estimators,
		seed:       seed,
		logger:     logger,
	}
}

// Train 在历史读数上训练模型
// 过滤掉核心参数不全或验证失败的读数；有效样本不足 MinTrainingSamples
// 时返回 ErrInsufficientData，当前模型保持不变
func (d *Detector) Train(readings []*models.SensorReading, contamination float64) (*TrainingReport, error) {
	matrix := make([][]float64, 0, len(readings))
	for _, r := range readings {
		if r == nil || !r.CoreComplete() {
			continue
		}
		if err := r.Validate(); err != nil {
			continue
		}
		row, err := DeriveFeatures(r)
		if err != nil {
			continue
		}
		matrix = append(matrix, row)
	}

	if len(matrix) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: need at least %d valid samples, got %d",
			ErrInsufficientData, MinTrainingSamples, len(matrix))
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(matrix); err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaled, err := scaler.TransformMatrix(matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to scale training matrix: %w", err)
	}

	forest := NewIsolationForest(d.estimators, contamination, d.seed)
	if err := forest.Fit(scaled); err != nil {
		return nil, fmt.Errorf("failed to fit isolation forest: %w", err)
	}

	// 在训练集上自评，仅作诊断
	anomalies := 0
	var scoreSum float64
	for _, row := range scaled {
		decision, _ := forest.DecisionFunction(row)
		if decision < 0 {
			anomalies++
		}
		scoreSum += decision
	}

	newBundle := &bundle{
		Forest:       forest,
		Scaler:       scaler,
		FeatureNames: append([]string(nil), FeatureNames...),
		NormalRanges: models.RangosNormales,
		IsTrained:    true,
	}

	d.mu.Lock()
	d.current = newBundle
	d.mu.Unlock()

	report := &TrainingReport{
		SamplesTrained:    len(matrix),
		AnomaliesDetected: anomalies,
		AnomalyRate:       float64(anomalies) / float64(len(matrix)),
		MeanAnomalyScore:  scoreSum / float64(len(matrix)),
	}

	d.logger.Info("Anomaly model trained",
		zap.Int("samples_trained", report.SamplesTrained),
		zap.Int("anomalies_detected", report.AnomaliesDetected),
		zap.Float64("anomaly_rate", report.AnomalyRate),
	)

	return report, nil
}

// Predict 对单条读数打分
// 未训练返回 ErrNotTrained；读数不完整返回 models.ErrInvalidReading
func (d *Detector) Predict(r *models.SensorReading) (*ScoreResult, error) {
	d.mu.RLock()
	b := d.current
	d.mu.RUnlock()

	if b == nil || !b.IsTrained {
		return nil, ErrNotTrained
	}

	row, err := DeriveFeatures(r)
	if err != nil {
		return nil, err
	}
	scaled, err := b.Scaler.Transform(row)
	if err != nil {
		return nil, fmt.Errorf("failed to scale sample: %w", err)
	}
	decision, err := b.Forest.DecisionFunction(scaled)
	if err != nil {
		return nil, err
	}

	return &ScoreResult{
		IsOutlier:  decision < 0,
		Score:      decision,
		Confidence: abs(decision),
	}, nil
}

// IsTrained 判断是否可用于推理
func (d *Detector) IsTrained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current != nil && d.current.IsTrained
}

// Save 持久化当前 bundle（临时文件 + rename，整体原子落盘）
// 未训练或写入失败返回 false，从不 panic
func (d *Detector) Save(path string) bool {
	d.mu.RLock()
	b := d.current
	d.mu.RUnlock()

	if b == nil || !b.IsTrained {
		d.logger.Error("Cannot save untrained model", zap.String("path", path))
		return false
	}

	data, err := json.Marshal(b)
	if err != nil {
		d.logger.Error("Failed to marshal model bundle", zap.Error(err))
		return false
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.logger.Error("Failed to create model directory",
			zap.String("dir", dir),
			zap.Error(err),
		)
		return false
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		d.logger.Error("Failed to create temp model file", zap.Error(err))
		return false
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		d.logger.Error("Failed to write model bundle", zap.Error(err))
		return false
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		d.logger.Error("Failed to close temp model file", zap.Error(err))
		return false
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		d.logger.Error("Failed to move model bundle into place",
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}

	d.logger.Info("Model bundle saved", zap.String("path", path))
	return true
}

// Load 从磁盘恢复 bundle
// 文件缺失/损坏返回 false 并保持现有状态（冷启动时属预期情况）
func (d *Detector) Load(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Warn("Model bundle not loaded",
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		d.logger.Error("Failed to unmarshal model bundle",
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}

	if !b.IsTrained || b.Forest == nil || b.Scaler == nil {
		d.logger.Error("Model bundle is incomplete", zap.String("path", path))
		return false
	}
	// 训练完成的模型，特征表长度必须与归一化器维度一致
	if len(b.FeatureNames) != len(b.Scaler.Mean) {
		d.logger.Error("Model bundle dimension mismatch",
			zap.Int("feature_names", len(b.FeatureNames)),
			zap.Int("scaler_dims", len(b.Scaler.Mean)),
		)
		return false
	}

	d.mu.Lock()
	d.current = &b
	d.mu.Unlock()

	d.logger.Info("Model bundle loaded", zap.String("path", path))
	return true
}

// Info 返回当前模型状态摘要
func (d *Detector) Info() *ModelInfo {
	d.mu.RLock()
	b := d.current
	d.mu.RUnlock()

	info := &ModelInfo{
		FeatureNames: append([]string(nil), FeatureNames...),
		NormalRanges: models.RangosNormales,
	}
	if b != nil && b.IsTrained {
		info.IsTrained = true
		info.ModelType = "IsolationForest"
		info.Estimators = b.Forest.Estimators
		info.Contamination = b.Forest.Contamination
		info.Seed = b.Forest.Seed
	}
	return info
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
