package evaluator

import (
	"fmt"
	"time"

	"incubator-monitor/internal/anomaly"
	"incubator-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TipoAnomalia ML 异常报警的 tipo_alerta
const TipoAnomalia = "anomalia_detectada"

// EvaluationResult 一条读数的完整评估结果
type EvaluationResult struct {
	Score            *anomaly.ScoreResult     `json:"score"`
	RangeViolations  []models.Violation       `json:"range_violations"`
	UmbralViolations []models.UmbralViolation `json:"umbral_violations"`
	Nivel            models.NivelAlerta       `json:"nivel"`
	CreatedAlerts    []*models.Alerta         `json:"created_alerts"`
}

// Evaluator 读数评估器：打分 → 范围/阈值检查 → 级别判定 → 构建报警
type Evaluator struct {
	detector *anomaly.Detector
	logger   *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(detector *anomaly.Detector, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		detector: detector,
		logger:   logger,
	}
}

// Evaluate 评估单条读数
// 读数验证失败返回 models.ErrInvalidReading；模型未训练返回
// anomaly.ErrNotTrained。离群只是评估结果，不是错误
func (e *Evaluator) Evaluate(reading *models.SensorReading, umbrales []*models.UmbralPaciente) (*EvaluationResult, error) {
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	score, err := e.detector.Predict(reading)
	if err != nil {
		return nil, err
	}

	rangeViolations := CheckNormalRanges(reading.CoreValues())
	umbralViolations := CheckUmbrales(umbrales, reading.ThresholdValues())
	nivel := ResolveAlertLevel(score.IsOutlier, score.Score, rangeViolations, umbralViolations)

	result := &EvaluationResult{
		Score:            score,
		RangeViolations:  rangeViolations,
		UmbralViolations: umbralViolations,
		Nivel:            nivel,
		CreatedAlerts:    buildAlerts(reading, score, umbralViolations, nivel),
	}

	e.logger.Debug("Reading evaluated",
		zap.String("incubadora_id", reading.IncubadoraID),
		zap.String("nivel", nivel.String()),
		zap.Bool("is_outlier", score.IsOutlier),
		zap.Float64("score", score.Score),
		zap.Int("range_violations", len(rangeViolations)),
		zap.Int("umbral_violations", len(umbralViolations)),
	)

	return result, nil
}

// buildAlerts 按评估结果构建报警记录（尚未落库）
// 级别非 NORMAL 时产生一条 ML 异常报警，每条阈值违规再各产生一条；
// severidad 在此处确定且之后不再修改
func buildAlerts(reading *models.SensorReading, score *anomaly.ScoreResult, umbralViolations []models.UmbralViolation, nivel models.NivelAlerta) []*models.Alerta {
	now := time.Now()
	alerts := []*models.Alerta{}

	if nivel != models.NivelNormal {
		valorScore := score.Score
		alerts = append(alerts, &models.Alerta{
			ID:           uuid.New().String(),
			IncubadoraID: reading.IncubadoraID,
			PacienteID:   reading.PacienteID,
			TipoAlerta:   TipoAnomalia,
			Severidad:    nivel.Severidad(),
			Mensaje: fmt.Sprintf("Anomalía detectada por ML: nivel %s, score %.4f",
				nivel.String(), score.Score),
			ValorSensor: &valorScore,
			Estado:      models.EstadoActiva,
			CreatedAt:   now,
		})
	}

	for _, v := range umbralViolations {
		valor := v.Valor
		umbral := v.Umbral
		mensaje := fmt.Sprintf("%s fuera de rango: %v", v.Parametro, v.Valor)
		if v.Categoria == models.UmbralCritico {
			mensaje = fmt.Sprintf("%s en nivel crítico: %v", v.Parametro, v.Valor)
		}
		alerts = append(alerts, &models.Alerta{
			ID:                uuid.New().String(),
			IncubadoraID:      reading.IncubadoraID,
			PacienteID:        reading.PacienteID,
			TipoAlerta:        v.TipoAlerta,
			Severidad:         v.Severidad,
			Mensaje:           mensaje,
			ValorSensor:       &valor,
			UmbralConfigurado: &umbral,
			Estado:            models.EstadoActiva,
			CreatedAt:         now,
		})
	}

	return alerts
}
