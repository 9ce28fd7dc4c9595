package anomaly

import (
	"fmt"
	"math"

	"incubator-monitor/internal/models"
)

// FeatureNames 模型特征顺序：7 个核心参数 + 4 个派生特征
var FeatureNames = []string{
	"temperatura",
	"humedad",
	"oxigeno",
	"frecuencia_cardiaca",
	"frecuencia_respiratoria",
	"presion_arterial_sistolica",
	"presion_arterial_diastolica",
	"temp_deviation",
	"humidity_deviation",
	"hr_rr_ratio",
	"bp_diff",
}

// 派生特征的基准值
const (
	temperaturaNominal = 36.75
	humedadNominal     = 55.0
)

// DeriveFeatures 从完整读数派生 11 维特征向量
// 前置条件：7 个核心参数齐全且 frecuencia_respiratoria > 0，
// 否则返回 models.ErrInvalidReading（调用方应在上游过滤/拒绝）
func DeriveFeatures(r *models.SensorReading) ([]float64, error) {
	if !r.CoreComplete() {
		return nil, fmt.Errorf("%w: core parameters incomplete for feature derivation", models.ErrInvalidReading)
	}
	if *r.FrecuenciaRespiratoria == 0 {
		return nil, fmt.Errorf("%w: frecuencia_respiratoria is zero, hr_rr_ratio undefined", models.ErrInvalidReading)
	}

	temperatura := *r.TemperaturaCorporal
	humedad := *r.HumedadIncubadora
	oxigeno := *r.SaturacionOxigeno
	fc := *r.FrecuenciaCardiaca
	fr := *r.FrecuenciaRespiratoria
	sistolica := *r.PresionSistolica
	diastolica := *r.PresionDiastolica

	return []float64{
		temperatura,
		humedad,
		oxigeno,
		fc,
		fr,
		sistolica,
		diastolica,
		math.Abs(temperatura - temperaturaNominal),
		math.Abs(humedad - humedadNominal),
		fc / fr,
		sistolica - diastolica,
	}, nil
}
