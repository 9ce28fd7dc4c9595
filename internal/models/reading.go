package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidReading 读数验证失败（字段缺失或超出有效输入范围）
var ErrInvalidReading = errors.New("invalid sensor reading")

// SensorReading 传感器读数（对应 sensor_data 表）
// 所有数值字段均为可选：采集端可能只上报部分参数
type SensorReading struct {
	ID           string    `json:"id" db:"id"`
	IncubadoraID string    `json:"incubadora_id" db:"incubadora_id"`
	PacienteID   *string   `json:"paciente_id,omitempty" db:"paciente_id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`

	// 生理参数（críticas）
	TemperaturaCorporal    *float64 `json:"temperatura_corporal,omitempty" db:"temperatura_corporal"`
	FrecuenciaCardiaca     *float64 `json:"frecuencia_cardiaca,omitempty" db:"frecuencia_cardiaca"`
	FrecuenciaRespiratoria *float64 `json:"frecuencia_respiratoria,omitempty" db:"frecuencia_respiratoria"`
	SaturacionOxigeno      *float64 `json:"saturacion_oxigeno,omitempty" db:"saturacion_oxigeno"`
	PresionSistolica       *float64 `json:"presion_arterial_sistolica,omitempty" db:"presion_arterial_sistolica"`
	PresionDiastolica      *float64 `json:"presion_arterial_diastolica,omitempty" db:"presion_arterial_diastolica"`

	// 保育箱环境参数
	TemperaturaIncubadora *float64 `json:"temperatura_incubadora,omitempty" db:"temperatura_incubadora"`
	HumedadIncubadora     *float64 `json:"humedad_incubadora,omitempty" db:"humedad_incubadora"`
	ConcentracionOxigeno  *float64 `json:"concentracion_oxigeno,omitempty" db:"concentracion_oxigeno"`
	PresionAire           *float64 `json:"presion_aire,omitempty" db:"presion_aire"`
	NivelRuido            *float64 `json:"nivel_ruido,omitempty" db:"nivel_ruido"`

	// 附加参数
	PesoActual   *float64 `json:"peso_actual,omitempty" db:"peso_actual"`
	EstadoSensor string   `json:"estado_sensor" db:"estado_sensor"`
	CalidadDatos float64  `json:"calidad_datos" db:"calidad_datos"`
}

// inputRange 字段的有效输入范围（非临床正常范围，仅用于拒绝坏数据）
type inputRange struct {
	min, max float64
}

var readingInputRanges = map[string]inputRange{
	"temperatura_corporal":        {30.0, 42.0},
	"frecuencia_cardiaca":         {0, 300},
	"frecuencia_respiratoria":     {0, 100},
	"saturacion_oxigeno":          {0.0, 100.0},
	"presion_arterial_sistolica":  {0, 200},
	"presion_arterial_diastolica": {0, 150},
	"temperatura_incubadora":      {20.0, 40.0},
	"humedad_incubadora":          {0.0, 100.0},
	"concentracion_oxigeno":       {15.0, 100.0},
	"presion_aire":                {90000.0, 110000.0}, // Pa
	"nivel_ruido":                 {0.0, 120.0},        // dB
	"peso_actual":                 {0.0, 10000.0},      // gramos
}

// Validate 验证读数：incubadora 必填，数值字段必须在有效输入范围内
func (r *SensorReading) Validate() error {
	if r.IncubadoraID == "" {
		return fmt.Errorf("%w: incubadora_id is required", ErrInvalidReading)
	}
	if r.CalidadDatos < 0.0 || r.CalidadDatos > 1.0 {
		return fmt.Errorf("%w: calidad_datos must be in [0,1], got %v", ErrInvalidReading, r.CalidadDatos)
	}
	for name, value := range r.fieldValues() {
		rng, ok := readingInputRanges[name]
		if !ok {
			continue
		}
		if value < rng.min || value > rng.max {
			return fmt.Errorf("%w: %s=%v outside valid input range [%v, %v]",
				ErrInvalidReading, name, value, rng.min, rng.max)
		}
	}
	return nil
}

// fieldValues 返回所有已上报的数值字段（按数据库列名）
func (r *SensorReading) fieldValues() map[string]float64 {
	out := make(map[string]float64, 12)
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put("temperatura_corporal", r.TemperaturaCorporal)
	put("frecuencia_cardiaca", r.FrecuenciaCardiaca)
	put("frecuencia_respiratoria", r.FrecuenciaRespiratoria)
	put("saturacion_oxigeno", r.SaturacionOxigeno)
	put("presion_arterial_sistolica", r.PresionSistolica)
	put("presion_arterial_diastolica", r.PresionDiastolica)
	put("temperatura_incubadora", r.TemperaturaIncubadora)
	put("humedad_incubadora", r.HumedadIncubadora)
	put("concentracion_oxigeno", r.ConcentracionOxigeno)
	put("presion_aire", r.PresionAire)
	put("nivel_ruido", r.NivelRuido)
	put("peso_actual", r.PesoActual)
	return out
}

// CoreComplete 判断打分器所需的 7 个核心生理参数是否齐全
func (r *SensorReading) CoreComplete() bool {
	return r.TemperaturaCorporal != nil &&
		r.HumedadIncubadora != nil &&
		r.SaturacionOxigeno != nil &&
		r.FrecuenciaCardiaca != nil &&
		r.FrecuenciaRespiratoria != nil &&
		r.PresionSistolica != nil &&
		r.PresionDiastolica != nil
}

// CoreValues 返回打分器/范围检查器使用的核心参数（按模型特征名）
// temperatura ← temperatura_corporal, humedad ← humedad_incubadora,
// oxigeno ← saturacion_oxigeno
func (r *SensorReading) CoreValues() map[string]float64 {
	out := make(map[string]float64, 7)
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put("temperatura", r.TemperaturaCorporal)
	put("humedad", r.HumedadIncubadora)
	put("oxigeno", r.SaturacionOxigeno)
	put("frecuencia_cardiaca", r.FrecuenciaCardiaca)
	put("frecuencia_respiratoria", r.FrecuenciaRespiratoria)
	put("presion_arterial_sistolica", r.PresionSistolica)
	put("presion_arterial_diastolica", r.PresionDiastolica)
	return out
}

// ThresholdValues 返回阈值检查器监控的参数（按 umbrales_paciente.parametro 命名）
func (r *SensorReading) ThresholdValues() map[string]float64 {
	out := make(map[string]float64, 6)
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put("temperatura_corporal", r.TemperaturaCorporal)
	put("frecuencia_cardiaca", r.FrecuenciaCardiaca)
	put("frecuencia_respiratoria", r.FrecuenciaRespiratoria)
	put("saturacion_oxigeno", r.SaturacionOxigeno)
	put("temperatura_incubadora", r.TemperaturaIncubadora)
	put("humedad_incubadora", r.HumedadIncubadora)
	return out
}
