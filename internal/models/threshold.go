package models

import (
	"time"
)

// UmbralPaciente 病人个性化阈值（对应 umbrales_paciente 表）
// 由临床配置子系统维护，本服务只读；同一 (paciente, parametro)
// 可能存在多条激活记录，逐条评估
type UmbralPaciente struct {
	ID              string    `json:"id" db:"id"`
	PacienteID      string    `json:"paciente_id" db:"paciente_id"`
	Parametro       string    `json:"parametro" db:"parametro"`
	ValorMin        *float64  `json:"valor_min,omitempty" db:"valor_min"`
	ValorMax        *float64  `json:"valor_max,omitempty" db:"valor_max"`
	ValorCriticoMin *float64  `json:"valor_critico_min,omitempty" db:"valor_critico_min"`
	ValorCriticoMax *float64  `json:"valor_critico_max,omitempty" db:"valor_critico_max"`
	Activo          bool      `json:"activo" db:"activo"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// 阈值违规类别
const (
	UmbralCritico    = "critico"     // 越过 valor_critico_min/max
	UmbralFueraRango = "fuera_rango" // 越过 valor_min/max
)

// UmbralViolation 阈值违规（评估期间临时产生）
// TipoAlerta 形如 "<parametro>_critico" / "<parametro>_fuera_rango"
type UmbralViolation struct {
	Parametro  string  `json:"parametro"`
	Valor      float64 `json:"valor"`
	Umbral     float64 `json:"umbral"`    // 被越过的边界值
	Categoria  string  `json:"categoria"` // critico | fuera_rango
	TipoAlerta string  `json:"tipo_alerta"`
	Severidad  string  `json:"severidad"` // critico→critica, fuera_rango→media
}
