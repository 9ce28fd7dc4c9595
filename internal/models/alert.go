package models

import (
	"time"
)

// 报警严重度（对应 alertas.severidad，与数据库 CHECK 约束一致）
const (
	SeveridadBaja    = "baja"
	SeveridadMedia   = "media"
	SeveridadAlta    = "alta"
	SeveridadCritica = "critica"
)

// 报警状态（对应 alertas.estado）：activa → reconocida → resuelta
const (
	EstadoActiva     = "activa"
	EstadoReconocida = "reconocida"
	EstadoResuelta   = "resuelta"
)

// NivelAlerta 评估结果级别，有序：NORMAL < BAJO < MEDIO < ALTO < CRITICO
type NivelAlerta int

const (
	NivelNormal NivelAlerta = iota
	NivelBajo
	NivelMedio
	NivelAlto
	NivelCritico
)

// String 返回级别的展示名
func (n NivelAlerta) String() string {
	switch n {
	case NivelBajo:
		return "BAJO"
	case NivelMedio:
		return "MEDIO"
	case NivelAlto:
		return "ALTO"
	case NivelCritico:
		return "CRITICO"
	default:
		return "NORMAL"
	}
}

// Severidad 返回级别对应的报警严重度（NORMAL 不产生报警）
func (n NivelAlerta) Severidad() string {
	switch n {
	case NivelBajo:
		return SeveridadBaja
	case NivelMedio:
		return SeveridadMedia
	case NivelAlto:
		return SeveridadAlta
	case NivelCritico:
		return SeveridadCritica
	default:
		return ""
	}
}

// Alerta 报警记录（对应 alertas 表）
// severidad 在创建时确定且不再修改；状态转换只通过 repository 的
// Acknowledge/Resolve 完成，记录永不删除
type Alerta struct {
	ID                    string     `json:"id" db:"id"`
	IncubadoraID          string     `json:"incubadora_id" db:"incubadora_id"`
	PacienteID            *string    `json:"paciente_id,omitempty" db:"paciente_id"`
	TipoAlerta            string     `json:"tipo_alerta" db:"tipo_alerta"`
	Severidad             string     `json:"severidad" db:"severidad"`
	Mensaje               string     `json:"mensaje" db:"mensaje"`
	ValorSensor           *float64   `json:"valor_sensor,omitempty" db:"valor_sensor"`
	UmbralConfigurado     *float64   `json:"umbral_configurado,omitempty" db:"umbral_configurado"`
	Estado                string     `json:"estado" db:"estado"`
	UsuarioReconocimiento *string    `json:"usuario_reconocimiento,omitempty" db:"usuario_reconocimiento"`
	TiempoReconocimiento  *time.Time `json:"tiempo_reconocimiento,omitempty" db:"tiempo_reconocimiento"`
	TiempoResolucion      *time.Time `json:"tiempo_resolucion,omitempty" db:"tiempo_resolucion"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

// Violation 单个参数的违规记录（评估期间临时产生，不落库）
type Violation struct {
	Parametro  string  `json:"parametro"`
	Valor      float64 `json:"valor"`
	RangoMin   float64 `json:"rango_min"`
	RangoMax   float64 `json:"rango_max"`
	Desviacion float64 `json:"desviacion"`
}
