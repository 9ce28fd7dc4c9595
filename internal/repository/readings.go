package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"incubator-monitor/internal/models"

	"go.uber.org/zap"
)

// ReadingRepository 传感器读数仓库
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 插入读数记录
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.SensorReading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.ID == "" {
		return fmt.Errorf("reading.id is required")
	}

	query := `
		INSERT INTO sensor_data (
			id,
			incubadora_id,
			paciente_id,
			timestamp,
			temperatura_corporal,
			frecuencia_cardiaca,
			frecuencia_respiratoria,
			saturacion_oxigeno,
			presion_arterial_sistolica,
			presion_arterial_diastolica,
			temperatura_incubadora,
			humedad_incubadora,
			concentracion_oxigeno,
			presion_aire,
			nivel_ruido,
			peso_actual,
			estado_sensor,
			calidad_datos
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.IncubadoraID,
		reading.PacienteID,
		reading.Timestamp,
		reading.TemperaturaCorporal,
		reading.FrecuenciaCardiaca,
		reading.FrecuenciaRespiratoria,
		reading.SaturacionOxigeno,
		reading.PresionSistolica,
		reading.PresionDiastolica,
		reading.TemperaturaIncubadora,
		reading.HumedadIncubadora,
		reading.ConcentracionOxigeno,
		reading.PresionAire,
		reading.NivelRuido,
		reading.PesoActual,
		reading.EstadoSensor,
		reading.CalidadDatos,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

// GetTrainingReadings 获取训练窗口内核心参数齐全的读数（升序）
// 只取模型需要的列，缺任何一个核心参数的行在 SQL 层直接排除
func (r *ReadingRepository) GetTrainingReadings(ctx context.Context, since time.Time) ([]*models.SensorReading, error) {
	query := `
		SELECT
			id,
			incubadora_id,
			paciente_id,
			timestamp,
			temperatura_corporal,
			frecuencia_cardiaca,
			frecuencia_respiratoria,
			saturacion_oxigeno,
			presion_arterial_sistolica,
			presion_arterial_diastolica,
			humedad_incubadora,
			calidad_datos
		FROM sensor_data
		WHERE timestamp >= $1
		  AND temperatura_corporal IS NOT NULL
		  AND frecuencia_cardiaca IS NOT NULL
		  AND frecuencia_respiratoria IS NOT NULL
		  AND saturacion_oxigeno IS NOT NULL
		  AND presion_arterial_sistolica IS NOT NULL
		  AND presion_arterial_diastolica IS NOT NULL
		  AND humedad_incubadora IS NOT NULL
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query training readings: %w", err)
	}
	defer rows.Close()

	readings := []*models.SensorReading{}
	for rows.Next() {
		var reading models.SensorReading
		var pacienteID sql.NullString

		err := rows.Scan(
			&reading.ID,
			&reading.IncubadoraID,
			&pacienteID,
			&reading.Timestamp,
			&reading.TemperaturaCorporal,
			&reading.FrecuenciaCardiaca,
			&reading.FrecuenciaRespiratoria,
			&reading.SaturacionOxigeno,
			&reading.PresionSistolica,
			&reading.PresionDiastolica,
			&reading.HumedadIncubadora,
			&reading.CalidadDatos,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		if pacienteID.Valid {
			reading.PacienteID = &pacienteID.String
		}

		readings = append(readings, &reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}
