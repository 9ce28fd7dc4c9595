package repository

import (
	"context"
	"database/sql"
	"fmt"

	"incubator-monitor/internal/models"

	"go.uber.org/zap"
)

// UmbralRepository 病人阈值仓库（只读，阈值由临床配置子系统维护）
type UmbralRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUmbralRepository 创建阈值仓库
func NewUmbralRepository(db *sql.DB, logger *zap.Logger) *UmbralRepository {
	return &UmbralRepository{
		db:     db,
		logger: logger,
	}
}

// GetActiveUmbrales 获取病人的全部激活阈值
// 同一参数可能返回多条记录，调用方逐条评估
func (r *UmbralRepository) GetActiveUmbrales(ctx context.Context, pacienteID string) ([]*models.UmbralPaciente, error) {
	if pacienteID == "" {
		return nil, fmt.Errorf("paciente_id is required")
	}

	query := `
		SELECT
			id,
			paciente_id,
			parametro,
			valor_min,
			valor_max,
			valor_critico_min,
			valor_critico_max,
			activo,
			created_at,
			updated_at
		FROM umbrales_paciente
		WHERE paciente_id = $1
		  AND activo = TRUE
		ORDER BY parametro, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, pacienteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query umbrales: %w", err)
	}
	defer rows.Close()

	umbrales := []*models.UmbralPaciente{}
	for rows.Next() {
		var u models.UmbralPaciente
		var valorMin, valorMax, criticoMin, criticoMax sql.NullFloat64

		err := rows.Scan(
			&u.ID,
			&u.PacienteID,
			&u.Parametro,
			&valorMin,
			&valorMax,
			&criticoMin,
			&criticoMax,
			&u.Activo,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan umbral: %w", err)
		}

		if valorMin.Valid {
			u.ValorMin = &valorMin.Float64
		}
		if valorMax.Valid {
			u.ValorMax = &valorMax.Float64
		}
		if criticoMin.Valid {
			u.ValorCriticoMin = &criticoMin.Float64
		}
		if criticoMax.Valid {
			u.ValorCriticoMax = &criticoMax.Float64
		}

		umbrales = append(umbrales, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate umbrales: %w", err)
	}

	return umbrales, nil
}
