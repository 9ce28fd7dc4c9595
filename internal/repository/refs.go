package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// RefRepository 引用存在性检查（usuarios / pacientes / incubadoras）
type RefRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRefRepository 创建引用仓库
func NewRefRepository(db *sql.DB, logger *zap.Logger) *RefRepository {
	return &RefRepository{
		db:     db,
		logger: logger,
	}
}

func (r *RefRepository) exists(ctx context.Context, query, id string) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

// UserExists 判断用户是否存在
func (r *RefRepository) UserExists(ctx context.Context, usuarioID string) (bool, error) {
	if usuarioID == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM usuarios WHERE id = $1)`, usuarioID)
}

// PacienteExists 判断病人是否存在
func (r *RefRepository) PacienteExists(ctx context.Context, pacienteID string) (bool, error) {
	if pacienteID == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM pacientes WHERE id = $1)`, pacienteID)
}

// IncubadoraExists 判断保育箱是否存在
func (r *RefRepository) IncubadoraExists(ctx context.Context, incubadoraID string) (bool, error) {
	if incubadoraID == "" {
		return false, nil
	}
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM incubadoras WHERE id = $1)`, incubadoraID)
}
