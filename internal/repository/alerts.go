package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"incubator-monitor/internal/models"

	"go.uber.org/zap"
)

// AlertaRepository 报警仓库
// 报警记录只追加和状态转换，永不删除
type AlertaRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertaRepository 创建报警仓库
func NewAlertaRepository(db *sql.DB, logger *zap.Logger) *AlertaRepository {
	return &AlertaRepository{
		db:     db,
		logger: logger,
	}
}

// AlertaFilters 报警列表过滤条件
type AlertaFilters struct {
	IncubadoraID *string
	PacienteID   *string
	Severidades  []string // IN 查询
	Estados      []string // IN 查询
	TipoAlerta   *string  // 模糊匹配
	StartTime    *time.Time
	EndTime      *time.Time
	OnlyActive   bool // estado = 'activa' 快捷过滤
}

// TipoCount tipo_alerta 出现次数
type TipoCount struct {
	Tipo  string `json:"tipo_alerta"`
	Total int    `json:"total"`
}

// ResumenAlertas 报警汇总统计
// LatenciaMediaMin 只统计已确认的报警；窗口内没有已确认报警时为 nil
type ResumenAlertas struct {
	Total            int            `json:"total"`
	PorSeveridad     map[string]int `json:"por_severidad"`
	PorEstado        map[string]int `json:"por_estado"`
	TiposFrecuentes  []TipoCount    `json:"tipos_frecuentes"`
	LatenciaMediaMin *float64       `json:"latencia_media_reconocimiento_min"`
}

// TrendingBucket 每小时报警计数
type TrendingBucket struct {
	Hora     time.Time `json:"hora"`
	Total    int       `json:"total"`
	Criticas int       `json:"criticas"`
	Altas    int       `json:"altas"`
}

const alertaColumns = `
	id,
	incubadora_id,
	paciente_id,
	tipo_alerta,
	severidad,
	mensaje,
	valor_sensor,
	umbral_configurado,
	estado,
	usuario_reconocimiento,
	tiempo_reconocimiento,
	tiempo_resolucion,
	created_at
`

// CreateAlerta 插入报警记录
func (r *AlertaRepository) CreateAlerta(ctx context.Context, alerta *models.Alerta) error {
	if alerta == nil {
		return fmt.Errorf("alerta is required")
	}
	if alerta.ID == "" {
		return fmt.Errorf("alerta.id is required")
	}

	query := `
		INSERT INTO alertas (
			id,
			incubadora_id,
			paciente_id,
			tipo_alerta,
			severidad,
			mensaje,
			valor_sensor,
			umbral_configurado,
			estado,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		alerta.ID,
		alerta.IncubadoraID,
		alerta.PacienteID,
		alerta.TipoAlerta,
		alerta.Severidad,
		alerta.Mensaje,
		alerta.ValorSensor,
		alerta.UmbralConfigurado,
		alerta.Estado,
		alerta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alerta: %w", err)
	}

	return nil
}

// GetAlerta 根据 id 获取单条报警；不存在返回 ErrNotFound
func (r *AlertaRepository) GetAlerta(ctx context.Context, alertaID string) (*models.Alerta, error) {
	if alertaID == "" {
		return nil, fmt.Errorf("alerta_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM alertas WHERE id = $1`, alertaColumns)

	alerta, err := scanAlerta(r.db.QueryRowContext(ctx, query, alertaID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: alerta id=%s", ErrNotFound, alertaID)
		}
		return nil, fmt.Errorf("failed to get alerta: %w", err)
	}

	return alerta, nil
}

// buildWhereClause 构建 WHERE 子句（ListAlertas / Summary 共用过滤语义）
func buildWhereClause(filters AlertaFilters, args *[]interface{}, argN *int) []string {
	where := []string{}

	add := func(cond string, value interface{}) {
		where = append(where, fmt.Sprintf(cond, *argN))
		*args = append(*args, value)
		*argN++
	}

	if filters.IncubadoraID != nil {
		add("incubadora_id = $%d", *filters.IncubadoraID)
	}
	if filters.PacienteID != nil {
		add("paciente_id = $%d", *filters.PacienteID)
	}
	if filters.TipoAlerta != nil {
		add("tipo_alerta ILIKE $%d", "%"+*filters.TipoAlerta+"%")
	}
	if filters.StartTime != nil {
		add("created_at >= $%d", *filters.StartTime)
	}
	if filters.EndTime != nil {
		add("created_at <= $%d", *filters.EndTime)
	}
	if len(filters.Severidades) > 0 {
		placeholders := make([]string, len(filters.Severidades))
		for i, s := range filters.Severidades {
			placeholders[i] = fmt.Sprintf("$%d", *argN)
			*args = append(*args, s)
			*argN++
		}
		where = append(where, fmt.Sprintf("severidad IN (%s)", strings.Join(placeholders, ", ")))
	}
	if len(filters.Estados) > 0 {
		placeholders := make([]string, len(filters.Estados))
		for i, e := range filters.Estados {
			placeholders[i] = fmt.Sprintf("$%d", *argN)
			*args = append(*args, e)
			*argN++
		}
		where = append(where, fmt.Sprintf("estado IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filters.OnlyActive {
		add("estado = $%d", models.EstadoActiva)
	}

	return where
}

// ListAlertas 列表查询（多条件过滤、分页），按 created_at 降序
func (r *AlertaRepository) ListAlertas(ctx context.Context, filters AlertaFilters, page, size int) ([]*models.Alerta, int, error) {
	args := []interface{}{}
	argN := 1
	where := buildWhereClause(filters, &args, &argN)

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM alertas %s`, whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alertas: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT %s
		FROM alertas
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, alertaColumns, whereClause, argN, argN+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alertas: %w", err)
	}
	defer rows.Close()

	alertas := []*models.Alerta{}
	for rows.Next() {
		alerta, err := scanAlerta(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alerta: %w", err)
		}
		alertas = append(alertas, alerta)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alertas: %w", err)
	}

	return alertas, total, nil
}

// GetCriticalActive 获取所有 severidad='critica' 且 estado='activa' 的报警
func (r *AlertaRepository) GetCriticalActive(ctx context.Context) ([]*models.Alerta, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM alertas
		WHERE severidad = $1
		  AND estado = $2
		ORDER BY created_at DESC
	`, alertaColumns)

	rows, err := r.db.QueryContext(ctx, query, models.SeveridadCritica, models.EstadoActiva)
	if err != nil {
		return nil, fmt.Errorf("failed to query critical active alertas: %w", err)
	}
	defer rows.Close()

	alertas := []*models.Alerta{}
	for rows.Next() {
		alerta, err := scanAlerta(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alerta: %w", err)
		}
		alertas = append(alertas, alerta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alertas: %w", err)
	}

	return alertas, nil
}

// Acknowledge 确认报警：activa → reconocida，记录确认人和时间
// 幂等：已确认或已解决的报警保持原样返回，不覆盖首次确认信息；
// 报警不存在返回 ErrNotFound
func (r *AlertaRepository) Acknowledge(ctx context.Context, alertaID, usuarioID string) (*models.Alerta, error) {
	if alertaID == "" {
		return nil, fmt.Errorf("alerta_id is required")
	}
	if usuarioID == "" {
		return nil, fmt.Errorf("usuario_id is required")
	}

	query := `
		UPDATE alertas
		SET estado = $2,
		    usuario_reconocimiento = COALESCE(usuario_reconocimiento, $3),
		    tiempo_reconocimiento = COALESCE(tiempo_reconocimiento, $4)
		WHERE id = $1
		  AND estado = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		alertaID, models.EstadoReconocida, usuarioID, time.Now(), models.EstadoActiva)
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alerta: %w", err)
	}

	return r.GetAlerta(ctx, alertaID)
}

// Resolve 解决报警：activa/reconocida → resuelta
// 直接从 activa 解决时在同一条 UPDATE 里补全确认字段（COALESCE），
// 保证不存在已解决却无确认信息的记录；已解决的报警保持原样返回，
// 永不重新打开；不存在返回 ErrNotFound
func (r *AlertaRepository) Resolve(ctx context.Context, alertaID, usuarioID string) (*models.Alerta, error) {
	if alertaID == "" {
		return nil, fmt.Errorf("alerta_id is required")
	}
	if usuarioID == "" {
		return nil, fmt.Errorf("usuario_id is required")
	}

	now := time.Now()
	query := `
		UPDATE alertas
		SET estado = $2,
		    usuario_reconocimiento = COALESCE(usuario_reconocimiento, $3),
		    tiempo_reconocimiento = COALESCE(tiempo_reconocimiento, $4),
		    tiempo_resolucion = $5
		WHERE id = $1
		  AND estado IN ($6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		alertaID, models.EstadoResuelta, usuarioID, now, now,
		models.EstadoActiva, models.EstadoReconocida)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alerta: %w", err)
	}

	return r.GetAlerta(ctx, alertaID)
}

// Summary 窗口内报警汇总：总数、按严重度/状态计数、高频 tipo 前 10、
// 平均确认延迟（分钟，仅已确认报警，窗口内没有则为 nil）
func (r *AlertaRepository) Summary(ctx context.Context, since time.Time, incubadoraID *string) (*ResumenAlertas, error) {
	args := []interface{}{since}
	incubadoraClause := ""
	if incubadoraID != nil {
		incubadoraClause = "AND incubadora_id = $2"
		args = append(args, *incubadoraID)
	}

	resumen := &ResumenAlertas{
		PorSeveridad:    map[string]int{},
		PorEstado:       map[string]int{},
		TiposFrecuentes: []TipoCount{},
	}

	querySeveridad := fmt.Sprintf(`
		SELECT severidad, COUNT(*)
		FROM alertas
		WHERE created_at >= $1
		%s
		GROUP BY severidad
	`, incubadoraClause)

	rows, err := r.db.QueryContext(ctx, querySeveridad, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query severidad counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severidad string
		var count int
		if err := rows.Scan(&severidad, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severidad count: %w", err)
		}
		resumen.PorSeveridad[severidad] = count
		resumen.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate severidad counts: %w", err)
	}

	queryEstado := fmt.Sprintf(`
		SELECT estado, COUNT(*)
		FROM alertas
		WHERE created_at >= $1
		%s
		GROUP BY estado
	`, incubadoraClause)

	rows, err = r.db.QueryContext(ctx, queryEstado, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query estado counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var estado string
		var count int
		if err := rows.Scan(&estado, &count); err != nil {
			return nil, fmt.Errorf("failed to scan estado count: %w", err)
		}
		resumen.PorEstado[estado] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate estado counts: %w", err)
	}

	queryTipos := fmt.Sprintf(`
		SELECT tipo_alerta, COUNT(*) AS total
		FROM alertas
		WHERE created_at >= $1
		%s
		GROUP BY tipo_alerta
		ORDER BY total DESC
		LIMIT 10
	`, incubadoraClause)

	rows, err = r.db.QueryContext(ctx, queryTipos, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tipo counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc TipoCount
		if err := rows.Scan(&tc.Tipo, &tc.Total); err != nil {
			return nil, fmt.Errorf("failed to scan tipo count: %w", err)
		}
		resumen.TiposFrecuentes = append(resumen.TiposFrecuentes, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tipo counts: %w", err)
	}

	queryLatencia := fmt.Sprintf(`
		SELECT AVG(EXTRACT(EPOCH FROM (tiempo_reconocimiento - created_at)) / 60.0)
		FROM alertas
		WHERE created_at >= $1
		%s
		AND tiempo_reconocimiento IS NOT NULL
	`, incubadoraClause)

	var latencia sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, queryLatencia, args...).Scan(&latencia); err != nil {
		return nil, fmt.Errorf("failed to query acknowledge latency: %w", err)
	}
	if latencia.Valid {
		resumen.LatenciaMediaMin = &latencia.Float64
	}

	return resumen, nil
}

// Trending 按小时聚合报警数（总数、críticas、altas），升序返回
// 没有报警的小时不出现在结果里，补零由 service 层完成
func (r *AlertaRepository) Trending(ctx context.Context, since time.Time, incubadoraID *string) ([]TrendingBucket, error) {
	args := []interface{}{since, models.SeveridadCritica, models.SeveridadAlta}
	incubadoraClause := ""
	if incubadoraID != nil {
		incubadoraClause = "AND incubadora_id = $4"
		args = append(args, *incubadoraID)
	}

	query := fmt.Sprintf(`
		SELECT date_trunc('hour', created_at) AS hora,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE severidad = $2) AS criticas,
		       COUNT(*) FILTER (WHERE severidad = $3) AS altas
		FROM alertas
		WHERE created_at >= $1
		%s
		GROUP BY hora
		ORDER BY hora ASC
	`, incubadoraClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerta trending: %w", err)
	}
	defer rows.Close()

	buckets := []TrendingBucket{}
	for rows.Next() {
		var b TrendingBucket
		if err := rows.Scan(&b.Hora, &b.Total, &b.Criticas, &b.Altas); err != nil {
			return nil, fmt.Errorf("failed to scan trending bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trending buckets: %w", err)
	}

	return buckets, nil
}

// rowScanner QueryRow 和 Rows 的公共 Scan 接口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAlerta 扫描一行 alertaColumns，处理可空字段
func scanAlerta(row rowScanner) (*models.Alerta, error) {
	var alerta models.Alerta
	var pacienteID, usuario sql.NullString
	var valorSensor, umbral sql.NullFloat64
	var tiempoReconocimiento, tiempoResolucion sql.NullTime

	err := row.Scan(
		&alerta.ID,
		&alerta.IncubadoraID,
		&pacienteID,
		&alerta.TipoAlerta,
		&alerta.Severidad,
		&alerta.Mensaje,
		&valorSensor,
		&umbral,
		&alerta.Estado,
		&usuario,
		&tiempoReconocimiento,
		&tiempoResolucion,
		&alerta.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pacienteID.Valid {
		alerta.PacienteID = &pacienteID.String
	}
	if valorSensor.Valid {
		alerta.ValorSensor = &valorSensor.Float64
	}
	if umbral.Valid {
		alerta.UmbralConfigurado = &umbral.Float64
	}
	if usuario.Valid {
		alerta.UsuarioReconocimiento = &usuario.String
	}
	if tiempoReconocimiento.Valid {
		alerta.TiempoReconocimiento = &tiempoReconocimiento.Time
	}
	if tiempoResolucion.Valid {
		alerta.TiempoResolucion = &tiempoResolucion.Time
	}

	return &alerta, nil
}
