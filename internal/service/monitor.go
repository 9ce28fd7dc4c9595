package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"incubator-monitor/internal/anomaly"
	"incubator-monitor/internal/config"
	"incubator-monitor/internal/evaluator"
	"incubator-monitor/internal/models"
	"incubator-monitor/internal/notifier"
	"incubator-monitor/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// MonitorService 保育箱监控服务（整合各层）
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	detector    *anomaly.Detector
	evaluator   *evaluator.Evaluator
	notifier    *notifier.Notifier
	alertaRepo  *repository.AlertaRepository
	umbralRepo  *repository.UmbralRepository
	readingRepo *repository.ReadingRepository
	refRepo     *repository.RefRepository

	stopRetrain chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewMonitorService 创建监控服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	alertaRepo := repository.NewAlertaRepository(db, logger)
	umbralRepo := repository.NewUmbralRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	refRepo := repository.NewRefRepository(db, logger)

	// 4. 创建检测器与评估器
	detector := anomaly.NewDetector(cfg.Model.Estimators, cfg.Model.Seed, logger)
	eval := evaluator.NewEvaluator(detector, logger)

	// 5. 创建通知器
	notif := notifier.NewNotifier(cfg, redisClient, logger)

	return &MonitorService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
		detector:    detector,
		evaluator:   eval,
		notifier:    notif,
		alertaRepo:  alertaRepo,
		umbralRepo:  umbralRepo,
		readingRepo: readingRepo,
		refRepo:     refRepo,
		stopRetrain: make(chan struct{}),
	}, nil
}

// Evaluate 接收一条读数：验证 → 落库 → 评估 → 报警落库 → 异步通知
// 通知失败不影响评估结果；保育箱不存在返回 repository.ErrNotFound
func (s *MonitorService) Evaluate(ctx context.Context, reading *models.SensorReading) (*evaluator.EvaluationResult, error) {
	if reading == nil {
		return nil, fmt.Errorf("%w: reading is required", models.ErrInvalidReading)
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.refRepo.IncubadoraExists(ctx, reading.IncubadoraID)
	if err != nil {
		return nil, fmt.Errorf("failed to check incubadora: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: incubadora id=%s", repository.ErrNotFound, reading.IncubadoraID)
	}

	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	if err := s.readingRepo.CreateReading(ctx, reading); err != nil {
		return nil, err
	}

	var umbrales []*models.UmbralPaciente
	if reading.PacienteID != nil {
		umbrales, err = s.umbralRepo.GetActiveUmbrales(ctx, *reading.PacienteID)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.evaluator.Evaluate(reading, umbrales)
	if err != nil {
		return nil, err
	}

	for _, alerta := range result.CreatedAlerts {
		if err := s.alertaRepo.CreateAlerta(ctx, alerta); err != nil {
			return nil, err
		}
	}

	// 通知派发是 fire-and-forget，失败只在 notifier 内部记日志
	for _, alerta := range result.CreatedAlerts {
		s.notifier.Dispatch(alerta)
	}

	if len(result.CreatedAlerts) > 0 {
		s.logger.Info("Alerts created",
			zap.String("incubadora_id", reading.IncubadoraID),
			zap.String("nivel", result.Nivel.String()),
			zap.Int("alert_count", len(result.CreatedAlerts)),
		)
	}

	return result, nil
}

// TrainModel 训练模型并持久化
// readings 为 nil 时从数据库取训练窗口内的读数；contamination <= 0 时用配置值。
// 训练成功后整体替换当前模型并保存 bundle，保存失败只记日志
func (s *MonitorService) TrainModel(ctx context.Context, readings []*models.SensorReading, contamination float64) (*anomaly.TrainingReport, error) {
	if readings == nil {
		since := time.Now().Add(-time.Duration(s.config.Model.TrainingWindowHours) * time.Hour)
		var err error
		readings, err = s.readingRepo.GetTrainingReadings(ctx, since)
		if err != nil {
			return nil, err
		}
	}
	if contamination <= 0 {
		contamination = s.config.Model.Contamination
	}

	report, err := s.detector.Train(readings, contamination)
	if err != nil {
		return nil, err
	}

	if !s.detector.Save(s.config.Model.BundlePath) {
		s.logger.Warn("Trained model could not be persisted",
			zap.String("path", s.config.Model.BundlePath),
		)
	}

	return report, nil
}

// ModelStatus 返回当前模型状态
func (s *MonitorService) ModelStatus() *anomaly.ModelInfo {
	return s.detector.Info()
}

// AcknowledgeAlert 确认报警（需存在的用户）
func (s *MonitorService) AcknowledgeAlert(ctx context.Context, alertaID, usuarioID string) (*models.Alerta, error) {
	if err := s.requireUser(ctx, usuarioID); err != nil {
		return nil, err
	}
	return s.alertaRepo.Acknowledge(ctx, alertaID, usuarioID)
}

// ResolveAlert 解决报警（需存在的用户）
func (s *MonitorService) ResolveAlert(ctx context.Context, alertaID, usuarioID string) (*models.Alerta, error) {
	if err := s.requireUser(ctx, usuarioID); err != nil {
		return nil, err
	}
	return s.alertaRepo.Resolve(ctx, alertaID, usuarioID)
}

func (s *MonitorService) requireUser(ctx context.Context, usuarioID string) error {
	exists, err := s.refRepo.UserExists(ctx, usuarioID)
	if err != nil {
		return fmt.Errorf("failed to check usuario: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: usuario id=%s", repository.ErrNotFound, usuarioID)
	}
	return nil
}

// ListAlerts 报警列表查询
func (s *MonitorService) ListAlerts(ctx context.Context, filters repository.AlertaFilters, page, size int) ([]*models.Alerta, int, error) {
	return s.alertaRepo.ListAlertas(ctx, filters, page, size)
}

// CriticalActiveAlerts 当前激活的 críticas 报警
func (s *MonitorService) CriticalActiveAlerts(ctx context.Context) ([]*models.Alerta, error) {
	return s.alertaRepo.GetCriticalActive(ctx)
}

// AlertsSummary 窗口内报警汇总
func (s *MonitorService) AlertsSummary(ctx context.Context, window time.Duration, incubadoraID *string) (*repository.ResumenAlertas, error) {
	return s.alertaRepo.Summary(ctx, time.Now().Add(-window), incubadoraID)
}

// AlertsTrending 按小时趋势，窗口内没有报警的小时补零
func (s *MonitorService) AlertsTrending(ctx context.Context, hours int, incubadoraID *string) ([]repository.TrendingBucket, error) {
	if hours <= 0 {
		hours = 24
	}
	nowHour := time.Now().Truncate(time.Hour)
	since := nowHour.Add(-time.Duration(hours-1) * time.Hour)

	buckets, err := s.alertaRepo.Trending(ctx, since, incubadoraID)
	if err != nil {
		return nil, err
	}

	// 数据库返回的时区可能与本地不同，按 Unix 秒对齐小时桶
	byHour := make(map[int64]repository.TrendingBucket, len(buckets))
	for _, b := range buckets {
		byHour[b.Hora.Truncate(time.Hour).Unix()] = b
	}

	filled := make([]repository.TrendingBucket, 0, hours)
	for h := since; !h.After(nowHour); h = h.Add(time.Hour) {
		if b, ok := byHour[h.Unix()]; ok {
			filled = append(filled, b)
		} else {
			filled = append(filled, repository.TrendingBucket{Hora: h})
		}
	}

	return filled, nil
}

// Start 启动服务：加载模型（冷启动允许失败）、启动通知器和重训协程
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor service")

	if !s.detector.Load(s.config.Model.BundlePath) {
		s.logger.Warn("No model bundle loaded, scoring disabled until first training",
			zap.String("path", s.config.Model.BundlePath),
		)
	}

	s.notifier.Start()

	if s.config.Model.RetrainInterval > 0 {
		s.wg.Add(1)
		go s.retrainLoop(ctx)
	}

	return nil
}

// retrainLoop 周期性重训，失败只记日志
// 样本不足在数据积累初期属预期情况，按 Info 记录
func (s *MonitorService) retrainLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.config.Model.RetrainInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Retrain loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopRetrain:
			return
		case <-ticker.C:
			report, err := s.TrainModel(ctx, nil, 0)
			if err != nil {
				if errors.Is(err, anomaly.ErrInsufficientData) {
					s.logger.Info("Not enough data to retrain yet", zap.Error(err))
				} else {
					s.logger.Error("Periodic retraining failed", zap.Error(err))
				}
				continue
			}
			s.logger.Info("Model retrained",
				zap.Int("samples_trained", report.SamplesTrained),
				zap.Float64("anomaly_rate", report.AnomalyRate),
			)
		}
	}
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping monitor service")

	s.stopOnce.Do(func() {
		close(s.stopRetrain)
	})
	s.wg.Wait()

	s.notifier.Stop()

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	return nil
}
