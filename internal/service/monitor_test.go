package service

import (
	"context"
	"testing"
	"time"

	"incubator-monitor/internal/anomaly"
	"incubator-monitor/internal/config"
	"incubator-monitor/internal/evaluator"
	"incubator-monitor/internal/models"
	"incubator-monitor/internal/notifier"
	"incubator-monitor/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupService 手工组装服务：sqlmock 顶替 Postgres，miniredis 顶替 Redis
func setupService(t *testing.T) (sqlmock.Sqlmock, *MonitorService) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Notifier.Channel = "alertas:notificaciones"
	cfg.Notifier.CacheKeyPrefix = "incubadora:"
	cfg.Notifier.CacheSuffix = ":ultima_alerta"
	cfg.Notifier.CacheTTL = 300
	cfg.Notifier.QueueSize = 10
	cfg.Model.Contamination = anomaly.DefaultContamination
	cfg.Model.TrainingWindowHours = 168

	logger := zap.NewNop()
	detector := anomaly.NewDetector(anomaly.DefaultEstimators, anomaly.DefaultSeed, logger)

	svc := &MonitorService{
		config:      cfg,
		db:          db,
		redisClient: client,
		logger:      logger,
		detector:    detector,
		evaluator:   evaluator.NewEvaluator(detector, logger),
		notifier:    notifier.NewNotifier(cfg, client, logger),
		alertaRepo:  repository.NewAlertaRepository(db, logger),
		umbralRepo:  repository.NewUmbralRepository(db, logger),
		readingRepo: repository.NewReadingRepository(db, logger),
		refRepo:     repository.NewRefRepository(db, logger),
		stopRetrain: make(chan struct{}),
	}
	return mock, svc
}

func f64(v float64) *float64 { return &v }

func TestEvaluate_UnknownIncubadora(t *testing.T) {
	mock, svc := setupService(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("inc-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	reading := &models.SensorReading{
		IncubadoraID:        "inc-404",
		TemperaturaCorporal: f64(36.8),
		CalidadDatos:        1.0,
	}

	result, err := svc.Evaluate(context.Background(), reading)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluate_InvalidReadingRejectedBeforeDB(t *testing.T) {
	mock, svc := setupService(t)

	reading := &models.SensorReading{
		IncubadoraID:        "inc-1",
		TemperaturaCorporal: f64(50.0),
		CalidadDatos:        1.0,
	}

	result, err := svc.Evaluate(context.Background(), reading)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInvalidReading)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert_UnknownUser(t *testing.T) {
	mock, svc := setupService(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	alerta, err := svc.AcknowledgeAlert(context.Background(), "alerta-1", "user-404")
	assert.Nil(t, alerta)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsTrending_ZeroFillsEmptyHours(t *testing.T) {
	mock, svc := setupService(t)

	nowHour := time.Now().Truncate(time.Hour)

	mock.ExpectQuery(`SELECT date_trunc`).
		WithArgs(sqlmock.AnyArg(), models.SeveridadCritica, models.SeveridadAlta).
		WillReturnRows(sqlmock.NewRows([]string{"hora", "total", "criticas", "altas"}).
			AddRow(nowHour, 4, 1, 2))

	buckets, err := svc.AlertsTrending(context.Background(), 6, nil)
	require.NoError(t, err)

	// 6 个连续小时桶，只有当前小时有计数
	require.Len(t, buckets, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, buckets[i].Total)
		assert.Equal(t, 0, buckets[i].Criticas)
	}
	last := buckets[5]
	assert.True(t, last.Hora.Equal(nowHour))
	assert.Equal(t, 4, last.Total)
	assert.Equal(t, 1, last.Criticas)
	assert.Equal(t, 2, last.Altas)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModelStatus_NotTrained(t *testing.T) {
	_, svc := setupService(t)

	info := svc.ModelStatus()
	assert.False(t, info.IsTrained)
	assert.Equal(t, anomaly.FeatureNames, info.FeatureNames)
}
