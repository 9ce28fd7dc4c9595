package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"incubator-monitor/internal/config"
	"incubator-monitor/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Notification 发布到 Redis 频道的通知载荷
type Notification struct {
	AlertaID     string `json:"alert_id"`
	IncubadoraID string `json:"incubadora_id"`
	Severidad    string `json:"severidad"`
	TipoAlerta   string `json:"tipo_alerta"`
	Mensaje      string `json:"mensaje"`
}

// Notifier 报警通知器
// Dispatch 只入队，worker 协程负责发布和刷新缓存；队列满或发布失败
// 只记日志并丢弃，永不向调用方传播
type Notifier struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger

	queue chan *models.Alerta
	wg    sync.WaitGroup
	stop  chan struct{}
	once  sync.Once
}

// NewNotifier 创建通知器
func NewNotifier(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *Notifier {
	size := cfg.Notifier.QueueSize
	if size <= 0 {
		size = 100
	}
	return &Notifier{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
		queue:       make(chan *models.Alerta, size),
		stop:        make(chan struct{}),
	}
}

// Start 启动 worker 协程
func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.worker()
	n.logger.Info("Notifier started",
		zap.String("channel", n.config.Notifier.Channel),
		zap.Int("queue_size", cap(n.queue)),
	)
}

// Stop 停止 worker，排空已入队的通知
func (n *Notifier) Stop() {
	n.once.Do(func() {
		close(n.stop)
	})
	n.wg.Wait()
	n.logger.Info("Notifier stopped")
}

// Dispatch 异步派发报警通知
// 队列满时丢弃并记日志，调用方不会被阻塞
func (n *Notifier) Dispatch(alerta *models.Alerta) {
	if alerta == nil {
		return
	}
	select {
	case n.queue <- alerta:
	default:
		n.logger.Warn("Notification queue full, dropping alert",
			zap.String("alerta_id", alerta.ID),
			zap.String("severidad", alerta.Severidad),
		)
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case alerta := <-n.queue:
			n.deliver(alerta)
		case <-n.stop:
			// 排空剩余通知
			for {
				select {
				case alerta := <-n.queue:
					n.deliver(alerta)
				default:
					return
				}
			}
		}
	}
}

// deliver 发布通知并刷新保育箱的最新报警缓存
func (n *Notifier) deliver(alerta *models.Alerta) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(Notification{
		AlertaID:     alerta.ID,
		IncubadoraID: alerta.IncubadoraID,
		Severidad:    alerta.Severidad,
		TipoAlerta:   alerta.TipoAlerta,
		Mensaje:      alerta.Mensaje,
	})
	if err != nil {
		n.logger.Error("Failed to marshal notification",
			zap.String("alerta_id", alerta.ID),
			zap.Error(err),
		)
		return
	}

	if err := n.redisClient.Publish(ctx, n.config.Notifier.Channel, payload).Err(); err != nil {
		n.logger.Error("Failed to publish notification",
			zap.String("alerta_id", alerta.ID),
			zap.String("channel", n.config.Notifier.Channel),
			zap.Error(err),
		)
		// 发布失败不影响缓存刷新
	}

	if err := n.updateAlertCache(ctx, alerta, payload); err != nil {
		n.logger.Error("Failed to update alert cache",
			zap.String("alerta_id", alerta.ID),
			zap.String("incubadora_id", alerta.IncubadoraID),
			zap.Error(err),
		)
	}
}

// updateAlertCache 刷新保育箱最新报警缓存（带 TTL）
func (n *Notifier) updateAlertCache(ctx context.Context, alerta *models.Alerta, payload []byte) error {
	key := fmt.Sprintf("%s%s%s",
		n.config.Notifier.CacheKeyPrefix,
		alerta.IncubadoraID,
		n.config.Notifier.CacheSuffix,
	)

	err := n.redisClient.Set(
		ctx,
		key,
		payload,
		time.Duration(n.config.Notifier.CacheTTL)*time.Second,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	n.logger.Debug("Updated alert cache",
		zap.String("key", key),
		zap.String("alerta_id", alerta.ID),
	)

	return nil
}
