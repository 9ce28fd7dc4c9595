package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"incubator-monitor/internal/config"
	"incubator-monitor/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupNotifier(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Notifier) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Notifier.Channel = "alertas:notificaciones"
	cfg.Notifier.CacheKeyPrefix = "incubadora:"
	cfg.Notifier.CacheSuffix = ":ultima_alerta"
	cfg.Notifier.CacheTTL = 300
	cfg.Notifier.QueueSize = 10

	return mr, client, NewNotifier(cfg, client, zap.NewNop())
}

func testAlerta() *models.Alerta {
	return &models.Alerta{
		ID:           "alerta-1",
		IncubadoraID: "inc-1",
		TipoAlerta:   "anomalia_detectada",
		Severidad:    models.SeveridadCritica,
		Mensaje:      "Anomalía detectada por ML: nivel CRITICO, score -0.1200",
		Estado:       models.EstadoActiva,
		CreatedAt:    time.Now(),
	}
}

func TestNotifier_PublishesAndCaches(t *testing.T) {
	mr, client, n := setupNotifier(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := client.Subscribe(ctx, "alertas:notificaciones")
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	n.Start()
	defer n.Stop()

	n.Dispatch(testAlerta())

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var notif Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &notif))
	assert.Equal(t, "alerta-1", notif.AlertaID)
	assert.Equal(t, "inc-1", notif.IncubadoraID)
	assert.Equal(t, models.SeveridadCritica, notif.Severidad)
	assert.Equal(t, "anomalia_detectada", notif.TipoAlerta)

	// worker 先发布后写缓存：等缓存键出现再断言内容
	require.Eventually(t, func() bool {
		return mr.Exists("incubadora:inc-1:ultima_alerta")
	}, 5*time.Second, 10*time.Millisecond)

	// 缓存键带 TTL
	cached, err := mr.Get("incubadora:inc-1:ultima_alerta")
	require.NoError(t, err)
	assert.Equal(t, msg.Payload, cached)
	assert.Greater(t, mr.TTL("incubadora:inc-1:ultima_alerta"), time.Duration(0))
}

func TestNotifier_StopDrainsQueue(t *testing.T) {
	mr, _, n := setupNotifier(t)

	n.Start()
	for i := 0; i < 3; i++ {
		n.Dispatch(testAlerta())
	}
	n.Stop()

	// Stop 排空队列后缓存一定已写入
	assert.True(t, mr.Exists("incubadora:inc-1:ultima_alerta"))
}

func TestNotifier_QueueFullDropsSilently(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Notifier.Channel = "alertas:notificaciones"
	cfg.Notifier.CacheKeyPrefix = "incubadora:"
	cfg.Notifier.CacheSuffix = ":ultima_alerta"
	cfg.Notifier.QueueSize = 1

	n := NewNotifier(cfg, client, zap.NewNop())

	// worker 未启动：第二条入队失败，直接丢弃，不阻塞不 panic
	n.Dispatch(testAlerta())
	n.Dispatch(testAlerta())
	n.Dispatch(nil)
}

func TestNotifier_RedisDownDoesNotPropagate(t *testing.T) {
	mr, _, n := setupNotifier(t)

	n.Start()
	mr.Close()

	// Redis 不可用：派发不报错，worker 只记日志
	n.Dispatch(testAlerta())
	n.Stop()
}
