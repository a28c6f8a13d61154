package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-fulfillment.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-fulfillment.git/internal/redisx"
)

// Service consumes status-change events and keeps the redis order-status
// cache warm so tracking reads never hit postgres.
type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleStatusChanged is installed as the consumer handler for the
// order.status.changed topic.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil // ignore
	}

	// dedup via redis, keyed by event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	skey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	if err := s.Redis.Set(ctx, skey, p.To, redisx.TTLStatusCache).Err(); err != nil {
		s.Log.Warn("status cache refresh failed",
			zap.String("order_id", p.OrderID), zap.Error(err))
		return nil // cache is best effort, do not redeliver
	}

	// the full cached view is stale now, drop it so the next read rebuilds it
	vkey := fmt.Sprintf(redisx.KeyOrderView, p.OrderID)
	_ = s.Redis.Del(ctx, vkey).Err()

	s.Log.Info("order status cached",
		zap.String("order_id", p.OrderID),
		zap.String("from", p.From),
		zap.String("to", p.To),
	)
	return nil
}
