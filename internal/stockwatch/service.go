package stockwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/quiquecx/backoffice/internal/catalog"
	"github.com/quiquecx/backoffice/internal/kafka"
	"github.com/quiquecx/backoffice/internal/orders"
	"github.com/quiquecx/backoffice/internal/redisx"
)

// Service watches placed orders and raises a structured warning when a
// product's remaining stock falls to the threshold or below. Alerts are
// rate-limited per product through a redis marker.
type Service struct {
	Catalog     *catalog.Repo
	Redis       *redis.Client
	Log         *zap.Logger
	Threshold   int
	ServiceName string
}

// HandleOrderPlaced is the consumer handler for the order.placed topic.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	// dedup by event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafka.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, line := range p.Lines {
		prod, err := s.Catalog.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue // deleted since placement
			}
			return err
		}
		if prod.Stock > s.Threshold {
			continue
		}
		akey := fmt.Sprintf(redisx.KeyLowStockAlert, prod.ID)
		if exists, _ := redisx.Exists(ctx, s.Redis, akey); exists {
			continue
		}
		_ = s.Redis.Set(ctx, akey, "1", redisx.TTLLowStockAlert).Err()
		s.Log.Warn("product stock low",
			zap.String("product_id", prod.ID),
			zap.String("name", prod.Name),
			zap.Int("stock", prod.Stock),
			zap.Int("threshold", s.Threshold),
			zap.String("order_id", p.OrderID),
		)
	}
	return nil
}
