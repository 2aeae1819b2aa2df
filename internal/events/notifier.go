package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopflow/fulfillment-service/internal/config"
	"github.com/shopflow/fulfillment-service/internal/entities"

	"github.com/segmentio/kafka-go"
)

// OrderStatusEvent is the payload broadcast to live subscribers when an
// order changes status.
type OrderStatusEvent struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	OccurredAt int64  `json:"occurred_at"`
}

type Notifier struct {
	logger *slog.Logger
	writer *kafka.Writer
}

func NewNotifier(logger *slog.Logger, cfg config.Kafka) *Notifier {
	return &Notifier{
		logger: logger.With(slog.String("component", "events")),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.EventsTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
	}
}

// Publish is best-effort: broadcast failures are logged and swallowed, they
// never fail the caller. Keyed by order id so per-order events stay ordered.
func (n *Notifier) Publish(ctx context.Context, orderID string, status entities.OrderStatus) {
	event := OrderStatusEvent{
		OrderID:    orderID,
		Status:     string(status),
		OccurredAt: time.Now().Unix(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal order event", slog.Any("error", err))
		return
	}

	msg := kafka.Message{Key: []byte(orderID), Value: value}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.logger.Error("failed to publish order event",
			slog.String("order_id", orderID), slog.Any("error", err))
	}
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}
