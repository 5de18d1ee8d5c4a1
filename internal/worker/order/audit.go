// Package order hosts the background consumers on the durable order event
// log. The same frames pushed to connected clients are mirrored onto Kafka,
// so the audit trail sees exactly what the dining room saw.
package order

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/config"
	"github.com/Additional-Code/brigade/internal/messaging"
	"github.com/Additional-Code/brigade/internal/realtime"
	"github.com/Additional-Code/brigade/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/brigade/worker/order")

// Module registers the order audit handler.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewAuditHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewAuditHandler consumes order event frames and writes an audit log line
// per event. Frames that fail to decode are logged and skipped rather than
// retried; a frame that is malformed now will be malformed forever.
func NewAuditHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.audit", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("messaging.key", string(msg.Key)),
		))
		defer span.End()

		event, err := realtime.Decode(msg.Value)
		if err != nil {
			logger.Warn("skipping undecodable order event",
				zap.String("key", string(msg.Key)),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}

		span.SetAttributes(attribute.String("order.event", string(event.EventKind())))

		switch e := event.(type) {
		case realtime.OrderCreated:
			logger.Info("order created",
				zap.Int64("id", e.Order.ID),
				zap.Int("tableNumber", e.Order.TableNumber),
				zap.String("server", e.Order.ServerName),
			)
		case realtime.OrderUpdated:
			logger.Info("order updated",
				zap.Int64("id", e.Order.ID),
				zap.Strings("changedFields", e.ChangedFields),
			)
		case realtime.OrderDeleted:
			logger.Info("order deleted", zap.Int64("id", e.OrderID))
		case realtime.OrderStatusChanged:
			logger.Info("order status changed",
				zap.Int64("id", e.OrderID),
				zap.String("from", string(e.PreviousStatus)),
				zap.String("to", string(e.NewStatus)),
			)
		case realtime.ItemAdded:
			logger.Info("order item added",
				zap.Int64("orderId", e.OrderID),
				zap.Int64("itemId", e.Item.ID),
				zap.Int("quantity", e.Item.Quantity),
			)
		case realtime.ItemUpdated:
			logger.Info("order item updated",
				zap.Int64("orderId", e.OrderID),
				zap.Int64("itemId", e.Item.ID),
				zap.Int("quantity", e.Item.Quantity),
			)
		case realtime.ItemRemoved:
			logger.Info("order item removed",
				zap.Int64("orderId", e.OrderID),
				zap.Int64("itemId", e.ItemID),
			)
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
