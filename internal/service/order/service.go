package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/cache"
	"github.com/Additional-Code/brigade/internal/config"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/entity"
	"github.com/Additional-Code/brigade/internal/messaging"
	"github.com/Additional-Code/brigade/internal/realtime"
	repo "github.com/Additional-Code/brigade/internal/repository/order"
	"github.com/Additional-Code/brigade/internal/status"
	"github.com/Additional-Code/brigade/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/brigade/service/order")

// Service encapsulates business logic around orders: it is the server half of
// the shared status state machine and the single emitter of push events, so
// every confirmed mutation reaches all subscribed displays.
type Service struct {
	repo        *repo.Repository
	cache       cache.Store
	cacheTTL    time.Duration
	logger      *zap.Logger
	broadcaster realtime.Broadcaster
	publisher   messaging.Client
	messaging   messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository  *repo.Repository
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Broadcaster realtime.Broadcaster
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:        p.Repository,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		logger:      p.Logger,
		broadcaster: p.Broadcaster,
		publisher:   p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	s.cacheOrder(ctx, order)
	return order, nil
}

// List returns the full order collection used by displays to seed their
// local copy before joining a room.
func (s *Service) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Create validates and persists a new order, then announces it.
func (s *Service) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errorbank.BadRequest("order payload is required")
	}
	if order.TableNumber <= 0 {
		return errorbank.BadRequest("tableNumber must be a positive integer")
	}
	if order.ServerName == "" {
		return errorbank.BadRequest("serverName is required")
	}
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return errorbank.Unprocessable("item quantity must be at least 1")
		}
	}

	// PENDING is the only valid initial state; ignore whatever the client sent.
	order.Status = status.Pending
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int("order.table", order.TableNumber)))
	defer span.End()

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.cacheOrder(ctx, order)
	s.announce(ctx, realtime.OrderCreated{Order: dto.FromOrder(order)})
	return nil
}

// Update rewrites the order header (table number, server name).
func (s *Service) Update(ctx context.Context, id int64, tableNumber *int, serverName *string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	changed := make([]string, 0, 2)
	if tableNumber != nil && *tableNumber != order.TableNumber {
		if *tableNumber <= 0 {
			return nil, errorbank.BadRequest("tableNumber must be a positive integer")
		}
		order.TableNumber = *tableNumber
		changed = append(changed, "tableNumber")
	}
	if serverName != nil && *serverName != order.ServerName {
		if *serverName == "" {
			return nil, errorbank.BadRequest("serverName must not be empty")
		}
		order.ServerName = *serverName
		changed = append(changed, "serverName")
	}
	if len(changed) == 0 {
		return order, nil
	}

	if err := s.repo.Update(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}

	s.cacheOrder(ctx, order)
	s.announce(ctx, realtime.OrderUpdated{Order: dto.FromOrder(order), ChangedFields: changed})
	return order, nil
}

// UpdateStatus moves an order through the state machine. The transition table
// is consulted against the currently persisted status; illegal moves are
// rejected before any write.
func (s *Service) UpdateStatus(ctx context.Context, id int64, to status.Status) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(to)),
	))
	defer span.End()

	if !status.Known(to) {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown status %q", to))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	previous := order.Status
	if !status.IsValidTransition(previous, to) {
		return nil, errorbank.Unprocessable(fmt.Sprintf("cannot transition order from %s to %s", previous, to))
	}

	updatedAt, err := s.repo.UpdateStatus(ctx, id, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}
	order.Status = to
	order.UpdatedAt = updatedAt

	s.cacheOrder(ctx, order)
	// The status-changed event is emitted after the row is committed, which
	// is what lets clients treat it as authoritative without a timestamp gate.
	s.announce(ctx, realtime.OrderStatusChanged{
		OrderID:        id,
		PreviousStatus: previous,
		NewStatus:      to,
		UpdatedAt:      updatedAt,
	})
	return order, nil
}

// BulkUpdateStatus applies one target status to many orders. Each order is
// validated against the transition table; the whole request is rejected if
// any move is illegal, so a bulk action never half-applies.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, to status.Status) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkUpdateStatus", trace.WithAttributes(
		attribute.Int("order.count", len(ids)),
		attribute.String("order.status", string(to)),
	))
	defer span.End()

	if len(ids) == 0 {
		return errorbank.BadRequest("orderIds must not be empty")
	}
	if !status.Known(to) {
		return errorbank.BadRequest(fmt.Sprintf("unknown status %q", to))
	}

	orders := make([]*entity.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errorbank.NotFound(fmt.Sprintf("order %d not found", id))
			}
			return errorbank.Internal("failed to load order", errorbank.WithCause(err))
		}
		if !status.IsValidTransition(order.Status, to) {
			return errorbank.Unprocessable(fmt.Sprintf("cannot transition order %d from %s to %s", id, order.Status, to))
		}
		orders = append(orders, order)
	}

	for _, order := range orders {
		previous := order.Status
		updatedAt, err := s.repo.UpdateStatus(ctx, order.ID, to)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to update order status", errorbank.WithCause(err))
		}
		order.Status = to
		order.UpdatedAt = updatedAt
		s.cacheOrder(ctx, order)
		s.announce(ctx, realtime.OrderStatusChanged{
			OrderID:        order.ID,
			PreviousStatus: previous,
			NewStatus:      to,
			UpdatedAt:      updatedAt,
		})
	}
	return nil
}

// Delete removes an order and announces the removal.
func (s *Service) Delete(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to delete order", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, id)
	s.announce(ctx, realtime.OrderDeleted{OrderID: id})
	return order, nil
}

// AddItem appends a line to an order.
func (s *Service) AddItem(ctx context.Context, orderID int64, item *entity.OrderItem) (*entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.AddItem", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if item == nil {
		return nil, errorbank.BadRequest("item payload is required")
	}
	if item.Quantity < 1 {
		return nil, errorbank.Unprocessable("item quantity must be at least 1")
	}

	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if _, err := s.repo.AddItem(ctx, orderID, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to add item", errorbank.WithCause(err))
	}

	// Re-read to pick up the menu snapshot for the broadcast payload.
	stored, err := s.repo.GetItem(ctx, orderID, item.ID)
	if err == nil {
		item = stored
	}

	s.dropFromCache(ctx, orderID)
	s.announce(ctx, realtime.ItemAdded{OrderID: orderID, Item: dto.FromOrderItem(item)})
	return item, nil
}

// UpdateItem replaces the quantity and instructions on an order line. A
// quantity below 1 is rejected; removal is a separate, explicitly confirmed
// request.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID int64, quantity int, instructions string) (*entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateItem", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	if quantity < 1 {
		return nil, errorbank.Unprocessable("item quantity must be at least 1; remove the item instead")
	}

	item := &entity.OrderItem{ID: itemID, Quantity: quantity, SpecialInstructions: instructions}
	if _, err := s.repo.UpdateItem(ctx, orderID, item); err != nil {
		if errors.Is(err, repo.ErrItemNotFound) {
			return nil, errorbank.NotFound("order item not found")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update item", errorbank.WithCause(err))
	}

	stored, err := s.repo.GetItem(ctx, orderID, itemID)
	if err == nil {
		item = stored
	}

	s.dropFromCache(ctx, orderID)
	s.announce(ctx, realtime.ItemUpdated{OrderID: orderID, Item: dto.FromOrderItem(item)})
	return item, nil
}

// RemoveItem deletes a line from an order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.RemoveItem", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	if _, err := s.repo.RemoveItem(ctx, orderID, itemID); err != nil {
		if errors.Is(err, repo.ErrItemNotFound) {
			return errorbank.NotFound("order item not found")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to remove item", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, orderID)
	s.announce(ctx, realtime.ItemRemoved{OrderID: orderID, ItemID: itemID})
	return nil
}

// announce pushes an event to both rooms and mirrors it onto the durable bus.
// Broadcast failures are logged, never surfaced: the REST mutation already
// committed and clients self-heal on the next snapshot.
func (s *Service) announce(ctx context.Context, event realtime.Event) {
	if s.broadcaster != nil {
		for _, room := range []realtime.Room{realtime.RoomKitchen, realtime.RoomOrders} {
			if err := s.broadcaster.Broadcast(ctx, room, event); err != nil {
				s.logger.Error("broadcast failed",
					zap.String("event", string(event.EventKind())),
					zap.String("room", string(room)),
					zap.Error(err))
			}
		}
	}
	s.publishToBus(ctx, event)
}

func (s *Service) publishToBus(ctx context.Context, event realtime.Event) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	frame, err := realtime.Encode(event)
	if err != nil {
		s.logger.Error("encode event for bus", zap.Error(err))
		return
	}
	key := []byte(string(event.EventKind()))
	if err := s.publisher.Publish(ctx, key, frame); err != nil {
		s.logger.Error("publish event to bus",
			zap.String("event", string(event.EventKind())),
			zap.Error(err))
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) cacheOrder(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn("orders cache marshal failed", zap.Int64("id", order.ID), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
}

func (s *Service) dropFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
	}
}
