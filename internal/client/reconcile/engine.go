// Package reconcile merges inbound push events into a display's locally held
// order collection. Events may arrive duplicated or out of order; the engine
// suppresses duplicates by identifier and rejects stale whole-record updates
// by comparing updatedAt, which serves as the logical clock.
package reconcile

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/client/stream"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/realtime"
	"github.com/Additional-Code/brigade/internal/status"
)

// Engine owns one view's order collection. Each screen constructs its own
// engine; views converge by reconciling the same event stream, never by
// sharing memory.
type Engine struct {
	logger *zap.Logger

	// onNewOrder fires exactly once per distinct created order; duplicate
	// delivery of the same creation event must not repeat the side effect.
	onNewOrder func(dto.Order)

	// mu guards set: the channel's read loop and the mutation coordinator
	// both touch the collection.
	mu  sync.Mutex
	set *orderSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger; stale and duplicate events are logged at
// debug only, they are expected and benign.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNewOrderHook sets the one-time side effect for newly observed orders
// (the kitchen board's highlight-and-chime).
func WithNewOrderHook(fn func(dto.Order)) Option {
	return func(e *Engine) { e.onNewOrder = fn }
}

// NewEngine builds an engine seeded from a REST snapshot.
func NewEngine(seed []dto.Order, opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		set:    newOrderSet(seed),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset replaces the collection with a fresh REST snapshot, e.g. after a
// manual refresh.
func (e *Engine) Reset(seed []dto.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = newOrderSet(seed)
}

// Orders returns a copy of the collection in its current order.
func (e *Engine) Orders() []dto.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.snapshot()
}

// Get returns the order with the given id, if present.
func (e *Engine) Get(id int64) (dto.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.get(id)
}

// Len reports the number of orders held.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.set.orders)
}

// Apply routes one decoded event to its handler. Handlers make no assumption
// about what arrived before; every event is validated against current state.
func (e *Engine) Apply(event realtime.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch ev := event.(type) {
	case realtime.OrderCreated:
		e.applyCreated(ev)
	case realtime.OrderUpdated:
		e.applyUpdated(ev)
	case realtime.OrderDeleted:
		e.applyDeleted(ev)
	case realtime.OrderStatusChanged:
		e.applyStatusChanged(ev)
	case realtime.ItemAdded:
		e.applyItemAdded(ev)
	case realtime.ItemUpdated:
		e.applyItemUpdated(ev)
	case realtime.ItemRemoved:
		e.applyItemRemoved(ev)
	default:
		e.logger.Debug("ignoring unhandled event", zap.String("kind", string(event.EventKind())))
	}
}

// Bind registers the full handler set on the channel under the given
// subscriber key. All seven are registered together; Unbind tears them all
// down together. Partial registration would let views drift.
func (e *Engine) Bind(ch *stream.Channel, key string) {
	for _, kind := range boundKinds {
		ch.On(kind, bindKey(key, kind), e.Apply)
	}
}

// Unbind removes every handler Bind registered.
func (e *Engine) Unbind(ch *stream.Channel, key string) {
	for _, kind := range boundKinds {
		ch.Off(kind, bindKey(key, kind))
	}
}

var boundKinds = []realtime.Kind{
	realtime.KindOrderCreated,
	realtime.KindOrderUpdated,
	realtime.KindOrderDeleted,
	realtime.KindOrderStatusChanged,
	realtime.KindItemAdded,
	realtime.KindItemUpdated,
	realtime.KindItemRemoved,
}

func bindKey(key string, kind realtime.Kind) string {
	return fmt.Sprintf("%s/%s", key, kind)
}

// applyCreated appends a new order. Redelivery of the same creation is
// silently discarded and the new-order side effect does not repeat.
func (e *Engine) applyCreated(ev realtime.OrderCreated) {
	if !e.set.add(ev.Order) {
		e.logger.Debug("duplicate create discarded", zap.Int64("order", ev.Order.ID))
		return
	}
	if e.onNewOrder != nil {
		e.onNewOrder(ev.Order)
	}
}

// applyUpdated replaces the whole record, gated by the logical clock. An
// update for an unknown order is ignored: there is no upsert, the record
// will arrive via create or the next snapshot.
func (e *Engine) applyUpdated(ev realtime.OrderUpdated) {
	current, ok := e.set.get(ev.Order.ID)
	if !ok {
		e.logger.Debug("update for unknown order ignored", zap.Int64("order", ev.Order.ID))
		return
	}
	if !ev.Order.UpdatedAt.After(current.UpdatedAt) {
		e.logger.Debug("stale update discarded",
			zap.Int64("order", ev.Order.ID),
			zap.Time("held", current.UpdatedAt),
			zap.Time("incoming", ev.Order.UpdatedAt))
		return
	}
	e.set.replace(ev.Order)
}

func (e *Engine) applyDeleted(ev realtime.OrderDeleted) {
	// Absent is a no-op; deletes are idempotent.
	e.set.remove(ev.OrderID)
}

// applyStatusChanged sets status and clock unconditionally when the order is
// present. Status-change events announce a committed server-side transition
// emitted after the row write, so they are authoritative at status
// granularity without a timestamp gate.
func (e *Engine) applyStatusChanged(ev realtime.OrderStatusChanged) {
	current, ok := e.set.get(ev.OrderID)
	if !ok {
		e.logger.Debug("status change for unknown order ignored", zap.Int64("order", ev.OrderID))
		return
	}
	if !status.Known(ev.NewStatus) {
		e.logger.Debug("status change with unknown status ignored",
			zap.Int64("order", ev.OrderID),
			zap.String("status", string(ev.NewStatus)))
		return
	}
	current.Status = ev.NewStatus
	current.UpdatedAt = ev.UpdatedAt
	e.set.replace(current)
}

func (e *Engine) applyItemAdded(ev realtime.ItemAdded) {
	current, ok := e.set.get(ev.OrderID)
	if !ok {
		return
	}
	for _, item := range current.Items {
		if item.ID == ev.Item.ID {
			e.logger.Debug("duplicate item add discarded",
				zap.Int64("order", ev.OrderID),
				zap.Int64("item", ev.Item.ID))
			return
		}
	}
	current.Items = append(cloneItems(current.Items), ev.Item)
	e.set.replace(current)
}

func (e *Engine) applyItemUpdated(ev realtime.ItemUpdated) {
	current, ok := e.set.get(ev.OrderID)
	if !ok {
		return
	}
	for i, item := range current.Items {
		if item.ID == ev.Item.ID {
			items := cloneItems(current.Items)
			items[i] = ev.Item
			current.Items = items
			e.set.replace(current)
			return
		}
	}
}

func (e *Engine) applyItemRemoved(ev realtime.ItemRemoved) {
	current, ok := e.set.get(ev.OrderID)
	if !ok {
		return
	}
	for i, item := range current.Items {
		if item.ID == ev.ItemID {
			items := cloneItems(current.Items)
			current.Items = append(items[:i], items[i+1:]...)
			e.set.replace(current)
			return
		}
	}
}

// SetStatus applies a local status change (optimistic path) and reports the
// previous value for rollback. The clock is left untouched; the confirming
// push event carries the authoritative updatedAt.
func (e *Engine) SetStatus(id int64, to status.Status) (status.Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.set.get(id)
	if !ok {
		return "", false
	}
	previous := current.Status
	current.Status = to
	e.set.replace(current)
	return previous, true
}

func cloneItems(items []dto.OrderItem) []dto.OrderItem {
	out := make([]dto.OrderItem, len(items))
	copy(out, items)
	return out
}
