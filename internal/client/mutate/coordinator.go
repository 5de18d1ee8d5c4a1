// Package mutate coordinates user-initiated order mutations: validate against
// the transition table, apply the expected effect locally, issue the REST
// call, and roll the local change back if the call fails. Confirmation
// reaches every observer (including this one) through the push stream, where
// the reconciliation engine treats it as a harmless duplicate.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/client/reconcile"
	"github.com/Additional-Code/brigade/internal/client/rest"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// ErrOrderNotFound is returned when the target order is not in the local
// collection.
var ErrOrderNotFound = errors.New("order not held locally")

// InvalidTransitionError is a local validation rejection. It is raised before
// any network call and is never a network error.
type InvalidTransitionError struct {
	OrderID int64
	From    status.Status
	To      status.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order %d from %s to %s", e.OrderID, e.From, e.To)
}

// API is the slice of the REST surface the coordinator issues calls against.
// *rest.Client satisfies it.
type API interface {
	Create(ctx context.Context, req rest.CreateOrder) (dto.Order, error)
	Update(ctx context.Context, id int64, req rest.UpdateOrder) (dto.Order, error)
	UpdateStatus(ctx context.Context, id int64, to status.Status) (dto.Order, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, to status.Status) error
	Delete(ctx context.Context, id int64) (dto.Order, error)
	AddItem(ctx context.Context, orderID int64, req rest.CreateItem) (dto.OrderItem, error)
	UpdateOrderItem(ctx context.Context, orderID, itemID int64, req rest.UpdateItem) (dto.OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) error
}

// Coordinator pairs an API client with the engine owning the view's
// collection.
type Coordinator struct {
	api    API
	engine *reconcile.Engine
	logger *zap.Logger

	// closed marks the owning view as torn down; results of in-flight calls
	// are discarded rather than applied to a dead view.
	closed atomic.Bool
}

// NewCoordinator builds a coordinator for one view.
func NewCoordinator(api API, engine *reconcile.Engine, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{api: api, engine: engine, logger: logger}
}

// Close marks the view as torn down. In-flight mutations are not aborted;
// their results are simply discarded when they resolve.
func (c *Coordinator) Close() {
	c.closed.Store(true)
}

// ChangeStatus moves one order to a new status with an optimistic local
// update: the board shows the move immediately and reverts if the server
// rejects it. Failures are surfaced, never retried automatically.
func (c *Coordinator) ChangeStatus(ctx context.Context, id int64, to status.Status) error {
	current, ok := c.engine.Get(id)
	if !ok {
		return ErrOrderNotFound
	}
	if !status.IsValidTransition(current.Status, to) {
		return &InvalidTransitionError{OrderID: id, From: current.Status, To: to}
	}

	previous, _ := c.engine.SetStatus(id, to)

	if _, err := c.api.UpdateStatus(ctx, id, to); err != nil {
		if c.closed.Load() {
			c.logger.Debug("discarding failed mutation result for torn-down view", zap.Int64("order", id))
			return err
		}
		c.engine.SetStatus(id, previous)
		return err
	}
	return nil
}

// BulkChangeStatus applies one target status to many orders. The policy is
// uniform with the single-order path: every order is validated first, all are
// applied optimistically, and all are reverted together on failure, so the
// two mutation forms have the same latency and consistency behavior.
func (c *Coordinator) BulkChangeStatus(ctx context.Context, ids []int64, to status.Status) error {
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		current, ok := c.engine.Get(id)
		if !ok {
			return ErrOrderNotFound
		}
		if !status.IsValidTransition(current.Status, to) {
			return &InvalidTransitionError{OrderID: id, From: current.Status, To: to}
		}
	}

	snapshots := make(map[int64]status.Status, len(ids))
	for _, id := range ids {
		previous, ok := c.engine.SetStatus(id, to)
		if ok {
			snapshots[id] = previous
		}
	}

	if err := c.api.BulkUpdateStatus(ctx, ids, to); err != nil {
		if c.closed.Load() {
			return err
		}
		for id, previous := range snapshots {
			c.engine.SetStatus(id, previous)
		}
		return err
	}
	return nil
}

// CreateOrder submits a new order. There is no optimistic entry: the record
// has no identifier until the server assigns one, so the view picks it up
// from the order:created push event.
func (c *Coordinator) CreateOrder(ctx context.Context, req rest.CreateOrder) (dto.Order, error) {
	return c.api.Create(ctx, req)
}

// UpdateOrder rewrites the order header; propagation happens via push.
func (c *Coordinator) UpdateOrder(ctx context.Context, id int64, req rest.UpdateOrder) (dto.Order, error) {
	return c.api.Update(ctx, id, req)
}

// DeleteOrder removes an order; propagation happens via push.
func (c *Coordinator) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.api.Delete(ctx, id)
	return err
}

// AddItem appends a line; the item has no id until persisted, so the view
// picks it up from the order-item:added event.
func (c *Coordinator) AddItem(ctx context.Context, orderID int64, req rest.CreateItem) (dto.OrderItem, error) {
	return c.api.AddItem(ctx, orderID, req)
}

// UpdateItemQuantity changes a line's quantity. A quantity below 1 is treated
// as a removal request gated by the confirm callback; declining leaves the
// line untouched and issues no call.
func (c *Coordinator) UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int, instructions string, confirmRemove func() bool) error {
	if quantity < 1 {
		if confirmRemove == nil || !confirmRemove() {
			return nil
		}
		return c.api.RemoveItem(ctx, orderID, itemID)
	}
	_, err := c.api.UpdateOrderItem(ctx, orderID, itemID, rest.UpdateItem{
		Quantity:            quantity,
		SpecialInstructions: instructions,
	})
	return err
}

// RemoveItem deletes a line; propagation happens via push.
func (c *Coordinator) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	return c.api.RemoveItem(ctx, orderID, itemID)
}
