package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/brigade/internal/database"
	"github.com/Additional-Code/brigade/internal/entity"
	"github.com/Additional-Code/brigade/internal/status"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/brigade/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrItemNotFound is returned when an order item is missing.
var ErrItemNotFound = errors.New("order item not found")

// Repository encapsulates read/write access for orders and their items.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order together with its items in one transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.Int("order.table", order.TableNumber)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, item := range order.Items {
			item.OrderID = order.ID
			if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its items and menu snapshots, using the read
// replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Relation("Items.MenuItem").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns all orders with items, newest first. Displays do their own
// filtering; the snapshot must be complete.
func (r *Repository) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Relation("Items.MenuItem").
		Order("o.created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Update rewrites the mutable header fields of an order and advances
// updated_at.
func (r *Repository) Update(ctx context.Context, order *entity.Order) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	order.UpdatedAt = time.Now().UTC()
	res, err := r.writer.NewUpdate().Model(order).
		Column("table_number", "server_name", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return requireAffected(res, ErrNotFound)
}

// UpdateStatus sets the status of one order and advances updated_at,
// returning the new clock value.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, to status.Status) (time.Time, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(to)),
	))
	defer span.End()

	now := time.Now().UTC()
	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return time.Time{}, err
	}
	if err := requireAffected(res, ErrNotFound); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Delete removes an order; its items go with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*entity.OrderItem)(nil)).Where("order_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res, ErrNotFound)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// AddItem appends an item to an order and advances the order clock.
func (r *Repository) AddItem(ctx context.Context, orderID int64, item *entity.OrderItem) (time.Time, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AddItem", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	now := time.Now().UTC()
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		item.OrderID = orderID
		if _, err := tx.NewInsert().Model(item).Exec(ctx); err != nil {
			return err
		}
		return touchOrder(ctx, tx, orderID, now)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return time.Time{}, err
	}
	return now, nil
}

// UpdateItem replaces the mutable fields of an order line and advances the
// order clock.
func (r *Repository) UpdateItem(ctx context.Context, orderID int64, item *entity.OrderItem) (time.Time, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateItem", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", item.ID),
	))
	defer span.End()

	now := time.Now().UTC()
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(item).
			Column("quantity", "special_instructions").
			Where("id = ? AND order_id = ?", item.ID, orderID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, ErrItemNotFound); err != nil {
			return err
		}
		return touchOrder(ctx, tx, orderID, now)
	})
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
		}
		return time.Time{}, err
	}
	return now, nil
}

// RemoveItem deletes an order line and advances the order clock.
func (r *Repository) RemoveItem(ctx context.Context, orderID, itemID int64) (time.Time, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.RemoveItem", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	now := time.Now().UTC()
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*entity.OrderItem)(nil)).
			Where("id = ? AND order_id = ?", itemID, orderID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, ErrItemNotFound); err != nil {
			return err
		}
		return touchOrder(ctx, tx, orderID, now)
	})
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete failed")
		}
		return time.Time{}, err
	}
	return now, nil
}

// GetItem fetches one order line with its menu snapshot.
func (r *Repository) GetItem(ctx context.Context, orderID, itemID int64) (*entity.OrderItem, error) {
	item := new(entity.OrderItem)
	err := r.reader.NewSelect().Model(item).
		Relation("MenuItem").
		Where("order_item.id = ? AND order_item.order_id = ?", itemID, orderID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func touchOrder(ctx context.Context, tx bun.Tx, orderID int64, now time.Time) error {
	res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
		Set("updated_at = ?", now).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

func requireAffected(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		// Driver cannot report affected rows; assume the write landed.
		return nil
	}
	if affected == 0 {
		return missing
	}
	return nil
}
