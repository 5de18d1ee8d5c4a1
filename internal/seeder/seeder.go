package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/database"
	"github.com/Additional-Code/brigade/internal/entity"
	"github.com/Additional-Code/brigade/internal/status"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Run seeds the menu and a handful of sample orders. Seeding is skipped when
// data already exists so it is safe to run repeatedly.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.Menu(ctx); err != nil {
		return err
	}
	return s.Orders(ctx)
}

// Menu inserts the starter menu if the table is empty.
func (s *Seeder) Menu(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.MenuItem)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	items := []*entity.MenuItem{
		{Name: "Margherita Pizza", PriceCents: 1450, Category: "mains", Available: true},
		{Name: "Caesar Salad", PriceCents: 950, Category: "starters", Available: true},
		{Name: "Grilled Salmon", PriceCents: 2250, Category: "mains", Available: true},
		{Name: "Garlic Bread", PriceCents: 550, Category: "starters", Available: true},
		{Name: "Tiramisu", PriceCents: 850, Category: "desserts", Available: true},
		{Name: "House Lemonade", PriceCents: 400, Category: "drinks", Available: true},
	}
	if _, err := s.db.NewInsert().Model(&items).Exec(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded menu items", zap.Int("count", len(items)))
	}
	return nil
}

// Orders inserts a few in-flight sample orders if none exist. Created times
// are staggered so the board shows a mix of fresh and overdue tickets.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var menu []*entity.MenuItem
	if err := s.db.NewSelect().Model(&menu).Order("id ASC").Scan(ctx); err != nil {
		return err
	}
	if len(menu) < 3 {
		return nil
	}

	now := time.Now().UTC()
	samples := []struct {
		order entity.Order
		items []entity.OrderItem
	}{
		{
			order: entity.Order{TableNumber: 4, ServerName: "dana", Status: status.Pending,
				CreatedAt: now.Add(-2 * time.Minute), UpdatedAt: now.Add(-2 * time.Minute)},
			items: []entity.OrderItem{
				{MenuItemID: menu[0].ID, Quantity: 1},
				{MenuItemID: menu[1].ID, Quantity: 2, SpecialInstructions: "dressing on the side"},
			},
		},
		{
			order: entity.Order{TableNumber: 9, ServerName: "marco", Status: status.InProgress,
				CreatedAt: now.Add(-25 * time.Minute), UpdatedAt: now.Add(-10 * time.Minute)},
			items: []entity.OrderItem{
				{MenuItemID: menu[2].ID, Quantity: 1},
			},
		},
		{
			order: entity.Order{TableNumber: 2, ServerName: "dana", Status: status.Pending,
				CreatedAt: now.Add(-15 * time.Minute), UpdatedAt: now.Add(-15 * time.Minute)},
			items: []entity.OrderItem{
				{MenuItemID: menu[1].ID, Quantity: 1},
				{MenuItemID: menu[2].ID, Quantity: 1, SpecialInstructions: "no capers"},
			},
		},
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range samples {
			order := samples[i].order
			if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
				return err
			}
			for j := range samples[i].items {
				item := samples[i].items[j]
				item.OrderID = order.ID
				if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
