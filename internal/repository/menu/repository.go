package menu

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/brigade/internal/database"
	"github.com/Additional-Code/brigade/internal/entity"
)

// ErrNotFound is returned when a menu item is missing.
var ErrNotFound = errors.New("menu item not found")

// Repository provides read access to menu items. Order lines snapshot menu
// rows through the order repository's relations; this repository backs the
// admin read path and the seeder.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a menu repository on the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// List returns every menu item, available or not, in name order.
func (r *Repository) List(ctx context.Context) ([]*entity.MenuItem, error) {
	var items []*entity.MenuItem
	err := r.reader.NewSelect().Model(&items).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID fetches a single menu item.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.MenuItem, error) {
	item := new(entity.MenuItem)
	err := r.reader.NewSelect().Model(item).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
