package entity

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/brigade/internal/status"
)

// Order is the aggregate root for a table's order. Items are owned by the
// order and never outlive it. UpdatedAt doubles as the logical clock clients
// use for staleness rejection, so every mutation must advance it.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID          int64         `bun:",pk,autoincrement"`
	TableNumber int           `bun:"table_number,notnull"`
	ServerName  string        `bun:"server_name,notnull"`
	Status      status.Status `bun:"status,notnull"`
	Items       []*OrderItem  `bun:"rel:has-many,join:id=order_id"`
	CreatedAt   time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `bun:"updated_at,nullzero"`
}

// OrderItem is a single line on an order, referencing a menu item snapshot.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID                  int64     `bun:",pk,autoincrement"`
	OrderID             int64     `bun:"order_id,notnull"`
	MenuItemID          int64     `bun:"menu_item_id,notnull"`
	MenuItem            *MenuItem `bun:"rel:belongs-to,join:menu_item_id=id"`
	Quantity            int       `bun:"quantity,notnull"`
	SpecialInstructions string    `bun:"special_instructions,nullzero"`
}
