package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// MenuItem is a dish on the menu. Order items keep a foreign reference to it
// and embed a denormalized snapshot for display.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID         int64     `bun:",pk,autoincrement"`
	Name       string    `bun:"name,notnull"`
	PriceCents int64     `bun:"price_cents,notnull"`
	Category   string    `bun:"category,nullzero"`
	Available  bool      `bun:"available,notnull,default:true"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero"`
}
