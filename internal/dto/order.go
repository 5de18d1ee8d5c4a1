// Package dto holds the wire representations shared by the HTTP transport,
// the realtime event payloads, and the synchronizing clients. Keeping one
// shape on both ends is what lets a client treat a REST snapshot and a push
// event as the same record.
package dto

import (
	"time"

	"github.com/Additional-Code/brigade/internal/entity"
	"github.com/Additional-Code/brigade/internal/status"
)

// Order is an order as exposed over REST and the push stream.
type Order struct {
	ID          int64         `json:"id"`
	TableNumber int           `json:"tableNumber"`
	ServerName  string        `json:"serverName"`
	Status      status.Status `json:"status"`
	Items       []OrderItem   `json:"items"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// OrderItem is a single order line on the wire. MenuItem may be absent, in
// which case displays fall back to a placeholder label.
type OrderItem struct {
	ID                  int64     `json:"id"`
	MenuItemID          int64     `json:"menuItemId"`
	MenuItem            *MenuItem `json:"menuItem,omitempty"`
	Quantity            int       `json:"quantity"`
	SpecialInstructions string    `json:"specialInstructions,omitempty"`
}

// MenuItem is the denormalized snapshot embedded in order items for display.
type MenuItem struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Category   string `json:"category,omitempty"`
	Available  bool   `json:"available"`
}

// FromOrder maps a persisted order onto its wire shape.
func FromOrder(o *entity.Order) Order {
	out := Order{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		ServerName:  o.ServerName,
		Status:      o.Status,
		Items:       make([]OrderItem, 0, len(o.Items)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, FromOrderItem(item))
	}
	return out
}

// FromOrderItem maps a persisted order item onto its wire shape.
func FromOrderItem(item *entity.OrderItem) OrderItem {
	out := OrderItem{
		ID:                  item.ID,
		MenuItemID:          item.MenuItemID,
		Quantity:            item.Quantity,
		SpecialInstructions: item.SpecialInstructions,
	}
	if item.MenuItem != nil {
		snapshot := FromMenuItem(item.MenuItem)
		out.MenuItem = &snapshot
	}
	return out
}

// FromMenuItem maps a persisted menu item onto its wire shape.
func FromMenuItem(m *entity.MenuItem) MenuItem {
	return MenuItem{
		ID:         m.ID,
		Name:       m.Name,
		PriceCents: m.PriceCents,
		Category:   m.Category,
		Available:  m.Available,
	}
}
