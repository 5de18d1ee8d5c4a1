package board

import (
	"github.com/Additional-Code/brigade/internal/client/rest"
	"github.com/Additional-Code/brigade/internal/dto"
)

// DraftItem is a line being composed before the order is submitted. The menu
// item snapshot is captured at add time so the draft can render name and
// price without another lookup.
type DraftItem struct {
	MenuItemID          int64
	MenuItem            dto.MenuItem
	Quantity            int
	SpecialInstructions string
}

// Draft accumulates a new order before it is sent to the server. It is not
// safe for concurrent use; a draft belongs to one composing session.
type Draft struct {
	TableNumber int
	ServerName  string
	items       []DraftItem
}

// NewDraft starts an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// Items returns a copy of the draft lines in insertion order.
func (d *Draft) Items() []DraftItem {
	out := make([]DraftItem, len(d.items))
	copy(out, d.items)
	return out
}

// AddItem appends a menu item to the draft. Adding an item already on the
// draft increments that line's quantity instead of creating a duplicate line.
func (d *Draft) AddItem(m dto.MenuItem) {
	for i := range d.items {
		if d.items[i].MenuItemID == m.ID {
			d.items[i].Quantity++
			return
		}
	}
	d.items = append(d.items, DraftItem{
		MenuItemID: m.ID,
		MenuItem:   m,
		Quantity:   1,
	})
}

// SetQuantity changes the quantity on an existing line. A quantity below one
// means removal, which is gated by confirm; when confirm declines, the line is
// left untouched. Returns false if no line matches menuItemID.
func (d *Draft) SetQuantity(menuItemID int64, quantity int, confirm func() bool) bool {
	for i := range d.items {
		if d.items[i].MenuItemID != menuItemID {
			continue
		}
		if quantity < 1 {
			if confirm == nil || !confirm() {
				return true
			}
			d.items = append(d.items[:i], d.items[i+1:]...)
			return true
		}
		d.items[i].Quantity = quantity
		return true
	}
	return false
}

// SetInstructions updates the special instructions on an existing line.
// Returns false if no line matches menuItemID.
func (d *Draft) SetInstructions(menuItemID int64, instructions string) bool {
	for i := range d.items {
		if d.items[i].MenuItemID == menuItemID {
			d.items[i].SpecialInstructions = instructions
			return true
		}
	}
	return false
}

// RemoveItem drops a line without confirmation. Removing an absent line is a
// no-op.
func (d *Draft) RemoveItem(menuItemID int64) {
	for i := range d.items {
		if d.items[i].MenuItemID == menuItemID {
			d.items = append(d.items[:i], d.items[i+1:]...)
			return
		}
	}
}

// Reset clears the draft back to empty so the next order starts fresh.
func (d *Draft) Reset() {
	d.TableNumber = 0
	d.ServerName = ""
	d.items = nil
}

// ToRequest converts the draft into the create-order request body.
func (d *Draft) ToRequest() rest.CreateOrder {
	req := rest.CreateOrder{
		TableNumber: d.TableNumber,
		ServerName:  d.ServerName,
		Items:       make([]rest.CreateItem, 0, len(d.items)),
	}
	for _, item := range d.items {
		req.Items = append(req.Items, rest.CreateItem{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return req
}

// Valid reports whether the draft can be submitted: a positive table number,
// a non-empty server name, and at least one line.
func (d *Draft) Valid() bool {
	return d.TableNumber > 0 && d.ServerName != "" && len(d.items) > 0
}
