package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/brigade/internal/dto"
)

var (
	burger = dto.MenuItem{ID: 1, Name: "Burger", PriceCents: 1250, Available: true}
	fries  = dto.MenuItem{ID: 2, Name: "Fries", PriceCents: 450, Available: true}
)

func TestDraftAddItemMergesDuplicates(t *testing.T) {
	d := NewDraft()
	d.AddItem(burger)
	d.AddItem(fries)
	d.AddItem(burger)

	items := d.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].MenuItemID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestDraftSetQuantity(t *testing.T) {
	d := NewDraft()
	d.AddItem(burger)

	require.True(t, d.SetQuantity(burger.ID, 4, nil))
	assert.Equal(t, 4, d.Items()[0].Quantity)

	assert.False(t, d.SetQuantity(99, 2, nil))
}

func TestDraftSetQuantityBelowOneNeedsConfirmation(t *testing.T) {
	d := NewDraft()
	d.AddItem(burger)

	// Declined: line stays with its previous quantity.
	require.True(t, d.SetQuantity(burger.ID, 0, func() bool { return false }))
	require.Len(t, d.Items(), 1)
	assert.Equal(t, 1, d.Items()[0].Quantity)

	// Confirmed: line is removed.
	require.True(t, d.SetQuantity(burger.ID, 0, func() bool { return true }))
	assert.Empty(t, d.Items())
}

func TestDraftValidAndReset(t *testing.T) {
	d := NewDraft()
	assert.False(t, d.Valid())

	d.TableNumber = 7
	d.ServerName = "dana"
	assert.False(t, d.Valid())

	d.AddItem(burger)
	assert.True(t, d.Valid())

	d.Reset()
	assert.False(t, d.Valid())
	assert.Empty(t, d.Items())
}

func TestDraftToRequest(t *testing.T) {
	d := NewDraft()
	d.TableNumber = 7
	d.ServerName = "dana"
	d.AddItem(burger)
	d.AddItem(burger)
	d.AddItem(fries)
	require.True(t, d.SetInstructions(fries.ID, "no salt"))

	req := d.ToRequest()
	assert.Equal(t, 7, req.TableNumber)
	assert.Equal(t, "dana", req.ServerName)
	require.Len(t, req.Items, 2)
	assert.Equal(t, int64(1), req.Items[0].MenuItemID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "no salt", req.Items[1].SpecialInstructions)
}
