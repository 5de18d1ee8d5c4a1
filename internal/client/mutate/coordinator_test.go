package mutate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/brigade/internal/client/reconcile"
	"github.com/Additional-Code/brigade/internal/client/rest"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// fakeAPI records calls and returns scripted errors.
type fakeAPI struct {
	statusCalls []statusCall
	bulkCalls   []bulkCall
	removeCalls []int64
	updateItem  []rest.UpdateItem
	failWith    error
}

type statusCall struct {
	id int64
	to status.Status
}

type bulkCall struct {
	ids []int64
	to  status.Status
}

func (f *fakeAPI) Create(context.Context, rest.CreateOrder) (dto.Order, error) {
	return dto.Order{}, f.failWith
}

func (f *fakeAPI) Update(context.Context, int64, rest.UpdateOrder) (dto.Order, error) {
	return dto.Order{}, f.failWith
}

func (f *fakeAPI) UpdateStatus(_ context.Context, id int64, to status.Status) (dto.Order, error) {
	f.statusCalls = append(f.statusCalls, statusCall{id: id, to: to})
	return dto.Order{ID: id, Status: to}, f.failWith
}

func (f *fakeAPI) BulkUpdateStatus(_ context.Context, ids []int64, to status.Status) error {
	f.bulkCalls = append(f.bulkCalls, bulkCall{ids: ids, to: to})
	return f.failWith
}

func (f *fakeAPI) Delete(context.Context, int64) (dto.Order, error) {
	return dto.Order{}, f.failWith
}

func (f *fakeAPI) AddItem(context.Context, int64, rest.CreateItem) (dto.OrderItem, error) {
	return dto.OrderItem{}, f.failWith
}

func (f *fakeAPI) UpdateOrderItem(_ context.Context, _, _ int64, req rest.UpdateItem) (dto.OrderItem, error) {
	f.updateItem = append(f.updateItem, req)
	return dto.OrderItem{}, f.failWith
}

func (f *fakeAPI) RemoveItem(_ context.Context, _, itemID int64) error {
	f.removeCalls = append(f.removeCalls, itemID)
	return f.failWith
}

func seededEngine(statuses map[int64]status.Status) *reconcile.Engine {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orders := make([]dto.Order, 0, len(statuses))
	for id := int64(1); id <= int64(len(statuses)); id++ {
		orders = append(orders, dto.Order{
			ID:        id,
			Status:    statuses[id],
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return reconcile.NewEngine(orders)
}

func TestChangeStatusOptimisticThenConfirmed(t *testing.T) {
	api := &fakeAPI{}
	eng := seededEngine(map[int64]status.Status{1: status.Pending})
	coord := NewCoordinator(api, eng, nil)

	require.NoError(t, coord.ChangeStatus(context.Background(), 1, status.InProgress))

	got, _ := eng.Get(1)
	assert.Equal(t, status.InProgress, got.Status)
	require.Len(t, api.statusCalls, 1)
	assert.Equal(t, statusCall{id: 1, to: status.InProgress}, api.statusCalls[0])
}

func TestChangeStatusRollsBackOnFailure(t *testing.T) {
	api := &fakeAPI{failWith: errors.New("server unavailable")}
	eng := seededEngine(map[int64]status.Status{1: status.Pending})
	coord := NewCoordinator(api, eng, nil)

	err := coord.ChangeStatus(context.Background(), 1, status.InProgress)
	require.Error(t, err)
	assert.Equal(t, "server unavailable", err.Error())

	got, _ := eng.Get(1)
	assert.Equal(t, status.Pending, got.Status, "failed mutation must end at the pre-mutation status")
	assert.Len(t, api.statusCalls, 1, "no automatic retry")
}

func TestChangeStatusInvalidTransitionIssuesNoCall(t *testing.T) {
	api := &fakeAPI{}
	eng := seededEngine(map[int64]status.Status{1: status.Completed})
	coord := NewCoordinator(api, eng, nil)

	err := coord.ChangeStatus(context.Background(), 1, status.Pending)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, status.Completed, invalid.From)
	assert.Empty(t, api.statusCalls, "validation rejections must not reach the network")

	got, _ := eng.Get(1)
	assert.Equal(t, status.Completed, got.Status)
}

func TestChangeStatusUnknownOrder(t *testing.T) {
	api := &fakeAPI{}
	coord := NewCoordinator(api, seededEngine(nil), nil)

	err := coord.ChangeStatus(context.Background(), 404, status.InProgress)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, api.statusCalls)
}

func TestBulkChangeStatusAppliesAndRevertsUniformly(t *testing.T) {
	api := &fakeAPI{}
	eng := seededEngine(map[int64]status.Status{1: status.Pending, 2: status.Halted})
	coord := NewCoordinator(api, eng, nil)

	require.NoError(t, coord.BulkChangeStatus(context.Background(), []int64{1, 2}, status.InProgress))
	for _, id := range []int64{1, 2} {
		got, _ := eng.Get(id)
		assert.Equal(t, status.InProgress, got.Status)
	}
	require.Len(t, api.bulkCalls, 1)

	// Failure path: both revert to their own snapshots.
	api.failWith = errors.New("boom")
	require.Error(t, coord.BulkChangeStatus(context.Background(), []int64{1, 2}, status.Completed))
	for _, id := range []int64{1, 2} {
		got, _ := eng.Get(id)
		assert.Equal(t, status.InProgress, got.Status)
	}
}

func TestBulkChangeStatusRejectsWholeBatchOnOneInvalid(t *testing.T) {
	api := &fakeAPI{}
	eng := seededEngine(map[int64]status.Status{1: status.Pending, 2: status.Completed})
	coord := NewCoordinator(api, eng, nil)

	err := coord.BulkChangeStatus(context.Background(), []int64{1, 2}, status.InProgress)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, api.bulkCalls)

	got, _ := eng.Get(1)
	assert.Equal(t, status.Pending, got.Status, "nothing may be applied when any order fails validation")
}

func TestClosedCoordinatorDiscardsRollback(t *testing.T) {
	api := &fakeAPI{failWith: errors.New("late failure")}
	eng := seededEngine(map[int64]status.Status{1: status.Pending})
	coord := NewCoordinator(api, eng, nil)

	// Simulates the response resolving after the owning view unmounted: the
	// error still propagates, but local state is left alone.
	coord.Close()
	err := coord.ChangeStatus(context.Background(), 1, status.InProgress)
	require.Error(t, err)

	got, _ := eng.Get(1)
	assert.Equal(t, status.InProgress, got.Status, "no state writes after teardown")
}

func TestUpdateItemQuantityBelowOneIsARemovalRequest(t *testing.T) {
	api := &fakeAPI{}
	coord := NewCoordinator(api, seededEngine(nil), nil)

	// Declined: nothing happens.
	require.NoError(t, coord.UpdateItemQuantity(context.Background(), 1, 10, 0, "", func() bool { return false }))
	assert.Empty(t, api.removeCalls)
	assert.Empty(t, api.updateItem)

	// Confirmed: removal call instead of an update.
	require.NoError(t, coord.UpdateItemQuantity(context.Background(), 1, 10, 0, "", func() bool { return true }))
	assert.Equal(t, []int64{10}, api.removeCalls)

	// Normal quantities go through the update path.
	require.NoError(t, coord.UpdateItemQuantity(context.Background(), 1, 10, 3, "extra sauce", nil))
	require.Len(t, api.updateItem, 1)
	assert.Equal(t, 3, api.updateItem[0].Quantity)
}
