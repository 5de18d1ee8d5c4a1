package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

func kitchenOrder(id int64, st status.Status, updatedAgo time.Duration, now time.Time) dto.Order {
	return dto.Order{
		ID:        id,
		Status:    st,
		CreatedAt: now.Add(-updatedAgo - time.Minute),
		UpdatedAt: now.Add(-updatedAgo),
	}
}

func ids(orders []dto.Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestApplyKitchenFiltersHidesCanceledByDefault(t *testing.T) {
	now := time.Now()
	orders := []dto.Order{
		kitchenOrder(1, status.Pending, time.Minute, now),
		kitchenOrder(2, status.Canceled, time.Minute, now),
		kitchenOrder(3, status.InProgress, time.Minute, now),
	}

	got := ApplyKitchenFilters(orders, false, DefaultCompletedRetention, now)
	assert.Equal(t, []int64{1, 3}, ids(got))

	got = ApplyKitchenFilters(orders, true, DefaultCompletedRetention, now)
	assert.Equal(t, []int64{1, 2, 3}, ids(got))
}

func TestApplyKitchenFiltersCompletedRetention(t *testing.T) {
	now := time.Now()
	orders := []dto.Order{
		kitchenOrder(1, status.Completed, 29*time.Minute, now),
		kitchenOrder(2, status.Completed, 31*time.Minute, now),
		kitchenOrder(3, status.Completed, 30*time.Minute, now),
	}

	got := ApplyKitchenFilters(orders, false, DefaultCompletedRetention, now)

	// 29 minutes old stays, 31 is gone, exactly at the window survives.
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestApplyKitchenFiltersRetentionOnlyAppliesToCompleted(t *testing.T) {
	now := time.Now()
	orders := []dto.Order{
		kitchenOrder(1, status.Pending, 2*time.Hour, now),
		kitchenOrder(2, status.Halted, 2*time.Hour, now),
		kitchenOrder(3, status.InProgress, 2*time.Hour, now),
	}

	got := ApplyKitchenFilters(orders, false, DefaultCompletedRetention, now)
	assert.Equal(t, []int64{1, 2, 3}, ids(got))
}

func TestApplyKitchenFiltersStableAndIdempotent(t *testing.T) {
	now := time.Now()
	orders := []dto.Order{
		kitchenOrder(5, status.InProgress, time.Minute, now),
		kitchenOrder(2, status.Canceled, time.Minute, now),
		kitchenOrder(9, status.Pending, time.Minute, now),
		kitchenOrder(1, status.Completed, 45*time.Minute, now),
	}

	once := ApplyKitchenFilters(orders, false, DefaultCompletedRetention, now)
	twice := ApplyKitchenFilters(once, false, DefaultCompletedRetention, now)

	assert.Equal(t, []int64{5, 9}, ids(once))
	assert.Equal(t, once, twice)
}

func TestApplyKitchenFiltersDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	orders := []dto.Order{
		kitchenOrder(1, status.Canceled, time.Minute, now),
		kitchenOrder(2, status.Pending, time.Minute, now),
	}

	_ = ApplyKitchenFilters(orders, false, DefaultCompletedRetention, now)

	assert.Equal(t, []int64{1, 2}, ids(orders))
}
