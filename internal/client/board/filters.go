// Package board derives the kitchen display's view state from a locally held
// order collection: which orders to show, how urgent each one is, and the
// draft structure staff build new orders in.
package board

import (
	"time"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// DefaultCompletedRetention is how long completed orders stay on the board.
const DefaultCompletedRetention = 30 * time.Minute

// ApplyKitchenFilters derives the kitchen view from the full collection:
// canceled orders are hidden unless showCanceled, and completed orders age
// out once updatedAt falls outside the retention window. Relative order of
// the survivors is preserved and the function is pure; callers re-invoke it
// periodically to age out completed orders as the clock advances.
func ApplyKitchenFilters(orders []dto.Order, showCanceled bool, retention time.Duration, now time.Time) []dto.Order {
	if retention <= 0 {
		retention = DefaultCompletedRetention
	}
	cutoff := now.Add(-retention)

	out := make([]dto.Order, 0, len(orders))
	for _, o := range orders {
		switch o.Status {
		case status.Canceled:
			if showCanceled {
				out = append(out, o)
			}
		case status.Completed:
			if !o.UpdatedAt.Before(cutoff) {
				out = append(out, o)
			}
		default:
			out = append(out, o)
		}
	}
	return out
}
