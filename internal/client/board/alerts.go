package board

import (
	"sort"
	"time"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// Level grades how long an order has been waiting.
type Level int

const (
	LevelNone Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "none"
	}
}

// Thresholds are the escalation boundaries in whole minutes.
type Thresholds struct {
	PendingWarningMinutes    int
	PendingCriticalMinutes   int
	InProgressWarningMinutes int
}

// DefaultThresholds mirror the board's stock configuration.
var DefaultThresholds = Thresholds{
	PendingWarningMinutes:    10,
	PendingCriticalMinutes:   20,
	InProgressWarningMinutes: 30,
}

// AlertLevel derives the wait-time alert for one order. Terminal and halted
// orders never alert; unknown statuses degrade to none. Elapsed time is the
// floored whole-minute difference, so an order alerts on the minute boundary,
// not a tick before. Time-dependent, not event-driven: callers re-evaluate on
// an interval.
func AlertLevel(createdAt time.Time, st status.Status, th Thresholds, now time.Time) Level {
	elapsed := int(now.Sub(createdAt).Minutes())
	if elapsed < 0 {
		elapsed = 0
	}

	switch st {
	case status.Pending:
		if elapsed >= th.PendingCriticalMinutes {
			return LevelCritical
		}
		if elapsed >= th.PendingWarningMinutes {
			return LevelWarning
		}
	case status.InProgress:
		if elapsed >= th.InProgressWarningMinutes {
			return LevelWarning
		}
	}
	return LevelNone
}

// SortByPriority orders a slice most-urgent first: by alert level descending,
// ties broken by ascending createdAt (oldest first). The input is not
// modified.
func SortByPriority(orders []dto.Order, th Thresholds, now time.Time) []dto.Order {
	out := make([]dto.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		li := AlertLevel(out[i].CreatedAt, out[i].Status, th, now)
		lj := AlertLevel(out[j].CreatedAt, out[j].Status, th, now)
		if li != lj {
			return li > lj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
