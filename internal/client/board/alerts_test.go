package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

func TestAlertLevelThresholds(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		status  status.Status
		elapsed time.Duration
		want    Level
	}{
		{"pending fresh", status.Pending, 0, LevelNone},
		{"pending just under warning", status.Pending, 9*time.Minute + 59*time.Second, LevelNone},
		{"pending at warning boundary", status.Pending, 10 * time.Minute, LevelWarning},
		{"pending just under critical", status.Pending, 19*time.Minute + 59*time.Second, LevelWarning},
		{"pending at critical boundary", status.Pending, 20 * time.Minute, LevelCritical},
		{"pending far past critical", status.Pending, 3 * time.Hour, LevelCritical},
		{"in progress under warning", status.InProgress, 29 * time.Minute, LevelNone},
		{"in progress at warning boundary", status.InProgress, 30 * time.Minute, LevelWarning},
		{"in progress never critical", status.InProgress, 5 * time.Hour, LevelWarning},
		{"halted never alerts", status.Halted, 2 * time.Hour, LevelNone},
		{"completed never alerts", status.Completed, 1000 * time.Minute, LevelNone},
		{"canceled never alerts", status.Canceled, 1000 * time.Minute, LevelNone},
		{"unknown status never alerts", status.Status("SHREDDED"), time.Hour, LevelNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AlertLevel(now.Add(-tc.elapsed), tc.status, DefaultThresholds, now)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAlertLevelFloorsElapsedMinutes(t *testing.T) {
	now := time.Now()

	// 9m59s floors to 9 minutes, a second later it crosses to warning.
	createdAt := now.Add(-(9*time.Minute + 59*time.Second))
	assert.Equal(t, LevelNone, AlertLevel(createdAt, status.Pending, DefaultThresholds, now))
	assert.Equal(t, LevelWarning, AlertLevel(createdAt, status.Pending, DefaultThresholds, now.Add(time.Second)))
}

func TestAlertLevelClockSkewClampsToZero(t *testing.T) {
	now := time.Now()
	createdAt := now.Add(time.Minute)

	assert.Equal(t, LevelNone, AlertLevel(createdAt, status.Pending, DefaultThresholds, now))
}

func TestSortByPriority(t *testing.T) {
	now := time.Now()

	mk := func(id int64, st status.Status, elapsed time.Duration) dto.Order {
		return dto.Order{ID: id, Status: st, CreatedAt: now.Add(-elapsed)}
	}

	orders := []dto.Order{
		mk(1, status.Pending, 5*time.Minute),      // none
		mk(2, status.Pending, 25*time.Minute),     // critical
		mk(3, status.InProgress, 40*time.Minute),  // warning
		mk(4, status.Pending, 12*time.Minute),     // warning, newer than 3
		mk(5, status.Completed, 90*time.Minute),   // none despite age
		mk(6, status.Pending, 21*time.Minute),     // critical, newer than 2
	}

	got := SortByPriority(orders, DefaultThresholds, now)

	// Critical first (oldest createdAt first), then warnings, then the rest.
	assert.Equal(t, []int64{2, 6, 3, 4, 5, 1}, ids(got))

	// Input untouched.
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(orders))
}
