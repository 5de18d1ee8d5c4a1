package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTargetsTotality(t *testing.T) {
	known := map[Status]bool{}
	for _, s := range All {
		known[s] = true
	}

	for _, s := range All {
		targets := ValidTargets(s)
		for _, target := range targets {
			assert.True(t, known[target], "target %s of %s must be a known status", target, s)
			assert.NotEqual(t, s, target, "no self loops allowed from %s", s)
		}
	}

	assert.Empty(t, ValidTargets(Completed))
	assert.Empty(t, ValidTargets(Canceled))
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to in progress", Pending, InProgress, true},
		{"pending to canceled", Pending, Canceled, true},
		{"pending to completed skips preparation", Pending, Completed, false},
		{"in progress to completed", InProgress, Completed, true},
		{"in progress to halted", InProgress, Halted, true},
		{"in progress to canceled", InProgress, Canceled, true},
		{"in progress back to pending", InProgress, Pending, false},
		{"halted resumes", Halted, InProgress, true},
		{"halted to canceled", Halted, Canceled, true},
		{"halted to completed", Halted, Completed, false},
		{"completed is terminal", Completed, Pending, false},
		{"canceled is terminal", Canceled, InProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestUnknownStatusDegrades(t *testing.T) {
	assert.Empty(t, ValidTargets(Status("SHRUGGED")))
	assert.False(t, IsValidTransition(Status("SHRUGGED"), Pending))
	assert.False(t, Known(Status("SHRUGGED")))
	assert.False(t, Terminal(Status("SHRUGGED")))
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(Completed))
	assert.True(t, Terminal(Canceled))
	assert.False(t, Terminal(Pending))
	assert.False(t, Terminal(InProgress))
	assert.False(t, Terminal(Halted))
}
