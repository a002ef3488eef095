package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()

	tests := []struct {
		name        string
		from        Status
		to          Status
		shouldAllow bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"confirmed to completed", StatusConfirmed, StatusCompleted, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},
		{"ongoing behaves as confirmed", StatusOngoing, StatusCompleted, true},
		// Invalid transitions
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"completed is terminal", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"confirmed back to pending", StatusConfirmed, StatusPending, false},
		{"to derived status", StatusConfirmed, StatusOngoing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := m.CanTransition(tt.from, tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestMachineTransition(t *testing.T) {
	m := NewMachine()
	a := &Appointment{ID: "1", Status: StatusConfirmed}

	require.NoError(t, m.Transition(a, StatusCompleted))
	assert.Equal(t, StatusCompleted, a.Status)

	err := m.Transition(a, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, a.Status)

	assert.Empty(t, m.Next(StatusCancelled))
	assert.ElementsMatch(t, []Status{StatusCompleted, StatusCancelled}, m.Next(StatusOngoing))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusCancelled, ParseStatus("CANCELED"))
	assert.Equal(t, StatusCancelled, ParseStatus("cancelled"))
	assert.Equal(t, StatusConfirmed, ParseStatus(" confirmed "))
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusOngoing.Persisted())
}

func TestValidReviewScore(t *testing.T) {
	assert.True(t, ValidReviewScore(0))
	assert.True(t, ValidReviewScore(4.5))
	assert.True(t, ValidReviewScore(5))
	assert.False(t, ValidReviewScore(4.25))
	assert.False(t, ValidReviewScore(5.5))
	assert.False(t, ValidReviewScore(-0.5))
}
