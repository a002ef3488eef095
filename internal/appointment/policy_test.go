package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"counselportal/internal/timeutil"
)

var ict = time.FixedZone("ICT", 7*3600)

// at builds a CONFIRMED appointment starting at t.
func at(t time.Time, status Status) Appointment {
	return Appointment{
		ID:     "a1",
		Date:   timeutil.DateOf(t),
		Time:   timeutil.Clock{Hour: t.Hour(), Minute: t.Minute()},
		Status: status,
	}
}

func TestEvaluateWindows(t *testing.T) {
	now := time.Date(2025, 6, 4, 9, 50, 0, 0, ict)

	tests := []struct {
		name         string
		start        time.Time
		status       Status
		wantStart    bool
		wantComplete bool
		wantCancel   bool
		wantDisplay  Status
	}{
		{"five minutes ahead", now.Add(5 * time.Minute), StatusConfirmed, true, false, true, StatusConfirmed},
		{"fifteen minutes ahead", now.Add(15 * time.Minute), StatusConfirmed, false, false, true, StatusConfirmed},
		{"exactly ten ahead", now.Add(10 * time.Minute), StatusConfirmed, true, false, true, StatusConfirmed},
		{"ten minutes ago", now.Add(-10 * time.Minute), StatusConfirmed, true, true, false, StatusOngoing},
		{"starting now", now, StatusConfirmed, true, true, false, StatusOngoing},
		{"session over", now.Add(-61 * time.Minute), StatusConfirmed, true, true, false, StatusConfirmed},
		{"pending ahead", now.Add(30 * time.Minute), StatusPending, false, false, true, StatusPending},
		{"pending past", now.Add(-30 * time.Minute), StatusPending, false, false, false, StatusPending},
		{"completed ahead", now.Add(5 * time.Minute), StatusCompleted, false, false, false, StatusCompleted},
		{"completed past", now.Add(-10 * time.Minute), StatusCompleted, false, false, false, StatusCompleted},
		{"cancelled ahead", now.Add(5 * time.Minute), StatusCancelled, false, false, false, StatusCancelled},
		{"cancelled past", now.Add(-10 * time.Minute), StatusCancelled, false, false, false, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(at(tt.start, tt.status), now, ict)
			assert.Equal(t, tt.wantStart, e.CanStart, "start")
			assert.Equal(t, tt.wantComplete, e.CanComplete, "complete")
			assert.Equal(t, tt.wantCancel, e.CanCancel, "cancel")
			assert.Equal(t, tt.wantDisplay, e.Display)
		})
	}
}

func TestCancelNeedsAWholeMinute(t *testing.T) {
	now := time.Date(2025, 6, 4, 9, 59, 30, 0, ict)
	a := at(time.Date(2025, 6, 4, 10, 0, 0, 0, ict), StatusConfirmed)

	e := Evaluate(a, now, ict)
	assert.Equal(t, 0, e.MinutesUntil)
	assert.False(t, e.CanCancel)
	assert.False(t, e.CanComplete)
	assert.True(t, e.CanStart)
}

func TestDerivedStatusBoundaries(t *testing.T) {
	start := time.Date(2025, 6, 4, 14, 0, 0, 0, ict)

	assert.Equal(t, StatusConfirmed, DerivedStatus(StatusConfirmed, start, start.Add(-time.Second)))
	assert.Equal(t, StatusOngoing, DerivedStatus(StatusConfirmed, start, start))
	assert.Equal(t, StatusOngoing, DerivedStatus(StatusConfirmed, start, start.Add(59*time.Minute)))
	assert.Equal(t, StatusConfirmed, DerivedStatus(StatusConfirmed, start, start.Add(time.Hour)))
	assert.Equal(t, StatusPending, DerivedStatus(StatusPending, start, start.Add(time.Minute)))
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, ict)
	a := at(now.Add(30*time.Minute), StatusConfirmed)

	assert.NoError(t, Check(a, ActionCancel, now, ict))
	assert.ErrorIs(t, Check(a, ActionStart, now, ict), ErrNotEligible)
	assert.ErrorIs(t, Check(a, ActionComplete, now, ict), ErrNotEligible)

	a.IsRegisteredSlot = true
	assert.ErrorIs(t, Check(a, ActionCancel, now, ict), ErrNotEligible)
}

func TestEvaluateRegisteredSlotDisablesActions(t *testing.T) {
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, ict)

	for _, start := range []time.Time{now.Add(5 * time.Minute), now.Add(-5 * time.Minute), now.Add(2 * time.Hour)} {
		a := at(start, StatusConfirmed)
		e := Evaluate(a, now, ict)
		assert.True(t, e.CanStart || e.CanComplete || e.CanCancel, start)

		a.IsRegisteredSlot = true
		e = Evaluate(a, now, ict)
		assert.False(t, e.CanStart, start)
		assert.False(t, e.CanComplete, start)
		assert.False(t, e.CanCancel, start)
		for _, act := range []Action{ActionStart, ActionComplete, ActionCancel} {
			assert.False(t, e.Allows(act), act)
		}
	}
}

func TestMinutesUntil(t *testing.T) {
	start := time.Date(2025, 6, 4, 10, 0, 0, 0, ict)
	assert.Equal(t, 5, MinutesUntil(start, start.Add(-5*time.Minute-30*time.Second)))
	assert.Equal(t, -1, MinutesUntil(start, start.Add(90*time.Second)))
	assert.Equal(t, 0, MinutesUntil(start, start.Add(30*time.Second)))
}
