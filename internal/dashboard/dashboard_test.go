package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"counselportal/internal/appointment"
	"counselportal/internal/events"
	"counselportal/internal/session"
	"counselportal/internal/timeutil"
)

var ict = time.FixedZone("ICT", 7*3600)

func appt(id string, d timeutil.Date, hour int, st appointment.Status) appointment.Appointment {
	return appointment.Appointment{ID: id, Date: d, Time: timeutil.Clock{Hour: hour}, Status: st}
}

// Wednesday 4 June 2025.
var today = timeutil.NewDate(2025, time.June, 4)

func TestWeeklyCountsExcludesCancelled(t *testing.T) {
	tue := today.AddDays(-1)
	wed := today
	thu := today.AddDays(1)
	list := []appointment.Appointment{
		appt("1", tue, 9, appointment.StatusConfirmed),
		appt("2", wed, 9, appointment.StatusConfirmed),
		appt("3", wed, 10, appointment.StatusConfirmed),
		appt("4", thu, 9, appointment.StatusCancelled),
	}
	assert.Equal(t, [7]int{0, 1, 2, 0, 0, 0, 0}, WeeklyCounts(list, today))
}

func TestWeeklyCountsBounds(t *testing.T) {
	list := []appointment.Appointment{
		appt("sun-before", timeutil.NewDate(2025, 6, 1), 9, appointment.StatusCompleted),
		appt("mon", timeutil.NewDate(2025, 6, 2), 9, appointment.StatusCompleted),
		appt("sun", timeutil.NewDate(2025, 6, 8), 9, appointment.StatusConfirmed),
		appt("next-mon", timeutil.NewDate(2025, 6, 9), 9, appointment.StatusConfirmed),
		appt("pending", timeutil.NewDate(2025, 6, 3), 9, appointment.StatusPending),
	}
	assert.Equal(t, [7]int{1, 0, 0, 0, 0, 0, 1}, WeeklyCounts(list, today))

	sunday := timeutil.NewDate(2025, 6, 8)
	assert.Equal(t, WeeklyCounts(list, today), WeeklyCounts(list, sunday))
}

func TestMonthlyCounts(t *testing.T) {
	list := []appointment.Appointment{
		appt("a", timeutil.NewDate(2025, 6, 1), 9, appointment.StatusConfirmed),
		appt("b", timeutil.NewDate(2025, 6, 7), 9, appointment.StatusCompleted),
		appt("c", timeutil.NewDate(2025, 6, 8), 9, appointment.StatusConfirmed),
		appt("d", timeutil.NewDate(2025, 6, 22), 9, appointment.StatusConfirmed),
		appt("e", timeutil.NewDate(2025, 6, 29), 9, appointment.StatusConfirmed),
		appt("f", timeutil.NewDate(2025, 6, 30), 9, appointment.StatusCompleted),
		appt("g", timeutil.NewDate(2025, 6, 15), 9, appointment.StatusCancelled),
		appt("h", timeutil.NewDate(2025, 7, 1), 9, appointment.StatusConfirmed),
		appt("i", timeutil.NewDate(2024, 6, 1), 9, appointment.StatusConfirmed),
	}
	assert.Equal(t, [4]int{2, 1, 0, 3}, MonthlyCounts(list, today))
}

func TestCountStatuses(t *testing.T) {
	list := []appointment.Appointment{
		appt("1", today, 8, appointment.StatusConfirmed),
		appt("2", today, 9, appointment.StatusCompleted),
		appt("3", today, 10, appointment.ParseStatus("CANCELED")),
		appt("4", today, 11, appointment.StatusCancelled),
		appt("5", today, 13, appointment.StatusPending),
	}
	assert.Equal(t, Tally{Pending: 6, Confirmed: 1, Completed: 1, Cancelled: 2}, CountStatuses(list, 6))
}

func TestUpcomingSorted(t *testing.T) {
	list := []appointment.Appointment{
		appt("late", today.AddDays(1), 8, appointment.StatusConfirmed),
		appt("done", today, 8, appointment.StatusCompleted),
		appt("noon", today, 13, appointment.StatusConfirmed),
		appt("early", today, 9, appointment.StatusConfirmed),
	}
	got := Upcoming(list)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"early", "noon", "late"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

type mockSource struct{ mock.Mock }

func (m *mockSource) ConsultantAppointments(ctx context.Context, id string, r *appointment.DateRange) ([]appointment.Appointment, error) {
	args := m.Called(ctx, id, r)
	list, _ := args.Get(0).([]appointment.Appointment)
	return list, args.Error(1)
}

func (m *mockSource) ConsultantHistory(ctx context.Context, id string) ([]appointment.Appointment, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]appointment.Appointment)
	return list, args.Error(1)
}

func (m *mockSource) UnassignedAppointments(ctx context.Context) ([]appointment.Appointment, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]appointment.Appointment)
	return list, args.Error(1)
}

type fixedIdentity struct {
	id  string
	err error
}

func (f fixedIdentity) ConsultantID(context.Context) (string, error) { return f.id, f.err }

func TestRefreshBuildsSnapshot(t *testing.T) {
	src := &mockSource{}
	open := []appointment.Appointment{
		appt("1", today, 9, appointment.StatusConfirmed),
		appt("2", today.AddDays(-1), 10, appointment.StatusCompleted),
	}
	history := []appointment.Appointment{
		appt("2", today.AddDays(-1), 10, appointment.StatusCompleted),
		appt("3", today.AddDays(-2), 8, appointment.StatusCancelled),
	}
	src.On("ConsultantAppointments", mock.Anything, "7", (*appointment.DateRange)(nil)).Return(open, nil)
	src.On("ConsultantHistory", mock.Anything, "7").Return(history, nil)
	src.On("UnassignedAppointments", mock.Anything).Return([]appointment.Appointment{{ID: "x"}, {ID: "y"}}, nil)

	bus := events.NewBus()
	var refreshed int
	bus.Subscribe(events.TopicDashboardRefreshed, func(events.Event) error { refreshed++; return nil })

	now := time.Date(2025, 6, 4, 8, 0, 0, 0, ict)
	svc := NewService(src, fixedIdentity{id: "7"}, ict, nil).WithBus(bus).WithClock(func() time.Time { return now })

	_, err := svc.Snapshot()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", snap.ConsultantID)
	assert.Equal(t, Tally{Pending: 2, Confirmed: 1, Completed: 1, Cancelled: 1}, snap.Tally)
	assert.Equal(t, [7]int{0, 1, 1, 0, 0, 0, 0}, snap.Weekly)
	assert.Equal(t, []string{"1"}, snap.UpcomingIDs)
	assert.Equal(t, 1, refreshed)

	cached, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Tally, cached.Tally)
	src.AssertExpectations(t)
}

func TestRefreshFailureKeepsPrevious(t *testing.T) {
	src := &mockSource{}
	src.On("ConsultantAppointments", mock.Anything, "7", mock.Anything).Return([]appointment.Appointment{appt("1", today, 9, appointment.StatusConfirmed)}, nil)
	src.On("ConsultantHistory", mock.Anything, "7").Return(nil, nil).Once()
	src.On("UnassignedAppointments", mock.Anything).Return(nil, nil)

	svc := NewService(src, fixedIdentity{id: "7"}, ict, nil)
	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	src.On("ConsultantHistory", mock.Anything, "7").Return(nil, errors.New("history down"))
	_, err = svc.Refresh(context.Background())
	assert.ErrorContains(t, err, "history down")

	kept, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, kept.GeneratedAt)
}

func TestRefreshNeedsConsultant(t *testing.T) {
	src := &mockSource{}
	svc := NewService(src, fixedIdentity{err: session.ErrMissingUserID}, ict, nil)
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, session.ErrMissingUserID)
	src.AssertNotCalled(t, "ConsultantAppointments", mock.Anything, mock.Anything, mock.Anything)
}
