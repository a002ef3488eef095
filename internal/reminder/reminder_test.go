package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counselportal/internal/appointment"
	"counselportal/internal/events"
	"counselportal/internal/timeutil"
)

var ict = time.FixedZone("ICT", 7*3600)

type staticList []appointment.Appointment

func (s *staticList) Appointments() []appointment.Appointment { return *s }

func confirmedAt(id string, hour, minute int) appointment.Appointment {
	return appointment.Appointment{
		ID:     id,
		Date:   timeutil.NewDate(2025, time.June, 4),
		Time:   timeutil.Clock{Hour: hour, Minute: minute},
		Status: appointment.StatusConfirmed,
	}
}

func TestMeetingSoonFiresOnce(t *testing.T) {
	list := staticList{
		confirmedAt("soon", 10, 0),
		confirmedAt("later", 11, 0),
		{ID: "pending", Date: timeutil.NewDate(2025, 6, 4), Time: timeutil.Clock{Hour: 10}, Status: appointment.StatusPending},
		{ID: "slot-1", Date: timeutil.NewDate(2025, 6, 4), Time: timeutil.Clock{Hour: 10}, Status: appointment.StatusConfirmed, IsRegisteredSlot: true},
	}
	bus := events.NewBus()
	var got []Notice
	bus.Subscribe(events.TopicMeetingSoon, func(e events.Event) error {
		got = append(got, e.Payload.(Notice))
		return nil
	})

	now := time.Date(2025, 6, 4, 9, 52, 0, 0, ict)
	w := NewWatcher(&list, bus, ict, nil).WithClock(func() time.Time { return now })

	require.NoError(t, w.Tick(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, "soon", got[0].AppointmentID)
	assert.Equal(t, 8, got[0].MinutesUntil)
	assert.Contains(t, got[0].MeetLink, "https://meet.google.com/")

	now = now.Add(time.Minute)
	require.NoError(t, w.Tick(context.Background()))
	assert.Len(t, got, 1)

	now = time.Date(2025, 6, 4, 10, 50, 0, 0, ict)
	require.NoError(t, w.Tick(context.Background()))
	require.Len(t, got, 2)
	assert.Equal(t, "later", got[1].AppointmentID)
}

func TestStartedSessionsAreNotAnnounced(t *testing.T) {
	list := staticList{confirmedAt("a", 10, 0)}
	bus := events.NewBus()
	var count int
	bus.Subscribe(events.TopicMeetingSoon, func(events.Event) error { count++; return nil })

	now := time.Date(2025, 6, 4, 10, 0, 0, 0, ict)
	w := NewWatcher(&list, bus, ict, nil).WithClock(func() time.Time { return now })
	require.NoError(t, w.Tick(context.Background()))
	assert.Zero(t, count)
	assert.True(t, w.ongoing["a"])

	now = now.Add(time.Hour)
	require.NoError(t, w.Tick(context.Background()))
	assert.False(t, w.ongoing["a"])
}

func TestRescheduledAppointmentIsAnnouncedAgain(t *testing.T) {
	list := staticList{confirmedAt("a", 10, 0)}
	bus := events.NewBus()
	var count int
	bus.Subscribe(events.TopicMeetingSoon, func(events.Event) error { count++; return nil })

	now := time.Date(2025, 6, 4, 9, 55, 0, 0, ict)
	w := NewWatcher(&list, bus, ict, nil).WithClock(func() time.Time { return now })
	require.NoError(t, w.Tick(context.Background()))

	list[0].Time = timeutil.Clock{Hour: 14}
	now = time.Date(2025, 6, 4, 13, 51, 0, 0, ict)
	require.NoError(t, w.Tick(context.Background()))
	assert.Equal(t, 2, count)

	list = staticList{}
	require.NoError(t, w.Tick(context.Background()))
	assert.Empty(t, w.notified)
}
