// Package reminder publishes meeting-soon notifications for confirmed
// appointments and notes when a session becomes ongoing.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"counselportal/internal/appointment"
	"counselportal/internal/events"
	"counselportal/internal/metrics"
)

// Lister returns the current appointment list, e.g. appointment.Service.Appointments.
type Lister interface {
	Appointments() []appointment.Appointment
}

// Notice is the payload of a meetingSoon event.
type Notice struct {
	AppointmentID string
	CustomerName  string
	StartsAt      time.Time
	MinutesUntil  int
	MeetLink      string
}

// Watcher is re-evaluated on a short tick. Each appointment produces at most
// one meetingSoon event and one ongoing log line.
type Watcher struct {
	list   Lister
	bus    *events.Bus
	loc    *time.Location
	now    func() time.Time
	lead   time.Duration
	logger zerolog.Logger

	mu       sync.Mutex
	notified map[string]time.Time
	ongoing  map[string]bool
}

func NewWatcher(list Lister, bus *events.Bus, loc *time.Location, logger *zerolog.Logger) *Watcher {
	if loc == nil {
		loc = time.Local
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "reminder").Logger()
	}
	return &Watcher{
		list:     list,
		bus:      bus,
		loc:      loc,
		now:      time.Now,
		lead:     appointment.StartLead,
		logger:   l,
		notified: make(map[string]time.Time),
		ongoing:  make(map[string]bool),
	}
}

func (w *Watcher) WithClock(now func() time.Time) *Watcher {
	w.now = now
	return w
}

// Tick evaluates the list once. It has the scheduler task signature.
func (w *Watcher) Tick(_ context.Context) error {
	now := w.now()
	list := w.list.Appointments()

	w.mu.Lock()
	defer w.mu.Unlock()

	live := make(map[string]struct{}, len(list))
	var soon []Notice
	for _, a := range list {
		if a.IsRegisteredSlot || a.Status != appointment.StatusConfirmed {
			continue
		}
		live[a.ID] = struct{}{}
		start := a.StartsAt(w.loc)

		until := start.Sub(now)
		if until > 0 && until <= w.lead {
			if at, done := w.notified[a.ID]; !done || !at.Equal(start) {
				w.notified[a.ID] = start
				soon = append(soon, Notice{
					AppointmentID: a.ID,
					CustomerName:  a.CustomerName,
					StartsAt:      start,
					MinutesUntil:  appointment.MinutesUntil(start, now),
					MeetLink:      appointment.MeetLink(a),
				})
			}
		}

		isOngoing := appointment.DerivedStatus(a.Status, start, now) == appointment.StatusOngoing
		if isOngoing && !w.ongoing[a.ID] {
			w.logger.Info().Str("appointment_id", a.ID).Time("starts_at", start).Msg("session is ongoing")
		}
		w.ongoing[a.ID] = isOngoing
	}
	for id := range w.notified {
		if _, ok := live[id]; !ok {
			delete(w.notified, id)
		}
	}
	for id := range w.ongoing {
		if _, ok := live[id]; !ok {
			delete(w.ongoing, id)
		}
	}

	var errs []error
	for _, n := range soon {
		metrics.IncMeetingSoon()
		if w.bus == nil {
			continue
		}
		msg := fmt.Sprintf("%s starts in %d min", n.CustomerName, n.MinutesUntil)
		if err := w.bus.Publish(events.Event{Type: events.TopicMeetingSoon, Message: msg, Payload: n}); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("meetingSoon subscribers: %w", errs[0])
	}
	return nil
}
