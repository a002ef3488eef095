package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"counselportal/internal/audit"
	"counselportal/internal/events"
	"counselportal/internal/metrics"
)

var (
	ErrActionInFlight     = errors.New("an action on this appointment is already in progress")
	ErrReasonRequired     = errors.New("a cancellation reason is required")
	ErrUnknownAppointment = errors.New("appointment not in the current list")
)

// Gateway is the REST surface the service needs.
type Gateway interface {
	ConsultantAppointments(ctx context.Context, consultantID string, r *DateRange) ([]Appointment, error)
	StartAppointment(ctx context.Context, id, consultantID string) (Appointment, error)
	EndAppointment(ctx context.Context, id, consultantID, note string) (Appointment, error)
	CancelAppointment(ctx context.Context, id, consultantID, reason string) (Appointment, error)
	UpdateStatus(ctx context.Context, id, consultantID string, status Status) (Appointment, error)
}

// Identity resolves the signed-in consultant.
type Identity interface {
	ConsultantID(ctx context.Context) (string, error)
}

// Service holds the consultant's current appointment list and performs
// actions on it. A failed action never changes the list.
type Service struct {
	gw       Gateway
	identity Identity
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
	bus      *events.Bus
	audit    audit.Recorder

	mu       sync.Mutex
	list     []Appointment
	inflight map[string]Action
}

// NewService creates the action service.
func NewService(gw Gateway, identity Identity, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "appointments").Logger()
	}
	return &Service{
		gw:       gw,
		identity: identity,
		loc:      loc,
		now:      time.Now,
		logger:   l,
		inflight: make(map[string]Action),
	}
}

// WithBus publishes action events on b.
func (s *Service) WithBus(b *events.Bus) *Service {
	s.bus = b
	return s
}

// WithAudit records every action attempt.
func (s *Service) WithAudit(r audit.Recorder) *Service {
	s.audit = r
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Location used to combine dates and times.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Load fetches the consultant's appointments for r (nil for all) and replaces the list.
func (s *Service) Load(ctx context.Context, r *DateRange) ([]Appointment, error) {
	consultantID, err := s.identity.ConsultantID(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.gw.ConsultantAppointments(ctx, consultantID, r)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	s.Replace(list)
	return list, nil
}

// Replace swaps the whole list, as a refresh does.
func (s *Service) Replace(list []Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append([]Appointment(nil), list...)
}

// Appointments returns a copy of the current list.
func (s *Service) Appointments() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Appointment(nil), s.list...)
}

// Get returns one appointment from the list.
func (s *Service) Get(id string) (Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Appointment{}, false
	}
	return s.list[i], true
}

// Eligibility evaluates the appointment against the current time.
func (s *Service) Eligibility(id string) (Eligibility, error) {
	a, ok := s.Get(id)
	if !ok {
		return Eligibility{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	return Evaluate(a, s.now(), s.loc), nil
}

// InFlight reports whether an action on id is pending.
func (s *Service) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[id]
	return busy
}

// Start begins the session and returns the meeting link to open.
func (s *Service) Start(ctx context.Context, id string) (string, error) {
	var link string
	err := s.run(ctx, id, ActionStart, func(ctx context.Context, consultantID string, local Appointment) (func(*Appointment), error) {
		updated, err := s.gw.StartAppointment(ctx, id, consultantID)
		if err != nil {
			return nil, err
		}
		if updated.MeetLink == "" {
			updated.MeetLink = local.MeetLink
		}
		if updated.ID == "" {
			updated.ID = local.ID
		}
		link = MeetLink(updated)
		return func(a *Appointment) {
			if updated.CheckInTime != nil {
				a.CheckInTime = updated.CheckInTime
			}
		}, nil
	})
	if err != nil {
		return "", err
	}
	return link, nil
}

// Complete ends the session with an optional consultant note.
func (s *Service) Complete(ctx context.Context, id, note string) error {
	return s.run(ctx, id, ActionComplete, func(ctx context.Context, consultantID string, _ Appointment) (func(*Appointment), error) {
		if _, err := s.gw.EndAppointment(ctx, id, consultantID, strings.TrimSpace(note)); err != nil {
			return nil, err
		}
		return func(a *Appointment) { a.Status = StatusCompleted }, nil
	})
}

// Cancel cancels the appointment. The reason must be non-empty.
func (s *Service) Cancel(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	return s.run(ctx, id, ActionCancel, func(ctx context.Context, consultantID string, _ Appointment) (func(*Appointment), error) {
		if _, err := s.gw.CancelAppointment(ctx, id, consultantID, reason); err != nil {
			return nil, err
		}
		return func(a *Appointment) { a.Status = StatusCancelled }, nil
	})
}

// SetStatus uses the generic status endpoint.
//
// Deprecated: use Start, Complete or Cancel.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	return s.run(ctx, id, ActionStatus, func(ctx context.Context, consultantID string, local Appointment) (func(*Appointment), error) {
		if !CanTransition(local.Status, status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, local.Status, status)
		}
		if _, err := s.gw.UpdateStatus(ctx, id, consultantID, status); err != nil {
			return nil, err
		}
		return func(a *Appointment) { a.Status = status }, nil
	})
}

type actionFunc func(ctx context.Context, consultantID string, local Appointment) (func(*Appointment), error)

func (s *Service) run(ctx context.Context, id string, act Action, call actionFunc) error {
	consultantID, err := s.identity.ConsultantID(ctx)
	if err != nil {
		return err
	}

	local, err := s.acquire(id, act)
	if err != nil {
		metrics.IncAppointmentAction(string(act), "rejected")
		return err
	}
	defer s.release(id)

	log := s.logger.With().Str("action", string(act)).Str("appointment_id", id).Str("consultant_id", consultantID).Logger()

	patch, err := call(ctx, consultantID, local)
	s.record(ctx, act, id, consultantID, err)
	metrics.IncAppointmentAction(string(act), metrics.Outcome(err))
	if err != nil {
		log.Warn().Err(err).Msg("appointment action failed")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		patch(&s.list[i])
	}
	s.mu.Unlock()

	log.Info().Msg("appointment action succeeded")
	s.publish(act, local)
	return nil
}

// acquire validates eligibility and marks id busy. ActionStatus skips the
// time windows and relies on the status machine.
func (s *Service) acquire(id string, act Action) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Appointment{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	if _, busy := s.inflight[id]; busy {
		return Appointment{}, ErrActionInFlight
	}
	a := s.list[i]
	if act != ActionStatus {
		if err := Check(a, act, s.now(), s.loc); err != nil {
			return Appointment{}, err
		}
	}
	s.inflight[id] = act
	return a, nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *Service) indexLocked(id string) int {
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) record(ctx context.Context, act Action, id, consultantID string, actErr error) {
	if s.audit == nil {
		return
	}
	e := audit.Entry{
		At:           s.now(),
		Action:       string(act),
		Target:       id,
		ConsultantID: consultantID,
		Outcome:      metrics.Outcome(actErr),
	}
	if actErr != nil {
		e.Message = actErr.Error()
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn().Err(err).Msg("audit record failed")
	}
}

func (s *Service) publish(act Action, a Appointment) {
	topic := ""
	switch act {
	case ActionStart:
		topic = events.TopicAppointmentStarted
	case ActionComplete:
		topic = events.TopicAppointmentCompleted
	case ActionCancel:
		topic = events.TopicRequestCanceled
	default:
		return
	}
	msg := fmt.Sprintf("%s %s %s", a.CustomerName, a.Date, a.TimeRange())
	if err := s.bus.Publish(events.Event{Type: topic, Message: strings.TrimSpace(msg), Payload: a.ID}); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("event handler failed")
	}
}
