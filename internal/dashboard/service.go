package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"counselportal/internal/appointment"
	"counselportal/internal/events"
	"counselportal/internal/metrics"
	"counselportal/internal/timeutil"
)

// ErrNoSnapshot is returned before the first successful refresh.
var ErrNoSnapshot = errors.New("dashboard has not been loaded yet")

// Source is the part of the REST client the dashboard reads.
type Source interface {
	ConsultantAppointments(ctx context.Context, consultantID string, r *appointment.DateRange) ([]appointment.Appointment, error)
	ConsultantHistory(ctx context.Context, consultantID string) ([]appointment.Appointment, error)
	UnassignedAppointments(ctx context.Context) ([]appointment.Appointment, error)
}

// Snapshot is one complete dashboard reading.
type Snapshot struct {
	ConsultantID string                    `json:"consultantId"`
	GeneratedAt  time.Time                 `json:"generatedAt"`
	Today        timeutil.Date             `json:"today"`
	Weekly       [7]int                    `json:"weekly"`
	Monthly      [4]int                    `json:"monthly"`
	Tally        Tally                     `json:"tally"`
	Upcoming     []appointment.Appointment `json:"-"`
	UpcomingIDs  []string                  `json:"upcoming"`
}

// Build computes a snapshot from already fetched lists. appts and history are
// merged by id for the buckets and tally; upcoming reads appts only.
func Build(appts, history []appointment.Appointment, pending int, now time.Time, loc *time.Location) Snapshot {
	today := timeutil.DateOf(now.In(loc))
	all := appointment.Dedupe(appts, history)
	up := Upcoming(appts)
	ids := make([]string, len(up))
	for i, a := range up {
		ids[i] = a.ID
	}
	return Snapshot{
		GeneratedAt: now,
		Today:       today,
		Weekly:      WeeklyCounts(all, today),
		Monthly:     MonthlyCounts(all, today),
		Tally:       CountStatuses(all, pending),
		Upcoming:    up,
		UpcomingIDs: ids,
	}
}

// Service refreshes and holds the latest Snapshot.
type Service struct {
	src      Source
	identity appointment.Identity
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
	bus      *events.Bus

	mu   sync.RWMutex
	snap *Snapshot
}

func NewService(src Source, identity appointment.Identity, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "dashboard").Logger()
	}
	return &Service{src: src, identity: identity, loc: loc, now: time.Now, logger: l}
}

func (s *Service) WithBus(b *events.Bus) *Service {
	s.bus = b
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Refresh fetches the three sources concurrently and replaces the snapshot.
// On any failure the previous snapshot is kept.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := s.refresh(ctx)
	metrics.ObserveRefresh("dashboard", metrics.Outcome(err), time.Since(start))
	if err != nil {
		s.logger.Warn().Err(err).Msg("dashboard refresh failed")
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()

	s.logger.Debug().
		Str("consultant_id", snap.ConsultantID).
		Int("upcoming", len(snap.Upcoming)).
		Msg("dashboard refreshed")
	if s.bus != nil {
		if err := s.bus.Publish(events.Event{Type: events.TopicDashboardRefreshed, Payload: snap.Tally}); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard subscriber failed")
		}
	}
	return snap, nil
}

func (s *Service) refresh(ctx context.Context) (Snapshot, error) {
	consultantID, err := s.identity.ConsultantID(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var appts, history, unassigned []appointment.Appointment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = s.src.ConsultantAppointments(gctx, consultantID, nil)
		if err != nil {
			return fmt.Errorf("appointments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = s.src.ConsultantHistory(gctx, consultantID)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		unassigned, err = s.src.UnassignedAppointments(gctx)
		if err != nil {
			return fmt.Errorf("unassigned: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Build(appts, history, len(unassigned), s.now(), s.loc)
	snap.ConsultantID = consultantID
	return snap, nil
}

// Snapshot returns the latest reading or ErrNoSnapshot.
func (s *Service) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return *s.snap, nil
}

// Run satisfies the scheduler task signature.
func (s *Service) Run(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}
