package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"counselportal/internal/appointment"
	"counselportal/internal/audit"
	"counselportal/internal/events"
	"counselportal/internal/metrics"
	"counselportal/internal/timeutil"
)

var (
	ErrAlreadyRegistered    = errors.New("slot already registered")
	ErrRegistrationInFlight = errors.New("registration for this slot is already in progress")
	ErrNotInCatalog         = errors.New("no such slot in the daily catalog")
	ErrNotWorkday           = errors.New("slots can only be registered Monday to Friday")
)

// Gateway is the REST surface the ledger needs.
type Gateway interface {
	SlotsForDay(ctx context.Context, consultantID string, date timeutil.Date) ([]Slot, error)
	RegisterSlot(ctx context.Context, date timeutil.Date, slot timeutil.TimeSlot) (Slot, error)
}

// Ledger caches the registered slots of the visible week.
type Ledger struct {
	gw       Gateway
	identity appointment.Identity
	logger   zerolog.Logger
	bus      *events.Bus
	audit    audit.Recorder
	now      func() time.Time

	mu       sync.Mutex
	week     timeutil.Week
	slots    []Slot
	inflight map[string]struct{}
}

// NewLedger creates a ledger.
func NewLedger(gw Gateway, identity appointment.Identity, logger *zerolog.Logger) *Ledger {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "slots").Logger()
	}
	return &Ledger{
		gw:       gw,
		identity: identity,
		logger:   l,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// WithBus publishes registration events on b.
func (l *Ledger) WithBus(b *events.Bus) *Ledger {
	l.bus = b
	return l
}

// WithAudit records registration attempts.
func (l *Ledger) WithAudit(r audit.Recorder) *Ledger {
	l.audit = r
	return l
}

// FetchWeek loads Monday-Friday of week concurrently and replaces the cache.
// Any failed day fails the whole fetch and the cache is left as it was.
func (l *Ledger) FetchWeek(ctx context.Context, week timeutil.Week) ([]Slot, error) {
	consultantID, err := l.identity.ConsultantID(ctx)
	if err != nil {
		return nil, err
	}

	days := week.Workdays()
	perDay := make([][]Slot, len(days))

	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		g.Go(func() error {
			got, err := l.gw.SlotsForDay(gctx, consultantID, day)
			if err != nil {
				return fmt.Errorf("slots for %s: %w", day, err)
			}
			perDay[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Warn().Err(err).Str("week", week.Label).Msg("week slot fetch failed")
		return nil, err
	}

	var all []Slot
	for _, s := range perDay {
		all = append(all, s...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if c := all[i].Date.Compare(all[j].Date); c != 0 {
			return c < 0
		}
		return all[i].Start.Before(all[j].Start)
	})

	l.mu.Lock()
	l.week = week
	l.slots = all
	l.mu.Unlock()

	l.logger.Debug().Str("week", week.Label).Int("slots", len(all)).Msg("week slots loaded")
	return append([]Slot(nil), all...), nil
}

// Slots returns the cached slots.
func (l *Ledger) Slots() []Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Slot(nil), l.slots...)
}

// Week returns the week the cache belongs to.
func (l *Ledger) Week() timeutil.Week {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.week
}

// IsRegistered checks the cache.
func (l *Ledger) IsRegistered(date timeutil.Date, hour int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return IsSlotRegistered(date, hour, l.slots)
}

// CanRegister reports why a cell's register control would be disabled, or nil.
func (l *Ledger) CanRegister(date timeutil.Date, hour int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.checkLocked(date, hour)
	return err
}

func (l *Ledger) checkLocked(date timeutil.Date, hour int) (timeutil.TimeSlot, error) {
	slot, ok := timeutil.SlotStartingAt(hour)
	if !ok {
		return timeutil.TimeSlot{}, fmt.Errorf("%w: %02d:00", ErrNotInCatalog, hour)
	}
	if !timeutil.IsWorkday(date.Weekday()) {
		return timeutil.TimeSlot{}, fmt.Errorf("%w: %s is a %s", ErrNotWorkday, date, date.Weekday())
	}
	if IsSlotRegistered(date, hour, l.slots) {
		return timeutil.TimeSlot{}, fmt.Errorf("%w: %s %s", ErrAlreadyRegistered, date, slot.Label())
	}
	if _, busy := l.inflight[cellKey(date, hour)]; busy {
		return timeutil.TimeSlot{}, ErrRegistrationInFlight
	}
	return slot, nil
}

// Register submits a slot and then refetches the slot's week.
func (l *Ledger) Register(ctx context.Context, date timeutil.Date, hour int) (Slot, error) {
	consultantID, err := l.identity.ConsultantID(ctx)
	if err != nil {
		return Slot{}, err
	}

	l.mu.Lock()
	slot, err := l.checkLocked(date, hour)
	if err != nil {
		l.mu.Unlock()
		metrics.IncSlotRegistration("rejected")
		return Slot{}, err
	}
	key := cellKey(date, hour)
	l.inflight[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.inflight, key)
		l.mu.Unlock()
	}()

	log := l.logger.With().Str("consultant_id", consultantID).Str("date", date.String()).Str("slot", slot.Label()).Logger()

	created, err := l.gw.RegisterSlot(ctx, date, slot)
	l.record(ctx, consultantID, date, slot, err)
	metrics.IncSlotRegistration(metrics.Outcome(err))
	if err != nil {
		log.Warn().Err(err).Msg("slot registration failed")
		return Slot{}, err
	}
	log.Info().Msg("slot registered")

	if _, err := l.FetchWeek(ctx, timeutil.WeekOf(date)); err != nil {
		return created, fmt.Errorf("slot registered, refetch failed: %w", err)
	}

	if err := l.bus.Publish(events.Event{Type: events.TopicSlotRegistered, Message: date.String() + " " + slot.Label(), Payload: created.ID}); err != nil {
		log.Warn().Err(err).Msg("event handler failed")
	}
	return created, nil
}

func (l *Ledger) record(ctx context.Context, consultantID string, date timeutil.Date, slot timeutil.TimeSlot, regErr error) {
	if l.audit == nil {
		return
	}
	e := audit.Entry{
		At:           l.now(),
		Action:       "register",
		Target:       date.String() + " " + slot.Start.String(),
		ConsultantID: consultantID,
		Outcome:      metrics.Outcome(regErr),
	}
	if regErr != nil {
		e.Message = regErr.Error()
	}
	if err := l.audit.Record(ctx, e); err != nil {
		l.logger.Warn().Err(err).Msg("audit record failed")
	}
}

func cellKey(date timeutil.Date, hour int) string {
	return fmt.Sprintf("%s|%02d", date.ISO(), hour)
}
