// Package scheduler runs repeating background tasks such as the dashboard
// refresh and the meeting reminder tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"counselportal/internal/metrics"
)

// ErrBusy is returned by RunNow while the task is already running.
var ErrBusy = errors.New("task is already running")

// Task is one repeating job. A run that is still in progress when the next
// tick arrives causes that tick to be skipped.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the task once as soon as the scheduler starts.
	RunOnStart bool
	Run        func(ctx context.Context) error

	busy atomic.Bool
}

// Scheduler owns the goroutines of its tasks.
type Scheduler struct {
	logger zerolog.Logger
	tasks  map[string]*Task

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(logger *zerolog.Logger) *Scheduler {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "scheduler").Logger()
	}
	return &Scheduler{logger: l, tasks: make(map[string]*Task)}
}

// Add registers a task. Tasks added after Start are not scheduled.
func (s *Scheduler) Add(t *Task) error {
	if t == nil || t.Run == nil || t.Name == "" {
		return errors.New("task needs a name and a run func")
	}
	if t.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", t.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[t.Name]; dup {
		return fmt.Errorf("task %s already registered", t.Name)
	}
	s.tasks[t.Name] = t
	return nil
}

// Start launches one loop per task and returns immediately. The loops end
// when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.logger.Info().Int("tasks", len(tasks)).Msg("scheduler started")
}

// Stop signals every loop and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow runs the named task immediately unless it is already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown task %s", name)
	}
	ran, err := s.execute(ctx, t)
	if !ran {
		return ErrBusy
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, t *Task) {
	defer s.wg.Done()
	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()

	if t.RunOnStart {
		_, _ = s.execute(ctx, t)
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if ran, _ := s.execute(ctx, t); !ran {
				s.logger.Debug().Str("task", t.Name).Msg("previous run still in progress, tick skipped")
			}
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, t *Task) (bool, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	defer t.busy.Store(false)

	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)
	metrics.ObserveRefresh(t.Name, metrics.Outcome(err), elapsed)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("task", t.Name).Dur("elapsed", elapsed).Msg("task failed")
	}
	return true, err
}
