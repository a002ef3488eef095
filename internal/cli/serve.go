package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"counselportal/internal/appointment"
	"counselportal/internal/config"
	"counselportal/internal/dashboard"
	"counselportal/internal/events"
	"counselportal/internal/metrics"
	"counselportal/internal/reminder"
	"counselportal/internal/scheduler"
	"counselportal/internal/tracing"
)

const defaultHealthPort = 8090

type ServeCmd struct {
	Port int `help:"Listen port for health, metrics and snapshot endpoints (overrides config)."`
}

func (c *ServeCmd) Run(app *Context) error {
	cfg := app.Config
	logger := app.Logger.With().Str("component", "serve").Logger()

	shutdown, err := tracing.Setup(app.Ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	u, err := app.consultant()
	if err != nil {
		return err
	}

	appts := app.appointments()
	dash := app.dashboard()
	watcher := reminder.NewWatcher(appts, app.Bus, app.Loc, app.Logger).WithClock(app.now)
	unsubscribe := app.Bus.Subscribe(events.TopicMeetingSoon, func(e events.Event) error {
		ev := logger.Info().Str("notice", e.Message)
		if n, ok := e.Payload.(reminder.Notice); ok {
			ev = ev.Str("appointment_id", n.AppointmentID).Str("meet_link", n.MeetLink)
		}
		ev.Msg("meeting starts soon")
		return nil
	})
	defer unsubscribe()

	c.watchConfig(app, &logger)

	sched := scheduler.New(app.Logger)
	for _, t := range c.tasks(app, appts, dash, watcher) {
		if err := sched.Add(t); err != nil {
			return err
		}
	}

	port := c.Port
	if port == 0 {
		port = cfg.Monitoring.HealthCheckPort
	}
	if port == 0 {
		port = defaultHealthPort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(app, dash, cfg.Monitoring.PrometheusEnabled),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sched.Start(app.Ctx)
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info().Int("port", port).Str("consultant_id", string(u.ID)).Msg("portal service started")

	select {
	case <-app.Ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("portal service stopped")
	return nil
}

// watchConfig applies logging.level changes without a restart. Other
// sections need one.
func (c *ServeCmd) watchConfig(app *Context, logger *zerolog.Logger) {
	path := app.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	err := config.Watch(app.Ctx, path, app.Config.Refresh.Tick, func(next *config.Config) {
		level := SetLogLevel(next.Logging.Level)
		logger.Info().Str("level", level.String()).Msg("config reloaded")
	})
	if err != nil {
		logger.Debug().Err(err).Msg("config file not watched")
	}
}

func (c *ServeCmd) tasks(app *Context, appts *appointment.Service, dash *dashboard.Service, watcher *reminder.Watcher) []*scheduler.Task {
	interval := app.Config.Refresh.DashboardInterval
	return []*scheduler.Task{
		{
			Name:     "session",
			Interval: interval,
			Run: func(ctx context.Context) error {
				ok, err := app.Auth.CheckAndRefreshToken(ctx)
				if err == nil && !ok {
					err = ErrNotSignedIn
				}
				return err
			},
		},
		{Name: "dashboard", Interval: interval, RunOnStart: true, Run: dash.Run},
		{
			Name:       "appointments",
			Interval:   interval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := appts.Load(ctx, nil)
				return err
			},
		},
		{Name: "reminder", Interval: app.Config.Refresh.Tick, Run: watcher.Tick},
	}
}

// NewRouter serves liveness, readiness, the dashboard snapshot and, when
// enabled, Prometheus metrics.
func NewRouter(app *Context, dash *dashboard.Service, withMetrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(app.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), time.Second)
		defer cancel()
		if app.Redis != nil {
			if err := app.Redis.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if _, err := dash.Snapshot(); err != nil {
			http.Error(w, "dashboard not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		snap, err := dash.Snapshot()
		if errors.Is(err, dashboard.ErrNoSnapshot) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
	if withMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}
