// Package cli holds the kong command tree of the portal binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"counselportal/internal/appointment"
	"counselportal/internal/audit"
	"counselportal/internal/config"
	"counselportal/internal/dashboard"
	"counselportal/internal/events"
	"counselportal/internal/portalapi"
	"counselportal/internal/session"
	"counselportal/internal/slots"
)

// ErrNotSignedIn is returned by commands that need a valid session.
var ErrNotSignedIn = errors.New("not signed in, run `portal login`")

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Config file path." type:"path" env:"PORTAL_CONFIG_PATH"`
}

// Context is handed to every command's Run method.
type Context struct {
	Ctx        context.Context
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger
	Loc        *time.Location
	Out        io.Writer

	Bus     *events.Bus
	Store   session.Store
	Session *session.Session
	Client  *portalapi.Client
	Auth    *portalapi.Auth
	Redis   *redis.Client
	Audit   *audit.Trail

	now func() time.Time
}

// NewLogger builds the process logger from the logging section. The level is
// global so a config reload can change it.
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	SetLogLevel(cfg.Logging.Level)
	if cfg.Logging.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLogLevel applies a level name; unknown names mean info.
func SetLogLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

// New wires the session store, API client and audit trail from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Context, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	store, err := session.Open(ctx, session.Options{
		Backend:       cfg.Session.Backend,
		Path:          cfg.Session.Path,
		RedisAddr:     cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Prefix:        cfg.Session.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	bus := events.NewBus()
	sess := session.New(store, bus, logger)

	opts := []portalapi.Option{
		portalapi.WithTimeout(cfg.APITimeout()),
		portalapi.WithLocation(loc),
		portalapi.WithLogger(logger),
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, portalapi.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, portalapi.WithTracing())
	}
	client := portalapi.New(cfg.API.BaseURL, sess, opts...)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	return &Context{
		Ctx:     ctx,
		Config:  cfg,
		Logger:  logger,
		Loc:     loc,
		Out:     os.Stdout,
		Bus:     bus,
		Store:   store,
		Session: sess,
		Client:  client,
		Auth:    portalapi.NewAuth(client, sess),
		Redis:   rdb,
		Audit:   audit.NewTrail(cfg.Audit.Path, logger),
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source of the commands.
func (c *Context) WithClock(now func() time.Time) *Context {
	c.now = now
	return c
}

// Close releases the session store and the cache connection.
func (c *Context) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	return errors.Join(errs...)
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// signedIn validates (and refreshes if needed) the stored tokens.
func (c *Context) signedIn() error {
	ok, err := c.Auth.CheckAndRefreshToken(c.Ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSignedIn
	}
	return nil
}

// consultant checks the session belongs to a consultant. Roles that may not
// use the portal at all are signed out.
func (c *Context) consultant() (*session.UserInfo, error) {
	if err := c.signedIn(); err != nil {
		return nil, err
	}
	u, err := c.Session.RequireRole(c.Ctx, session.RoleConsultant)
	if errors.Is(err, session.ErrForbiddenRole) && !u.CanUsePortal() {
		if clearErr := c.Session.Clear(c.Ctx); clearErr != nil {
			c.Logger.Warn().Err(clearErr).Msg("clear session")
		}
	}
	return u, err
}

func (c *Context) appointments() *appointment.Service {
	return appointment.NewService(c.Client, c.Session, c.Loc, c.Logger).
		WithBus(c.Bus).
		WithAudit(c.Audit).
		WithClock(c.now)
}

func (c *Context) ledger() *slots.Ledger {
	return slots.NewLedger(c.Client, c.Session, c.Logger).
		WithBus(c.Bus).
		WithAudit(c.Audit)
}

func (c *Context) dashboard() *dashboard.Service {
	return dashboard.NewService(c.Client, c.Session, c.Loc, c.Logger).
		WithBus(c.Bus).
		WithClock(c.now)
}

func (c *Context) today() time.Time {
	return c.now().In(c.Loc)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
