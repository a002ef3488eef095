package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by a Store when the key is absent.
	ErrNotFound = errors.New("session: key not found")
	// ErrMissingUserID means no signed-in user id is cached.
	ErrMissingUserID = errors.New("session: missing user id, sign in again")
	// ErrForbiddenRole rejects accounts that cannot use the consultant portal.
	ErrForbiddenRole = errors.New("session: role is not allowed to use the portal")
)

// Store is the key-value persistence port behind a Session.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options configures Open.
type Options struct {
	Backend string
	// Path is the file or database path for the file and sqlite backends.
	Path string
	// RedisAddr, RedisPassword, RedisDB and Prefix configure the redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
}

// Open builds the Store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendRedis:
		return DialRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.Prefix)
	default:
		return nil, fmt.Errorf("session: unknown backend %q", opts.Backend)
	}
}
