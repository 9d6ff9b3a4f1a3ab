// Package cache persists per-location schedule sets.
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// ErrAbsent is returned by Load when no usable set exists. Corrupt data is
// reported the same way.
var ErrAbsent = errors.New("schedule set absent")

// Store is a durable cache of schedule sets keyed by location.
// Save replaces the whole set atomically.
type Store interface {
	Load(ctx context.Context, key string) (*ScheduleSet, error)
	Save(ctx context.Context, key string, set *ScheduleSet) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backends lists the valid store names.
var Backends = []string{BackendFile, BackendSQLite, BackendRedis}

// Options configures Open.
type Options struct {
	Backend   string
	Dir       string // cache directory; default ~/.cache/salah-times
	RedisAddr string
	Logger    zerolog.Logger
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir, WithLogger(opts.Logger))
	case BackendSQLite:
		dir, err := resolveDir(opts.Dir)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(filepath.Join(dir, "salah-times.db"), WithLogger(opts.Logger))
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, WithLogger(opts.Logger))
	default:
		return nil, fmt.Errorf("unknown store %q (valid: %v)", opts.Backend, Backends)
	}
}

// Check loads key and judges it against now. Any load failure yields Absent
// and a nil set.
func Check(ctx context.Context, s Store, key string, now time.Time) (*ScheduleSet, Verdict) {
	set, err := s.Load(ctx, key)
	if err != nil {
		return nil, Absent
	}
	return set, Staleness(set, now)
}

// Option configures a store.
type Option func(*storeOpts)

type storeOpts struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used to report corrupt entries.
func WithLogger(l zerolog.Logger) Option {
	return func(o *storeOpts) { o.logger = l }
}

func applyOptions(opts []Option) storeOpts {
	o := storeOpts{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid location key %q", key)
	}
	return nil
}
