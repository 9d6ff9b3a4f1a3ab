package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule is the refresh cadence when none is configured.
const DefaultSchedule = "@hourly"

// Scheduler runs recurring refresh cycles on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler creates a scheduler evaluating specs in loc.
func NewScheduler(loc *time.Location, logger zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, logger: logger}
}

// ValidateSpec reports whether spec parses.
func ValidateSpec(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// AddFunc registers task under spec.
func (s *Scheduler) AddFunc(spec string, task func()) error {
	if _, err := s.cron.AddFunc(spec, task); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// Schedule registers a non-forced refresh of c under spec. A fresh cache
// makes the cycle a no-op, so retries after a failure happen at this
// cadence and never faster.
func (s *Scheduler) Schedule(ctx context.Context, spec string, c *Coordinator) error {
	return s.AddFunc(spec, func() {
		if err := c.Refresh(ctx, false); err != nil {
			s.logger.Warn().Err(err).Msg("scheduled refresh failed")
		}
	})
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and returns a context done when running jobs end.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
