package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/robfig/cron/v3"
)

// SweepReport counts rows removed by one sweep.
type SweepReport struct {
	Challenges     int64
	Sessions       int64
	LinkTokens     int64
	PendingDevices int64
	Accounts       int64
}

// Sweeper deletes rows past their expiry. Correctness never depends on
// it: every read path checks expiry itself.
type Sweeper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	challenges  challenges.Repository
	pendingTTL  time.Duration
	retention   time.Duration
	metrics     metrics.Recorder
	logger      logging.Logger
	now         func() time.Time
}

// NewSweeper builds a sweeper. retention 0 disables account retention.
func NewSweeper(
	db *sql.DB,
	m repomanager.RepositoryManager,
	challengeRepo challenges.Repository,
	pendingTTL, retention time.Duration,
	rec metrics.Recorder,
	logger logging.Logger,
) *Sweeper {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Sweeper{
		db:          db,
		repomanager: m,
		challenges:  challengeRepo,
		pendingTTL:  pendingTTL,
		retention:   retention,
		metrics:     rec,
		logger:      logger.With("module", "sweeper"),
		now:         time.Now,
	}
}

// Sweep runs every cleanup step. A failing step does not stop the
// others; their errors are joined.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	now := s.now()
	var report SweepReport
	var errs []error

	step := func(kind string, dst *int64, fn func() (int64, error)) {
		n, err := fn()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			return
		}
		*dst = n
		s.metrics.Swept(kind, n)
	}

	step("challenges", &report.Challenges, func() (int64, error) {
		return s.challenges.DeleteExpired(ctx, now)
	})
	step("sessions", &report.Sessions, func() (int64, error) {
		return s.repomanager.Sessions(s.db).DeleteExpired(ctx, now)
	})
	step("link_tokens", &report.LinkTokens, func() (int64, error) {
		return s.repomanager.LinkTokens(s.db).DeleteExpired(ctx, now)
	})
	step("pending_devices", &report.PendingDevices, func() (int64, error) {
		return s.repomanager.Devices(s.db).DeletePendingBefore(ctx, now.Add(-s.pendingTTL))
	})
	if s.retention > 0 {
		step("accounts", &report.Accounts, func() (int64, error) {
			return s.repomanager.Users(s.db).DeleteCreatedBefore(ctx, now.Add(-s.retention))
		})
	}

	return report, errors.Join(errs...)
}

// Start schedules Sweep on spec (standard cron or "@every" syntax) and
// stops the scheduler when ctx is done.
func (s *Sweeper) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		report, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error(ctx, "sweep failed", "error", err)
		}
		s.logger.Debug(ctx, "sweep finished",
			"challenges", report.Challenges,
			"sessions", report.Sessions,
			"link_tokens", report.LinkTokens,
			"pending_devices", report.PendingDevices,
			"accounts", report.Accounts,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
