package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/dailydigest/internal/digest"
)

// Job runs one edition. Its error is logged, never retried.
type Job func(ctx context.Context, edition string) error

// Scheduler fires the morning and evening editions at fixed local hours.
// A run still in progress when the next one is due causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	job      Job
	logger   *slog.Logger
	editions map[cron.EntryID]string
	ctx      context.Context
}

func NewScheduler(loc *time.Location, morningHour, eveningHour int, job Job, logger *slog.Logger) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		loc:      loc,
		job:      job,
		logger:   logger,
		editions: make(map[cron.EntryID]string, 2),
		ctx:      context.Background(),
	}

	for _, e := range []struct {
		hour    int
		edition string
	}{
		{morningHour, digest.EditionMorning},
		{eveningHour, digest.EditionEvening},
	} {
		id, err := s.cron.AddFunc(fmt.Sprintf("0 %d * * *", e.hour), s.runner(e.edition))
		if err != nil {
			return nil, fmt.Errorf("schedule %s edition: %w", e.edition, err)
		}
		s.editions[id] = e.edition
	}
	return s, nil
}

func (s *Scheduler) runner(edition string) func() {
	return func() {
		s.logger.Info("scheduled run starting", "edition", edition)
		if err := s.job(s.ctx, edition); err != nil {
			s.logger.Error("scheduled run failed", "edition", edition, "error", err)
		}
	}
}

// Next reports the first scheduled run strictly after from.
func (s *Scheduler) Next(from time.Time) (time.Time, string) {
	var (
		best    time.Time
		edition string
	)
	from = from.In(s.loc)
	for _, e := range s.cron.Entries() {
		next := e.Schedule.Next(from)
		if best.IsZero() || next.Before(best) {
			best, edition = next, s.editions[e.ID]
		}
	}
	return best, edition
}

// Start runs jobs in the background with ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	next, edition := s.Next(time.Now())
	s.logger.Info("scheduler started", "next_run", next, "edition", edition)
}

// Stop halts scheduling and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
