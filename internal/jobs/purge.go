// Package jobs runs periodic maintenance against the reservation ledger.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger is the slice of the ledger the purge job needs.
type Purger interface {
	PurgeCancelled(ctx context.Context, before time.Time) (int, error)
}

// PurgeJob hard-deletes cancelled reservations older than Retention on a
// cron schedule.
type PurgeJob struct {
	Ledger    Purger
	Retention time.Duration
	Log       *slog.Logger
	Now       func() time.Time
}

// NewPurgeJob returns a job with the wall clock.
func NewPurgeJob(l Purger, retention time.Duration, log *slog.Logger) *PurgeJob {
	return &PurgeJob{Ledger: l, Retention: retention, Log: log, Now: time.Now}
}

// Run performs one purge pass and returns how many reservations went.
func (j *PurgeJob) Run(ctx context.Context) (int, error) {
	cutoff := j.Now().UTC().Add(-j.Retention)
	n, err := j.Ledger.PurgeCancelled(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge job: %w", err)
	}
	if n > 0 {
		j.Log.Info("purge job: removed cancelled reservations", "count", n, "cutoff", cutoff)
	} else {
		j.Log.Debug("purge job: nothing to remove", "cutoff", cutoff)
	}
	return n, nil
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// Schedule registers job under spec (standard five-field or a descriptor
// such as @daily) and starts the scheduler.  Overlapping runs are skipped.
func Schedule(spec string, job *PurgeJob, log *slog.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := job.Run(ctx); err != nil {
			log.Error("purge job failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("purge schedule %q: %w", spec, err)
	}
	c.Start()
	log.Info("purge job scheduled", "spec", spec, "retention", job.Retention)
	return &Scheduler{cron: c, log: log}, nil
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("purge job still running at shutdown")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.log.Debug("cron: "+msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"err", err}, kv...)...)
}
