package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs Reconciler.Sync on a cron schedule. It uses the same
// reconciliation path as the inline triggers; overlapping runs are skipped.
type Scheduler struct {
	rec   *Reconciler
	cron  *cron.Cron
	sched cron.Schedule
	ctx   context.Context
}

// NewScheduler parses spec and prepares a scheduler. Call Run to start it.
func NewScheduler(rec *Reconciler, spec string) (*Scheduler, error) {
	if rec == nil {
		return nil, fmt.Errorf("completion: scheduler: reconciler is required")
	}
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("completion: scheduler: parse %q: %w", spec, err)
	}
	s := &Scheduler{
		rec:   rec,
		sched: sched,
		ctx:   context.Background(),
	}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger()))),
	)
	s.cron.Schedule(sched, cron.FuncJob(func() { s.tick(s.ctx) }))
	return s, nil
}

// Next returns the next fire time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.sched.Next(now)
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// any running sync to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	log.WithField("next", s.Next(time.Now())).Info("completion sync scheduled")
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// tick performs one scheduled sync.
func (s *Scheduler) tick(ctx context.Context) SyncResult {
	res, err := s.rec.Sync(ctx, TriggerSchedule, Filter{})
	if err != nil {
		log.WithError(err).Error("scheduled completion sync failed")
	}
	return res
}
