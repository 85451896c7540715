package schedule

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/config"
	"github.com/robfig/cron/v3"
)

// Job runs once per firing. An error is logged and the loop keeps going.
type Job func(ctx context.Context, firedAt time.Time) error

// Runner fires a Job on a standard 5-field cron schedule
// (minute hour day-of-month month day-of-week), e.g. "0 9 * * 1-5".
type Runner struct {
	spec  string
	sched cron.Schedule
	loc   *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(spec string, loc *time.Location) (*Runner, error) {
	spec = strings.TrimSpace(spec)
	sched, err := config.ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		spec:  spec,
		sched: sched,
		loc:   loc,
		now:   time.Now,
		after: time.After,
	}, nil
}

// Next reports the first firing strictly after t.
func (r *Runner) Next(t time.Time) time.Time {
	return r.sched.Next(t.In(r.loc))
}

// Run blocks, firing job at every scheduled time until ctx is done.
func (r *Runner) Run(ctx context.Context, job Job) error {
	log.Printf("schedule started cron=%q tz=%s", r.spec, r.loc)
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("schedule stopped: %v", err)
			return err
		}
		now := r.now().In(r.loc)
		next := r.sched.Next(now)
		wait := next.Sub(now)
		log.Printf("next review at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			log.Printf("schedule stopped: %v", ctx.Err())
			return ctx.Err()
		case <-r.after(wait):
		}

		if err := job(ctx, next); err != nil {
			log.Printf("scheduled review error fired=%s: %v", next.Format(time.RFC3339), err)
		}
	}
}
