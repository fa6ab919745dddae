// Package jobs runs periodic cache maintenance for the schedule service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "attendbot/internal/log"
)

// Maintainer is the part of the schedule service the jobs drive.
type Maintainer interface {
	ClearDerivedCaches(ctx context.Context) error
	Prewarm(ctx context.Context) error
}

// Specs holds standard 5-field cron specs. An empty spec disables that job.
type Specs struct {
	Clear   string
	Prewarm string
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	c       *cron.Cron
	m       Maintainer
	timeout time.Duration
	jobs    map[string]cron.EntryID
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) { appLog.Debug("cron: "+msg, kv...) }
func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// New registers the enabled jobs. Each run gets its own context bounded by
// timeout (a minute when zero).
func New(m Maintainer, specs Specs, loc *time.Location, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	logger := cronLogger{}
	s := &Scheduler{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		m:       m,
		timeout: timeout,
		jobs:    make(map[string]cron.EntryID),
	}

	if err := s.add("clear-cache", specs.Clear, m.ClearDerivedCaches); err != nil {
		return nil, err
	}
	if err := s.add("prewarm", specs.Prewarm, m.Prewarm); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, fn func(context.Context) error) error {
	if spec == "" {
		return nil
	}
	id, err := s.c.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("jobs: %s spec %q: %w", name, spec, err)
	}
	s.jobs[name] = id
	return nil
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		appLog.Error("job failed", err, "job", name)
		return
	}
	appLog.Info("job done", "job", name, "elapsed", time.Since(start).String())
}

// Jobs lists the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	out := make([]string, 0, len(s.jobs))
	for _, name := range []string{"clear-cache", "prewarm"} {
		if _, ok := s.jobs[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// RunNow runs a registered job synchronously through the cron chain.
func (s *Scheduler) RunNow(name string) error {
	id, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("jobs: unknown job %q", name)
	}
	s.c.Entry(id).WrappedJob.Run()
	return nil
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
