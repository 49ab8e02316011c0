package jobs

import (
	"context"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/utils"
	"github.com/rs/zerolog"
)

/*
A Job tracks a background task that can be canceled and waited on. The
owner cancels it during shutdown; the job's own goroutine calls Finish once
it has wound down.
*/
type Job struct {
	Name   string
	Ctx    context.Context
	Logger zerolog.Logger
	cancel func()
	done   chan struct{}
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.AttachLoggerToContext(&logger, ctx)
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel asks the job to stop by canceling its context.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Finish marks the job as done. Called by the job itself.
func (j *Job) Finish() *Job {
	close(j.done)
	return j
}

func (j *Job) Finished() <-chan struct{} {
	return j.done
}

/*
Every runs work on a fixed interval until the job is canceled. A failing or
panicking tick is logged and the job waits for the next tick; it never stops
on its own.
*/
func Every(name string, interval time.Duration, work func(ctx context.Context) error) *Job {
	job := New(name)
	go func() {
		defer job.Finish()

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)
					return work(job.Ctx)
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("periodic job failed; will retry next tick")
				}
			case <-job.Canceled():
				return
			}
		}
	}()
	return job
}

// Jobs is a plain slice, so it can be built with slice syntax.
type Jobs []*Job

// CancelAndWait cancels every job and waits up to timeout for them to finish.
// It returns the names of the jobs that did not finish in time.
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	allDoneChan := make(chan struct{})
	for _, job := range jobs {
		job.Cancel()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		for _, job := range jobs {
			<-job.Finished()
		}
		close(allDoneChan)
	}()

	select {
	case <-timer.C:
		return jobs.ListUnfinished()
	case <-allDoneChan:
		return nil
	}
}

func (jobs Jobs) ListUnfinished() []string {
	unfinished := []string{}
	for _, job := range jobs {
		select {
		case <-job.Finished():
			continue
		default:
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
