// Package schedule provides a keyed one-shot job scheduler with
// cancel-and-replace semantics and misfire tolerance.
//
// Each pending job is identified by a key; submitting a key again atomically
// replaces the previous pending job for that key. Jobs execute one at a time
// on a single worker goroutine, in fire order. A job whose fire instant has
// already passed by more than the grace period when it finally gets to run is
// dropped: the next boundary or the daily recomputation corrects the visible
// state, so a stale transition must not fire retroactively.
package schedule

import (
	"sort"
	"sync"
	"time"

	"coverchanger/internal/clock"

	"go.uber.org/zap"
)

// Job describes a pending scheduled job.
type Job struct {
	Key string
	At  time.Time
}

type job struct {
	key   string
	at    time.Time
	run   func()
	timer clock.Timer
}

// Scheduler owns the set of pending one-shot jobs.
type Scheduler struct {
	clk    clock.Clock
	grace  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	stopped bool

	execCh chan *job
	stopCh chan struct{}
}

// NewScheduler creates a scheduler and starts its worker goroutine. grace is
// the misfire tolerance applied to every job.
func NewScheduler(clk clock.Clock, grace time.Duration, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		clk:    clk,
		grace:  grace,
		logger: logger.Named("scheduler"),
		jobs:   make(map[string]*job),
		execCh: make(chan *job, 16),
		stopCh: make(chan struct{}),
	}
	go s.worker()
	return s
}

// Submit schedules run to execute at the given instant under the given key,
// replacing any pending job with the same key. Submitting an instant that is
// already in the past fires the job immediately, subject to the usual grace
// check at execution time.
func (s *Scheduler) Submit(key string, at time.Time, run func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if old, ok := s.jobs[key]; ok {
		old.timer.Stop()
		s.logger.Debug("Replacing pending job",
			zap.String("key", key),
			zap.Time("old", old.at),
			zap.Time("new", at))
	}

	j := &job{key: key, at: at, run: run}
	delay := at.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	j.timer = s.clk.AfterFunc(delay, func() { s.fire(j) })
	s.jobs[key] = j
	s.mu.Unlock()

	s.logger.Info("Job scheduled",
		zap.String("key", key),
		zap.Time("fire_at", at))
}

// Cancel removes the pending job for key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[key]; ok {
		j.timer.Stop()
		delete(s.jobs, key)
		s.logger.Info("Job cancelled", zap.String("key", key))
	}
}

// Pending returns a snapshot of the pending jobs sorted by fire instant.
func (s *Scheduler) Pending() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		pending = append(pending, Job{Key: j.key, At: j.at})
	}
	sort.Slice(pending, func(i, k int) bool { return pending[i].At.Before(pending[k].At) })
	return pending
}

// Stop cancels all pending jobs and stops the worker. The scheduler cannot
// be reused afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, j := range s.jobs {
		j.timer.Stop()
	}
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	close(s.stopCh)
	s.logger.Info("Scheduler stopped")
}

// fire runs when a job's timer expires. The job is discarded if it has been
// replaced or cancelled in the meantime, or if it is past its grace period.
func (s *Scheduler) fire(j *job) {
	s.mu.Lock()
	if s.stopped || s.jobs[j.key] != j {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, j.key)
	s.mu.Unlock()

	late := s.clk.Since(j.at)
	if late > s.grace {
		s.logger.Warn("Dropping misfired job",
			zap.String("key", j.key),
			zap.Time("fire_at", j.at),
			zap.Duration("late", late),
			zap.Duration("grace", s.grace))
		return
	}

	select {
	case s.execCh <- j:
	case <-s.stopCh:
	}
}

// worker executes fired jobs one at a time, in fire order.
func (s *Scheduler) worker() {
	for {
		select {
		case <-s.stopCh:
			return
		case j := <-s.execCh:
			s.logger.Info("Job firing",
				zap.String("key", j.key),
				zap.Time("scheduled_for", j.at))
			j.run()
			s.logger.Debug("Job completed", zap.String("key", j.key))
		}
	}
}
