// Package service owns the daily phase schedule and drives cover transitions.
//
// On Start it computes today's schedule, reconciles the persisted phase
// against the freshly resolved one (applying the cover exactly once if they
// differ), loads the scheduler with the remaining boundaries for today, and
// installs the nightly recomputation job. The recomputation job re-derives
// the schedule for the new day just after midnight and reschedules itself, so
// the system never needs more than a day of lookahead and self-heals after
// arbitrary downtime.
package service

import (
	"sync"
	"time"

	"coverchanger/internal/clock"
	"coverchanger/internal/phase"
	"coverchanger/internal/schedule"
	"coverchanger/internal/statestore"

	"go.uber.org/zap"
)

// recomputeKey identifies the daily recomputation marker job in the
// scheduler's job table.
const recomputeKey = "recompute"

// Action applies a phase externally. It must be safe to call redundantly and
// must not panic; false means the phase was not applied and must not be
// persisted.
type Action interface {
	Apply(p phase.Phase) bool
}

// Info is the configuration snapshot recorded alongside the persisted state,
// for diagnostics only.
type Info struct {
	PlaylistID   string
	OverrideMode bool
	TimeOffset   time.Duration
}

// Service wires the calculator, scheduler, state store and action together.
// It is constructed once by the entry point and passed by reference to
// whoever needs it; there is no ambient singleton.
type Service struct {
	calc   *phase.Calculator
	sched  *schedule.Scheduler
	store  *statestore.Store
	action Action
	clk    clock.Clock
	info   Info
	logger *zap.Logger

	mu      sync.Mutex
	today   phase.Schedule
	current phase.Phase
	applied bool
}

// New creates the scheduler service.
func New(calc *phase.Calculator, sched *schedule.Scheduler, store *statestore.Store, action Action, clk clock.Clock, info Info, logger *zap.Logger) *Service {
	return &Service{
		calc:   calc,
		sched:  sched,
		store:  store,
		action: action,
		clk:    clk,
		info:   info,
		logger: logger.Named("service"),
	}
}

// Start computes today's schedule, reconciles the current phase, and loads
// the scheduler with the remaining phase boundaries plus the nightly
// recomputation job.
func (s *Service) Start() error {
	now := s.clk.Now()

	s.mu.Lock()
	s.today = s.calc.ScheduleFor(now)

	if rec := s.store.Load(); rec != nil {
		// Parse already validated by the store.
		s.current, _ = phase.Parse(rec.Phase)
		s.applied = true
	}

	s.reconcileLocked(now)
	s.scheduleDayLocked(s.today)
	s.mu.Unlock()

	s.scheduleRecompute(now)

	s.logger.Info("Service started")
	return nil
}

// Stop cancels all pending jobs.
func (s *Service) Stop() {
	s.sched.Stop()
	s.logger.Info("Service stopped")
}

// Reconcile compares the resolved current phase against the last applied one
// and applies the cover once if they differ. Safe to call at any time.
func (s *Service) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked(s.clk.Now())
}

func (s *Service) reconcileLocked(now time.Time) {
	want := s.today.Resolve(now)

	if s.applied && s.current == want {
		s.logger.Info("Phase already current, no change needed",
			zap.String("phase", string(want)))
		return
	}

	s.logger.Info("Reconciling phase",
		zap.String("resolved", string(want)),
		zap.String("persisted", string(s.current)),
		zap.Bool("had_prior_state", s.applied))
	s.applyLocked(want)
}

// applyLocked invokes the action and, on success, advances the in-memory
// phase and persists it. On failure nothing advances, so the same phase is
// retried at the next boundary or reconciliation.
func (s *Service) applyLocked(p phase.Phase) {
	if s.applied && s.current == p {
		s.logger.Debug("Phase unchanged, skipping apply", zap.String("phase", string(p)))
		return
	}

	if !s.action.Apply(p) {
		s.logger.Warn("Phase apply failed, state not advanced",
			zap.String("phase", string(p)))
		return
	}

	s.current = p
	s.applied = true

	rec := statestore.Record{
		Phase:           string(p),
		Timestamp:       s.clk.Now(),
		PlaylistID:      s.info.PlaylistID,
		PhaseTimes:      s.today.Times(),
		OverrideMode:    s.info.OverrideMode,
		TimeOffsetHours: s.info.TimeOffset.Hours(),
	}
	if err := s.store.Save(rec); err != nil {
		// The action already succeeded; the store is only an optimization.
		s.logger.Error("Failed to persist state", zap.Error(err))
	}
}

// scheduleDayLocked submits a job for each phase boundary that is still in
// the future. Boundaries already passed are never fired retroactively; the
// reconciliation pass covers booting mid-phase.
func (s *Service) scheduleDayLocked(sched phase.Schedule) {
	now := s.clk.Now()

	for _, p := range phase.All() {
		at := sched.Start(p)
		if !at.After(now) {
			s.logger.Debug("Skipping past boundary",
				zap.String("phase", string(p)),
				zap.Time("start", at))
			continue
		}

		p := p
		s.sched.Submit(string(p), at, func() { s.onBoundary(p) })
	}
}

// onBoundary runs on the scheduler's worker goroutine at a phase start.
func (s *Service) onBoundary(p phase.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(p)
}

// scheduleRecompute installs the daily marker job at the next local midnight
// plus one minute.
func (s *Service) scheduleRecompute(now time.Time) {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 1, 0, 0, now.Location()).AddDate(0, 0, 1)
	s.sched.Submit(recomputeKey, next, s.recompute)
}

// recompute re-derives the schedule for the day that just started, submits
// its boundaries, and reschedules itself. It only creates future jobs, so it
// is idempotent with respect to any same-day phase job that already fired.
func (s *Service) recompute() {
	now := s.clk.Now()
	s.logger.Info("Recomputing daily schedule",
		zap.String("date", now.Format("2006-01-02")))

	s.mu.Lock()
	s.today = s.calc.ScheduleFor(now)
	s.scheduleDayLocked(s.today)
	s.mu.Unlock()

	s.scheduleRecompute(now)
}

// CurrentPhase returns the last successfully applied phase, if any.
func (s *Service) CurrentPhase() (phase.Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.applied
}

// Schedule returns today's phase schedule.
func (s *Service) Schedule() phase.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today
}

// PendingJobs returns the scheduler's pending jobs sorted by fire instant.
func (s *Service) PendingJobs() []schedule.Job {
	return s.sched.Pending()
}
