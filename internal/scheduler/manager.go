package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"encore/internal/competition"
	"encore/internal/config"
	"encore/internal/logging"
	"encore/internal/notifications"
	"encore/internal/store"
)

// drivenStatuses is the scan order for one cycle: transient statuses first
// so a competition entering a setup or tallying status is carried forward
// within the same cycle on the next pass.
var drivenStatuses = []competition.Status{
	competition.StatusUpcoming,
	competition.StatusOpenForSubmissions,
	competition.StatusRound1Setup,
	competition.StatusRound1Open,
	competition.StatusRound1Tallying,
	competition.StatusRound2Setup,
	competition.StatusRound2Open,
	competition.StatusRound2Tallying,
	competition.StatusCompleted,
}

// Manager coordinates autonomous competition transitions.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	notifier notifications.Service
	clock    Clock

	pollInterval time.Duration
	retryDelay   time.Duration
	semaphore    chan struct{}

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastCycle time.Time
	cycles    uint64
}

// StatusSummary reports scheduler runtime state for the daemon status API.
type StatusSummary struct {
	Running   bool
	Cycles    uint64
	LastCycle time.Time
	LastError string
}

// NewManager constructs a scheduler with a system clock.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, st, logger, notifications.NewService(cfg), SystemClock())
}

// NewManagerWithOptions constructs a scheduler with explicit collaborators
// (used by tests to inject a fake clock and notifier).
func NewManagerWithOptions(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service, clock Clock) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if clock == nil {
		clock = SystemClock()
	}
	maxConcurrent := cfg.Scheduler.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logging.NewComponentLogger(logger, "scheduler"),
		notifier:     notifier,
		clock:        clock,
		pollInterval: time.Duration(cfg.Scheduler.PollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Scheduler.ErrorRetryInterval) * time.Second,
		semaphore:    make(chan struct{}, maxConcurrent),
	}
}

// Start begins the background polling loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight transition
// attempts to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Status returns runtime state for health reporting.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{
		Running:   m.running,
		Cycles:    m.cycles,
		LastCycle: m.lastCycle,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	return summary
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		if err := m.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
			m.logger.Error("scheduler cycle failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "cycle_failed"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.retryDelay):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.pollInterval):
		}
	}
}

// RunCycle scans every driven status once and processes all due
// competitions, bounded by the configured concurrency ceiling. Exposed so
// tests and the CLI can step the scheduler deterministically.
func (m *Manager) RunCycle(ctx context.Context) error {
	now := m.clock.Now()
	var cycleWG sync.WaitGroup

	for _, status := range drivenStatuses {
		select {
		case <-ctx.Done():
			cycleWG.Wait()
			return ctx.Err()
		default:
		}

		due, err := m.store.ListDue(ctx, status, now)
		if err != nil {
			cycleWG.Wait()
			return err
		}
		for _, comp := range due {
			select {
			case <-ctx.Done():
				cycleWG.Wait()
				return ctx.Err()
			case m.semaphore <- struct{}{}:
			}
			cycleWG.Add(1)
			go func(comp *competition.Competition) {
				defer cycleWG.Done()
				defer func() { <-m.semaphore }()
				m.attempt(ctx, comp)
			}(comp)
		}
		// Transitions within one status finish before the next status scan
		// so a competition advanced into a transient status this cycle is
		// picked up by the following scan.
		cycleWG.Wait()
	}

	m.mu.Lock()
	m.cycles++
	m.lastCycle = now
	m.mu.Unlock()
	return nil
}

// attempt drives one competition across one state boundary. All errors are
// absorbed here: one competition's failure never halts the cycle.
func (m *Manager) attempt(ctx context.Context, comp *competition.Competition) {
	from := comp.Status
	attemptID := uuid.NewString()
	ctx = logging.WithAttempt(ctx, comp.ID, from, attemptID)
	logger := logging.WithContext(ctx, m.logger)

	done, err := m.store.JobSucceeded(ctx, comp.ID, from)
	if err != nil {
		m.handleFailure(ctx, logger, comp, from, err)
		return
	}
	if done {
		// A successful record with the competition still in the from status
		// cannot happen through AdvanceStatus; treat it as already handled.
		logger.Debug("transition already recorded, skipping")
		return
	}

	trigger, ok := competition.AutonomousTrigger(from)
	if !ok {
		logger.Debug("status not scheduler-driven, skipping")
		return
	}

	effect, err := m.applySideEffect(ctx, logger, comp)
	if err != nil {
		m.handleFailure(ctx, logger, comp, from, err)
		return
	}
	if effect.skip {
		return
	}
	if effect.trigger != "" {
		trigger = effect.trigger
	}

	next, err := competition.NextState(from, trigger)
	if err != nil {
		m.handleFailure(ctx, logger, comp, from, err)
		return
	}

	jobName := "advance_from_" + string(from)
	if err := m.store.AdvanceStatus(ctx, comp.ID, from, next, jobName); err != nil {
		m.handleFailure(ctx, logger, comp, from, err)
		return
	}

	logger.Info("competition advanced",
		logging.String("next_status", string(next)),
		logging.String(logging.FieldTrigger, string(trigger)),
		logging.String(logging.FieldEventType, "transition_complete"),
	)
	m.notifyAdvance(ctx, logger, comp, next, effect)
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, comp *competition.Competition, from competition.Status, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return

	case errors.Is(err, competition.ErrConcurrencyConflict):
		// Another worker won this boundary; nothing to repair.
		logger.Debug("transition lost concurrency race", logging.Error(err))

	case competition.Holds(err):
		logger.Warn("competition held in current status",
			logging.Error(err),
			logging.String(logging.FieldEventType, "competition_held"),
		)
		note := err.Error()
		if comp.StatusNote != note {
			if noteErr := m.store.SetStatusNote(ctx, comp.ID, note); noteErr != nil {
				logger.Error("failed to record hold note", logging.Error(noteErr))
			}
			if notifyErr := m.notifier.NotifyCompetitionHeld(ctx, comp.Title, note); notifyErr != nil {
				logger.Warn("hold notification failed", logging.Error(notifyErr))
			}
		}

	case errors.Is(err, competition.ErrInvalidTransition):
		logger.Error("invalid transition, leaving competition untouched",
			logging.Error(err),
			logging.String(logging.FieldEventType, "invalid_transition"),
		)

	default:
		// Transient: retried next cycle, alert past the failure threshold.
		m.setLastError(err)
		logger.Error("transition attempt failed, will retry",
			logging.Error(err),
			logging.String(logging.FieldEventType, "transition_failed"),
		)
		attempts, recordErr := m.store.RecordJobFailure(ctx, "advance_from_"+string(from), comp.ID, from, err)
		if recordErr != nil {
			logger.Error("failed to record job failure", logging.Error(recordErr))
			return
		}
		if attempts >= m.cfg.Scheduler.MaxJobFailures {
			if notifyErr := m.notifier.NotifyError(ctx, err, comp.Title); notifyErr != nil {
				logger.Warn("alert notification failed", logging.Error(notifyErr))
			}
		}
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// notifyAdvance publishes best-effort lifecycle notifications after a
// successful advance. Failures are logged and never propagate.
func (m *Manager) notifyAdvance(ctx context.Context, logger *slog.Logger, comp *competition.Competition, next competition.Status, effect sideEffectResult) {
	var err error
	switch next {
	case competition.StatusRound1Setup:
		err = m.notifier.NotifySubmissionsClosed(ctx, comp.Title, effect.submissionCount)
	case competition.StatusRound1Open:
		err = m.notifier.NotifyRoundOpened(ctx, comp.Title, 1, comp.Round1ClosesAt)
	case competition.StatusRound2Setup:
		err = m.notifier.NotifyFinalistsSelected(ctx, comp.Title, effect.finalistCount)
	case competition.StatusRound2Open:
		err = m.notifier.NotifyRoundOpened(ctx, comp.Title, 2, comp.Round2ClosesAt)
	case competition.StatusRequiresManualWinner:
		err = m.notifier.NotifyTieRequiresResolution(ctx, comp.Title)
	case competition.StatusCompleted:
		err = m.notifier.NotifyWinners(ctx, comp.Title, effect.winnerTitles)
	}
	if err != nil {
		logger.Warn("lifecycle notification failed", logging.Error(err))
	}
}
