package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"encore/internal/assignment"
	"encore/internal/competition"
	"encore/internal/logging"
	"encore/internal/tally"
)

// sideEffectResult carries what a side effect produced, for the transition
// decision and post-advance notifications.
type sideEffectResult struct {
	// trigger, when set, overrides the status's default autonomous trigger
	// (round-2 tallying fires tie_detected on a first-place tie).
	trigger competition.Trigger
	// skip leaves the competition untouched this cycle without error.
	skip            bool
	submissionCount int
	finalistCount   int
	winnerTitles    []string
}

// applySideEffect performs the durable work a status requires before its
// transition may fire. Every effect is idempotent: a crash between the
// effect and the status write is repaired by re-running the effect, which
// converges on the same persisted state.
func (m *Manager) applySideEffect(ctx context.Context, logger *slog.Logger, comp *competition.Competition) (sideEffectResult, error) {
	switch comp.Status {
	case competition.StatusOpenForSubmissions:
		return m.closeSubmissions(ctx, comp)
	case competition.StatusRound1Setup:
		return m.setupRound1(ctx, logger, comp)
	case competition.StatusRound1Tallying:
		return m.tallyRound1(ctx, comp)
	case competition.StatusRound2Setup:
		return m.setupRound2(ctx, comp)
	case competition.StatusRound2Tallying:
		return m.tallyRound2(ctx, comp)
	case competition.StatusCompleted:
		return m.checkArchiveDue(comp)
	default:
		// Opening statuses carry no side effect; the deadline alone gates
		// the transition.
		return sideEffectResult{}, nil
	}
}

// closeSubmissions verifies the competition can run a round with the entries
// it received. Too few entries holds the competition at the submission
// deadline instead of generating an impossible plan later.
func (m *Manager) closeSubmissions(ctx context.Context, comp *competition.Competition) (sideEffectResult, error) {
	subs, err := m.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return sideEffectResult{}, err
	}
	eligible := 0
	for i := range subs {
		if subs[i].Eligible() {
			eligible++
		}
	}
	if eligible < 2 {
		return sideEffectResult{}, fmt.Errorf("%w: %d eligible entries at submission deadline, need at least 2", competition.ErrInsufficientParticipants, eligible)
	}
	return sideEffectResult{submissionCount: eligible}, nil
}

// setupRound1 generates and persists the anonymized review plan. The shuffle
// seed is the competition's row ID, so a re-run after a crash regenerates an
// identical plan and the store-level existence check makes the write a no-op.
func (m *Manager) setupRound1(ctx context.Context, logger *slog.Logger, comp *competition.Competition) (sideEffectResult, error) {
	subs, err := m.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return sideEffectResult{}, err
	}

	plan, err := assignment.Generate(subs, assignment.Options{
		VotersPerSubmission: m.cfg.Voting.VotersPerSubmission,
		GroupSize:           m.cfg.Voting.GroupSize,
		Seed:                comp.ID,
	})
	if err != nil {
		return sideEffectResult{}, err
	}
	if plan.Capped {
		logger.Warn("reviewer count capped by participant count",
			logging.Int("voters_per_submission", plan.VotersPerSubmission),
			logging.Int("requested", m.cfg.Voting.VotersPerSubmission),
		)
	}

	created, err := m.store.SaveAssignments(ctx, comp.ID, plan.Assignments, plan.GroupBySubmission, false)
	if err != nil {
		return sideEffectResult{}, err
	}
	if !created {
		logger.Debug("assignment plan already persisted, reusing")
	}
	if err := m.store.MarkSubmissionsUnderReview(ctx, comp.ID); err != nil {
		return sideEffectResult{}, err
	}
	return sideEffectResult{}, nil
}

// tallyRound1 aggregates round-1 votes, selects finalists including boundary
// ties, and persists scores and advancement flags in one transaction.
func (m *Manager) tallyRound1(ctx context.Context, comp *competition.Competition) (sideEffectResult, error) {
	subs, err := m.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return sideEffectResult{}, err
	}
	votes, err := m.store.ListVotes(ctx, comp.ID, competition.Round1)
	if err != nil {
		return sideEffectResult{}, err
	}

	results := tally.Aggregate(subs, votes, competition.Round1)
	if len(results) == 0 {
		return sideEffectResult{}, fmt.Errorf("%w: no round 1 votes were cast", competition.ErrInsufficientParticipants)
	}

	finalists := tally.SelectFinalists(results, m.cfg.Voting.FinalistCutoff)
	scores := make(map[int64]float64, len(results))
	for _, res := range results {
		scores[res.SubmissionID] = res.Score
	}
	finalistIDs := make([]int64, 0, len(finalists))
	for _, res := range finalists {
		finalistIDs = append(finalistIDs, res.SubmissionID)
	}
	if err := m.store.SetRound1Results(ctx, comp.ID, scores, finalistIDs); err != nil {
		return sideEffectResult{}, err
	}
	return sideEffectResult{finalistCount: len(finalistIDs)}, nil
}

// setupRound2 confirms the finalist pool before opening the final round.
func (m *Manager) setupRound2(ctx context.Context, comp *competition.Competition) (sideEffectResult, error) {
	finalists, err := m.store.ListFinalists(ctx, comp.ID)
	if err != nil {
		return sideEffectResult{}, err
	}
	if len(finalists) == 0 {
		return sideEffectResult{}, fmt.Errorf("%w: no finalists advanced to round 2", competition.ErrInsufficientParticipants)
	}
	return sideEffectResult{finalistCount: len(finalists)}, nil
}

// tallyRound2 aggregates the final round. A true tie for first place
// persists the scores without ranks and routes the competition to manual
// winner selection; otherwise final ranks are assigned and persisted.
func (m *Manager) tallyRound2(ctx context.Context, comp *competition.Competition) (sideEffectResult, error) {
	finalists, err := m.store.ListFinalists(ctx, comp.ID)
	if err != nil {
		return sideEffectResult{}, err
	}
	votes, err := m.store.ListVotes(ctx, comp.ID, competition.Round2)
	if err != nil {
		return sideEffectResult{}, err
	}

	results := tally.Aggregate(finalists, votes, competition.Round2)
	if len(results) == 0 {
		return sideEffectResult{}, fmt.Errorf("%w: no round 2 votes were cast", competition.ErrInsufficientParticipants)
	}

	scores := make(map[int64]float64, len(results))
	for _, res := range results {
		scores[res.SubmissionID] = res.Score
	}

	if tally.FirstPlaceTied(results) {
		// Scores are published; ranks wait for the organizer's decision.
		if err := m.store.SetFinalResults(ctx, comp.ID, scores, nil); err != nil {
			return sideEffectResult{}, err
		}
		return sideEffectResult{trigger: competition.TriggerTieDetected}, nil
	}

	ranked := tally.Rank(results)
	ranks := make(map[int64]int, len(ranked))
	for _, res := range ranked {
		ranks[res.SubmissionID] = res.Rank
	}
	if err := m.store.SetFinalResults(ctx, comp.ID, scores, ranks); err != nil {
		return sideEffectResult{}, err
	}
	return sideEffectResult{winnerTitles: winnerTitles(finalists, ranked)}, nil
}

// checkArchiveDue gates the completed->archived transition on the configured
// rest period after completion.
func (m *Manager) checkArchiveDue(comp *competition.Competition) (sideEffectResult, error) {
	if comp.CompletedAt == nil {
		return sideEffectResult{skip: true}, nil
	}
	rest := time.Duration(m.cfg.Scheduler.ArchiveAfterDays) * 24 * time.Hour
	if m.clock.Now().Before(comp.CompletedAt.Add(rest)) {
		return sideEffectResult{skip: true}, nil
	}
	return sideEffectResult{}, nil
}

// winnerTitles resolves the podium (top 3 ranks, ties included) to
// submission titles for the completion notification.
func winnerTitles(subs []competition.Submission, ranked []tally.Result) []string {
	titles := make(map[int64]string, len(subs))
	for i := range subs {
		titles[subs[i].ID] = subs[i].Title
	}
	var winners []string
	for _, res := range tally.Winners(ranked, 3) {
		winners = append(winners, titles[res.SubmissionID])
	}
	return winners
}
