package scheduler

import (
	"context"
	"fmt"

	"encore/internal/competition"
	"encore/internal/logging"
	"encore/internal/tally"
)

// ResolveManualWinner settles a competition parked in requires_manual_winner
// by declaring one of the tied-first submissions the winner. The winner
// takes rank 1; the remaining finalists are ranked by score below it. The
// same at-most-once guarantees as autonomous transitions apply: a second
// resolution attempt fails with competition.ErrConcurrencyConflict.
func (m *Manager) ResolveManualWinner(ctx context.Context, compID, winnerSubmissionID int64) error {
	comp, err := m.store.GetCompetition(ctx, compID)
	if err != nil {
		return err
	}
	if comp.Status != competition.StatusRequiresManualWinner {
		return fmt.Errorf("%w: competition is %q, manual winner selection requires %q",
			competition.ErrInvalidTransition, comp.Status, competition.StatusRequiresManualWinner)
	}

	finalists, err := m.store.ListFinalists(ctx, comp.ID)
	if err != nil {
		return err
	}

	var winner *competition.Submission
	results := make([]tally.Result, 0, len(finalists))
	for i := range finalists {
		sub := &finalists[i]
		if sub.Round2Score == nil {
			continue
		}
		if sub.ID == winnerSubmissionID {
			winner = sub
		}
		results = append(results, tally.Result{
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			Score:        *sub.Round2Score,
		})
	}
	topScore := 0.0
	for i, res := range results {
		if i == 0 || res.Score > topScore {
			topScore = res.Score
		}
	}
	if winner == nil {
		return fmt.Errorf("%w: submission %d is not a scored finalist of competition %d",
			competition.ErrNotFound, winnerSubmissionID, comp.ID)
	}
	if *winner.Round2Score != topScore {
		return fmt.Errorf("%w: submission %d did not tie for first place",
			competition.ErrInvalidTransition, winnerSubmissionID)
	}

	// Winner takes rank 1 outright; everyone else ranks by score starting
	// at 2, ties still sharing a rank. Rank expects descending-score input.
	rest := make([]tally.Result, 0, len(results))
	for _, res := range results {
		if res.SubmissionID != winnerSubmissionID {
			rest = append(rest, res)
		}
	}
	tally.Sort(rest)
	ranked := tally.Rank(rest)
	ranks := map[int64]int{winnerSubmissionID: 1}
	scores := make(map[int64]float64, len(results))
	for _, res := range results {
		scores[res.SubmissionID] = res.Score
	}
	podium := []tally.Result{{SubmissionID: winnerSubmissionID, Score: topScore, Rank: 1}}
	for _, res := range ranked {
		ranks[res.SubmissionID] = res.Rank + 1
		res.Rank++
		podium = append(podium, res)
	}

	if err := m.store.SetFinalResults(ctx, comp.ID, scores, ranks); err != nil {
		return err
	}
	if err := m.store.AdvanceStatus(ctx, comp.ID, competition.StatusRequiresManualWinner, competition.StatusCompleted, "manual_winner_selection"); err != nil {
		return err
	}

	m.logger.Info("manual winner recorded",
		logging.Int64(logging.FieldCompetitionID, comp.ID),
		logging.Int64("winner_submission_id", winnerSubmissionID),
	)
	if err := m.notifier.NotifyWinners(ctx, comp.Title, winnerTitles(finalists, podium)); err != nil {
		m.logger.Warn("winner notification failed", logging.Error(err))
	}
	return nil
}

// Cancel administratively terminates a competition from any non-terminal
// status. The reason is preserved as the status note.
func (m *Manager) Cancel(ctx context.Context, compID int64, reason string) error {
	comp, err := m.store.GetCompetition(ctx, compID)
	if err != nil {
		return err
	}
	next, err := competition.NextState(comp.Status, competition.TriggerCancel)
	if err != nil {
		return err
	}
	if err := m.store.AdvanceStatus(ctx, comp.ID, comp.Status, next, "cancel"); err != nil {
		return err
	}
	if reason != "" {
		if err := m.store.SetStatusNote(ctx, comp.ID, reason); err != nil {
			m.logger.Warn("failed to record cancellation reason", logging.Error(err))
		}
	}
	m.logger.Info("competition cancelled",
		logging.Int64(logging.FieldCompetitionID, comp.ID),
		logging.String("reason", reason),
	)
	return nil
}
