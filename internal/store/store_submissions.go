package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"encore/internal/competition"
)

const submissionColumns = "id, public_id, competition_id, user_id, title, track_ref, status, group_idx, round1_score, advanced_to_round2, round2_score, final_rank, created_at, updated_at"

// AddSubmission enters a user's mix into a competition. A second submission
// by the same user is rejected by the unique index.
func (s *Store) AddSubmission(ctx context.Context, compID, userID int64, title, trackRef string) (*competition.Submission, error) {
	comp, err := s.GetCompetition(ctx, compID)
	if err != nil {
		return nil, err
	}
	if comp.Status != competition.StatusOpenForSubmissions {
		return nil, fmt.Errorf("competition %d not accepting submissions (status %s)", compID, comp.Status)
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO submissions (
            public_id, competition_id, user_id, title, track_ref, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), compID, userID, title, trackRef,
		competition.SubmissionSubmitted, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("user %d already has a submission in competition %d", userID, compID)
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSubmission(ctx, id)
}

// GetSubmission fetches a submission by identifier.
func (s *Store) GetSubmission(ctx context.Context, id int64) (*competition.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %d: %w", id, competition.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns all submissions of a competition ordered by ID.
func (s *Store) ListSubmissions(ctx context.Context, compID int64) ([]competition.Submission, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE competition_id = ? ORDER BY id`,
		compID,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []competition.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ListFinalists returns the submissions advanced to round 2.
func (s *Store) ListFinalists(ctx context.Context, compID int64) ([]competition.Submission, error) {
	subs, err := s.ListSubmissions(ctx, compID)
	if err != nil {
		return nil, err
	}
	finalists := subs[:0]
	for _, sub := range subs {
		if sub.AdvancedToRound2 {
			finalists = append(finalists, sub)
		}
	}
	return finalists, nil
}

// SetSubmissionStatus updates the review state of one submission.
func (s *Store) SetSubmissionStatus(ctx context.Context, id int64, status competition.SubmissionStatus) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`,
		status, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set submission status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("submission %d: %w", id, competition.ErrNotFound)
	}
	return nil
}

// MarkSubmissionsUnderReview flips every eligible submission of a
// competition into the under-review state when round 1 opens.
func (s *Store) MarkSubmissionsUnderReview(ctx context.Context, compID int64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE submissions SET status = ?, updated_at = ?
         WHERE competition_id = ? AND status = ?`,
		competition.SubmissionUnderReview, timestamp(time.Now()),
		compID, competition.SubmissionSubmitted,
	)
	if err != nil {
		return fmt.Errorf("mark submissions under review: %w", err)
	}
	return nil
}

// SetRound1Results writes round-1 aggregate scores and flags the finalists
// in one transaction. Submissions that received votes move to the judged
// state. Idempotent: re-running with the same inputs converges to the same
// rows.
func (s *Store) SetRound1Results(ctx context.Context, compID int64, scores map[int64]float64, finalistIDs []int64) error {
	finalists := make(map[int64]struct{}, len(finalistIDs))
	for _, id := range finalistIDs {
		finalists[id] = struct{}{}
	}
	now := timestamp(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for subID, score := range scores {
			advanced := 0
			if _, ok := finalists[subID]; ok {
				advanced = 1
			}
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE submissions
                 SET round1_score = ?, advanced_to_round2 = ?, status = ?, updated_at = ?
                 WHERE id = ? AND competition_id = ?`,
				score, advanced, competition.SubmissionJudged, now, subID, compID,
			); err != nil {
				return fmt.Errorf("write round-1 result for submission %d: %w", subID, err)
			}
		}
		return nil
	})
}

// SetFinalResults writes round-2 aggregate scores and final ranks in one
// transaction.
func (s *Store) SetFinalResults(ctx context.Context, compID int64, scores map[int64]float64, ranks map[int64]int) error {
	now := timestamp(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for subID, score := range scores {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE submissions
                 SET round2_score = ?, final_rank = ?, updated_at = ?
                 WHERE id = ? AND competition_id = ?`,
				score, nullableIntFromMap(ranks, subID), now, subID, compID,
			); err != nil {
				return fmt.Errorf("write final result for submission %d: %w", subID, err)
			}
		}
		return nil
	})
}

func nullableIntFromMap(m map[int64]int, key int64) any {
	if v, ok := m[key]; ok {
		return v
	}
	return nil
}

func scanSubmission(scanner rowScanner) (*competition.Submission, error) {
	var (
		id          int64
		publicID    string
		compID      int64
		userID      int64
		title       string
		trackRef    string
		statusStr   string
		groupIdx    int
		round1Score sql.NullFloat64
		advanced    int
		round2Score sql.NullFloat64
		finalRank   sql.NullInt64
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id, &publicID, &compID, &userID, &title, &trackRef, &statusStr,
		&groupIdx, &round1Score, &advanced, &round2Score, &finalRank,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	sub := &competition.Submission{
		ID:               id,
		PublicID:         publicID,
		CompetitionID:    compID,
		UserID:           userID,
		Title:            title,
		TrackRef:         trackRef,
		Status:           competition.SubmissionStatus(statusStr),
		GroupIndex:       groupIdx,
		Round1Score:      floatPtr(round1Score),
		AdvancedToRound2: advanced != 0,
		Round2Score:      floatPtr(round2Score),
		FinalRank:        intPtr(finalRank),
	}
	var err error
	if sub.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, err
	}
	if sub.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		return nil, err
	}
	return sub, nil
}
