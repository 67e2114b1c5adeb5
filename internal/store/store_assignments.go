package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"encore/internal/competition"
)

// AssignmentsExist reports whether a round-1 plan has already been persisted
// for the competition.
func (s *Store) AssignmentsExist(ctx context.Context, compID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM voting_assignments WHERE competition_id = ?`,
		compID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count assignments: %w", err)
	}
	return count > 0, nil
}

// SaveAssignments persists a round-1 plan all-or-nothing: every assignment
// row plus the submissions' cohort indexes commit in one transaction. When
// the competition already has assignments the call is a no-op unless force
// is set (force wipes and rewrites). Returns whether rows were created.
func (s *Store) SaveAssignments(ctx context.Context, compID int64, assignments []competition.VotingAssignment, groups map[int64]int, force bool) (bool, error) {
	exists, err := s.AssignmentsExist(ctx, compID)
	if err != nil {
		return false, err
	}
	if exists && !force {
		return false, nil
	}

	now := timestamp(time.Now())
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if exists {
			if _, err := tx.ExecContext(ctx, `DELETE FROM voting_assignments WHERE competition_id = ?`, compID); err != nil {
				return fmt.Errorf("clear assignments: %w", err)
			}
		}
		for _, a := range assignments {
			ids, err := json.Marshal(a.SubmissionIDs)
			if err != nil {
				return fmt.Errorf("marshal submission ids: %w", err)
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO voting_assignments (competition_id, voter_id, submission_ids, created_at)
                 VALUES (?, ?, ?, ?)`,
				compID, a.VoterID, string(ids), now,
			); err != nil {
				return fmt.Errorf("insert assignment for voter %d: %w", a.VoterID, err)
			}
		}
		for subID, groupIdx := range groups {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE submissions SET group_idx = ?, updated_at = ? WHERE id = ? AND competition_id = ?`,
				groupIdx, now, subID, compID,
			); err != nil {
				return fmt.Errorf("write cohort for submission %d: %w", subID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAssignments returns the round-1 plan for a competition ordered by
// voter.
func (s *Store) ListAssignments(ctx context.Context, compID int64) ([]competition.VotingAssignment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, competition_id, voter_id, submission_ids, created_at
         FROM voting_assignments WHERE competition_id = ? ORDER BY voter_id`,
		compID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []competition.VotingAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// AssignmentForVoter returns one voter's round-1 assignment, or ErrNotFound
// when the voter has none.
func (s *Store) AssignmentForVoter(ctx context.Context, compID, voterID int64) (*competition.VotingAssignment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, competition_id, voter_id, submission_ids, created_at
         FROM voting_assignments WHERE competition_id = ? AND voter_id = ?`,
		compID, voterID,
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no assignment for voter %d in competition %d: %w", voterID, compID, competition.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAssignment(scanner rowScanner) (*competition.VotingAssignment, error) {
	var (
		id         int64
		compID     int64
		voterID    int64
		idsJSON    string
		createdRaw string
	)
	if err := scanner.Scan(&id, &compID, &voterID, &idsJSON, &createdRaw); err != nil {
		return nil, err
	}
	a := &competition.VotingAssignment{
		ID:            id,
		CompetitionID: compID,
		VoterID:       voterID,
	}
	if err := json.Unmarshal([]byte(idsJSON), &a.SubmissionIDs); err != nil {
		return nil, fmt.Errorf("unmarshal submission ids: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = created
	}
	return a, nil
}
