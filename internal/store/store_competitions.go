package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"encore/internal/competition"
)

const competitionColumns = "id, public_id, title, organizer_id, status, opens_at, submission_deadline, round1_closes_at, round2_closes_at, completed_at, status_note, created_at, updated_at"

// NewCompetition describes the inputs for creating a competition.
type NewCompetition struct {
	Title              string
	OrganizerID        int64
	OpensAt            time.Time
	SubmissionDeadline time.Time
	Round1ClosesAt     time.Time
	Round2ClosesAt     time.Time
}

// CreateCompetition inserts a competition in the upcoming status.
func (s *Store) CreateCompetition(ctx context.Context, input NewCompetition) (*competition.Competition, error) {
	if input.Title == "" {
		return nil, errors.New("competition title required")
	}
	if !input.OpensAt.Before(input.SubmissionDeadline) ||
		!input.SubmissionDeadline.Before(input.Round1ClosesAt) ||
		!input.Round1ClosesAt.Before(input.Round2ClosesAt) {
		return nil, errors.New("competition deadlines must be strictly ordered")
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO competitions (
            public_id, title, organizer_id, status, opens_at,
            submission_deadline, round1_closes_at, round2_closes_at,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		input.Title,
		input.OrganizerID,
		competition.StatusUpcoming,
		timestamp(input.OpensAt),
		timestamp(input.SubmissionDeadline),
		timestamp(input.Round1ClosesAt),
		timestamp(input.Round2ClosesAt),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert competition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCompetition(ctx, id)
}

// GetCompetition fetches a competition by identifier.
func (s *Store) GetCompetition(ctx context.Context, id int64) (*competition.Competition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE id = ?`, id)
	comp, err := scanCompetition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("competition %d: %w", id, competition.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}
	return comp, nil
}

// GetCompetitionByPublicID fetches a competition by its public UUID.
func (s *Store) GetCompetitionByPublicID(ctx context.Context, publicID string) (*competition.Competition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE public_id = ?`, publicID)
	comp, err := scanCompetition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("competition %s: %w", publicID, competition.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}
	return comp, nil
}

// ListCompetitions returns competitions filtered by optional statuses, oldest
// first.
func (s *Store) ListCompetitions(ctx context.Context, statuses ...competition.Status) ([]*competition.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	defer rows.Close()

	var comps []*competition.Competition
	for rows.Next() {
		comp, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		comps = append(comps, comp)
	}
	return comps, rows.Err()
}

// ListDue returns competitions in the given status whose deadline column has
// elapsed relative to now, oldest first. For transient statuses the deadline
// check is skipped and every competition in the status is due.
func (s *Store) ListDue(ctx context.Context, status competition.Status, now time.Time) ([]*competition.Competition, error) {
	comps, err := s.ListCompetitions(ctx, status)
	if err != nil {
		return nil, err
	}
	if status.IsTransient() {
		return comps, nil
	}

	due := comps[:0]
	for _, comp := range comps {
		deadline, ok := deadlineFor(comp, status)
		if !ok {
			continue
		}
		if !deadline.After(now) {
			due = append(due, comp)
		}
	}
	return due, nil
}

func deadlineFor(comp *competition.Competition, status competition.Status) (time.Time, bool) {
	if status == competition.StatusCompleted {
		if comp.CompletedAt == nil {
			return time.Time{}, false
		}
		return *comp.CompletedAt, true
	}
	return comp.Deadline()
}

// AdvanceStatus moves a competition from one status to another with an
// optimistic expected-previous-value check, recording the successful job
// execution in the same transaction. A concurrent winner makes the loser
// fail with competition.ErrConcurrencyConflict.
func (s *Store) AdvanceStatus(ctx context.Context, id int64, from, to competition.Status, jobName string) error {
	now := time.Now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		completedAt := any(nil)
		if to == competition.StatusCompleted {
			completedAt = timestamp(now)
		}
		res, err := tx.ExecContext(
			ctx,
			`UPDATE competitions
             SET status = ?, status_note = NULL, updated_at = ?,
                 completed_at = COALESCE(?, completed_at)
             WHERE id = ? AND status = ?`,
			to, timestamp(now), completedAt, id, from,
		)
		if err != nil {
			return fmt.Errorf("advance status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var current string
			err := tx.QueryRowContext(ctx, `SELECT status FROM competitions WHERE id = ?`, id).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("competition %d: %w", id, competition.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("read current status: %w", err)
			}
			return fmt.Errorf("%w: competition %d is %s, expected %s",
				competition.ErrConcurrencyConflict, id, current, from)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO job_executions (job_name, competition_id, from_status, outcome, attempts, created_at, updated_at)
             VALUES (?, ?, ?, ?, 1, ?, ?)`,
			jobName, id, from, competition.JobSucceeded, timestamp(now), timestamp(now),
		); err != nil {
			// The partial unique index on succeeded rows fires when another
			// worker recorded success first.
			return fmt.Errorf("%w: record job execution: %v", competition.ErrConcurrencyConflict, err)
		}
		return nil
	})
}

// SetStatusNote attaches an operator-facing note to a held competition.
func (s *Store) SetStatusNote(ctx context.Context, id int64, note string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE competitions SET status_note = ?, updated_at = ? WHERE id = ?`,
		nullableString(note), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set status note: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("competition %d: %w", id, competition.ErrNotFound)
	}
	return nil
}

func scanCompetition(scanner rowScanner) (*competition.Competition, error) {
	var (
		id           int64
		publicID     string
		title        string
		organizerID  int64
		statusStr    string
		opensRaw     string
		deadlineRaw  string
		round1Raw    string
		round2Raw    string
		completedRaw sql.NullString
		note         sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id, &publicID, &title, &organizerID, &statusStr,
		&opensRaw, &deadlineRaw, &round1Raw, &round2Raw,
		&completedRaw, &note, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	comp := &competition.Competition{
		ID:          id,
		PublicID:    publicID,
		Title:       title,
		OrganizerID: organizerID,
		Status:      competition.Status(statusStr),
		StatusNote:  note.String,
		CompletedAt: timePtr(completedRaw),
	}
	var err error
	if comp.OpensAt, err = parseTimeString(opensRaw); err != nil {
		return nil, err
	}
	if comp.SubmissionDeadline, err = parseTimeString(deadlineRaw); err != nil {
		return nil, err
	}
	if comp.Round1ClosesAt, err = parseTimeString(round1Raw); err != nil {
		return nil, err
	}
	if comp.Round2ClosesAt, err = parseTimeString(round2Raw); err != nil {
		return nil, err
	}
	if comp.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, err
	}
	if comp.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		return nil, err
	}
	return comp, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
