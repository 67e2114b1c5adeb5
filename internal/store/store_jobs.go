package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"encore/internal/competition"
)

// JobSucceeded reports whether a successful transition has already been
// recorded for (competition, fromStatus). The scheduler checks this before
// acting so side effects fire at most once per state boundary.
func (s *Store) JobSucceeded(ctx context.Context, compID int64, from competition.Status) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM job_executions
         WHERE competition_id = ? AND from_status = ? AND outcome = ?`,
		compID, from, competition.JobSucceeded,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check job success: %w", err)
	}
	return count > 0, nil
}

// RecordJobFailure upserts the failure tracker for (competition, fromStatus)
// and returns the accumulated attempt count so the scheduler can alert past
// a threshold.
func (s *Store) RecordJobFailure(ctx context.Context, jobName string, compID int64, from competition.Status, cause error) (int, error) {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := timestamp(time.Now())

	attempts := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var current int
		err := tx.QueryRowContext(
			ctx,
			`SELECT id, attempts FROM job_executions
             WHERE competition_id = ? AND from_status = ? AND outcome = ?`,
			compID, from, competition.JobFailed,
		).Scan(&id, &current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO job_executions (job_name, competition_id, from_status, outcome, attempts, last_error, created_at, updated_at)
                 VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
				jobName, compID, from, competition.JobFailed, nullableString(message), now, now,
			); err != nil {
				return fmt.Errorf("insert job failure: %w", err)
			}
			attempts = 1
			return nil
		case err != nil:
			return fmt.Errorf("read job failure: %w", err)
		default:
			attempts = current + 1
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE job_executions SET attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
				attempts, nullableString(message), now, id,
			); err != nil {
				return fmt.Errorf("update job failure: %w", err)
			}
			return nil
		}
	})
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// ListJobRecords returns every job execution record for a competition,
// oldest first. Used by the status API and CLI health output.
func (s *Store) ListJobRecords(ctx context.Context, compID int64) ([]competition.JobExecutionRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_name, competition_id, from_status, outcome, attempts, last_error, created_at, updated_at
         FROM job_executions WHERE competition_id = ? ORDER BY id`,
		compID,
	)
	if err != nil {
		return nil, fmt.Errorf("list job records: %w", err)
	}
	defer rows.Close()

	var records []competition.JobExecutionRecord
	for rows.Next() {
		var (
			rec        competition.JobExecutionRecord
			fromStr    string
			outcomeStr string
			lastErr    sql.NullString
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(
			&rec.ID, &rec.JobName, &rec.CompetitionID, &fromStr, &outcomeStr,
			&rec.Attempts, &lastErr, &createdRaw, &updatedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		rec.FromStatus = competition.Status(fromStr)
		rec.Outcome = competition.JobOutcome(outcomeStr)
		rec.LastError = lastErr.String
		if created, err := parseTimeString(createdRaw); err == nil {
			rec.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			rec.UpdatedAt = updated
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
