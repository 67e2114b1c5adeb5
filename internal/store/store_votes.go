package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"encore/internal/competition"
)

// CastVote records one voter's score for one submission in the given round.
// Enforced invariants: the competition must be in the matching open-voting
// status; round-1 voters may only score submissions on their assignment;
// round-2 votes are restricted to finalists; nobody scores their own mix; a
// duplicate (voter, submission, round) is rejected with ErrDuplicateVote.
func (s *Store) CastVote(ctx context.Context, vote competition.Vote) (*competition.Vote, error) {
	comp, err := s.GetCompetition(ctx, vote.CompetitionID)
	if err != nil {
		return nil, err
	}
	switch vote.Round {
	case competition.Round1:
		if comp.Status != competition.StatusRound1Open {
			return nil, fmt.Errorf("%w: round 1 of competition %d is not open (status %s)",
				competition.ErrVotingClosed, comp.ID, comp.Status)
		}
	case competition.Round2:
		if comp.Status != competition.StatusRound2Open {
			return nil, fmt.Errorf("%w: round 2 of competition %d is not open (status %s)",
				competition.ErrVotingClosed, comp.ID, comp.Status)
		}
	default:
		return nil, fmt.Errorf("unknown round %d", vote.Round)
	}

	sub, err := s.GetSubmission(ctx, vote.SubmissionID)
	if err != nil {
		return nil, err
	}
	if sub.CompetitionID != comp.ID {
		return nil, fmt.Errorf("submission %d does not belong to competition %d", sub.ID, comp.ID)
	}
	if sub.UserID == vote.VoterID {
		return nil, fmt.Errorf("voter %d cannot score their own submission", vote.VoterID)
	}
	if !sub.Eligible() {
		return nil, fmt.Errorf("submission %d is disqualified", sub.ID)
	}

	if vote.Round == competition.Round1 {
		assignment, err := s.AssignmentForVoter(ctx, comp.ID, vote.VoterID)
		if err != nil {
			return nil, err
		}
		if !assignment.Contains(sub.ID) {
			return nil, fmt.Errorf("submission %d is not on voter %d's assignment", sub.ID, vote.VoterID)
		}
	} else if !sub.AdvancedToRound2 {
		return nil, fmt.Errorf("submission %d is not a finalist", sub.ID)
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO votes (competition_id, submission_id, voter_id, round, score, comment, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comp.ID, sub.ID, vote.VoterID, int(vote.Round), vote.Score,
		nullableString(vote.Comment), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: voter %d already scored submission %d in round %d",
				competition.ErrDuplicateVote, vote.VoterID, sub.ID, vote.Round)
		}
		return nil, fmt.Errorf("insert vote: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	stored := vote
	stored.ID = id
	return &stored, nil
}

// ListVotes returns all votes of a competition for the given round.
func (s *Store) ListVotes(ctx context.Context, compID int64, round competition.Round) ([]competition.Vote, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, competition_id, submission_id, voter_id, round, score, comment, created_at
         FROM votes WHERE competition_id = ? AND round = ? ORDER BY id`,
		compID, int(round),
	)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []competition.Vote
	for rows.Next() {
		var (
			vote       competition.Vote
			roundInt   int
			comment    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(
			&vote.ID, &vote.CompetitionID, &vote.SubmissionID, &vote.VoterID,
			&roundInt, &vote.Score, &comment, &createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		vote.Round = competition.Round(roundInt)
		vote.Comment = comment.String
		if created, err := parseTimeString(createdRaw); err == nil {
			vote.CreatedAt = created
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}
