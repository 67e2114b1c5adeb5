package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"encore/internal/competition"
	"encore/internal/config"
	"encore/internal/media"
	"encore/internal/store"
)

// CompetitionService exposes competition operations returning API DTOs.
// It is shared by the daemon's HTTP handlers and the CLI.
type CompetitionService struct {
	cfg   *config.Config
	store *store.Store
	media media.Service
}

// NewCompetitionService constructs a CompetitionService around the store.
func NewCompetitionService(cfg *config.Config, st *store.Store) *CompetitionService {
	if st == nil {
		return nil
	}
	return &CompetitionService{
		cfg:   cfg,
		store: st,
		media: media.NewService(cfg),
	}
}

// CreateInput carries the fields needed to schedule a new competition.
type CreateInput struct {
	Title              string
	OrganizerID        int64
	OpensAt            time.Time
	SubmissionDeadline time.Time
	Round1ClosesAt     time.Time
	Round2ClosesAt     time.Time
}

// Create schedules a new competition starting in the upcoming status.
func (s *CompetitionService) Create(ctx context.Context, input CreateInput) (*Competition, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("competition service unavailable")
	}
	title := normalizeTitle(input.Title)
	if title == "" {
		return nil, errors.New("competition title is required")
	}
	comp, err := s.store.CreateCompetition(ctx, store.NewCompetition{
		Title:              title,
		OrganizerID:        input.OrganizerID,
		OpensAt:            input.OpensAt,
		SubmissionDeadline: input.SubmissionDeadline,
		Round1ClosesAt:     input.Round1ClosesAt,
		Round2ClosesAt:     input.Round2ClosesAt,
	})
	if err != nil {
		return nil, err
	}
	dto := FromCompetition(comp)
	return &dto, nil
}

// List returns competitions filtered by optional status names.
func (s *CompetitionService) List(ctx context.Context, statusNames ...string) ([]Competition, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	statuses := make([]competition.Status, 0, len(statusNames))
	for _, name := range statusNames {
		status, ok := competition.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		statuses = append(statuses, status)
	}
	comps, err := s.store.ListCompetitions(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromCompetitions(comps), nil
}

// Describe fetches one competition with its submissions. Entrant identity
// and scores are withheld until the competition publishes results.
func (s *CompetitionService) Describe(ctx context.Context, ref string) (*CompetitionResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return nil, err
	}
	reveal := resultsPublished(comp.Status)
	out := make([]Submission, 0, len(subs))
	for i := range subs {
		out = append(out, FromSubmission(&subs[i], reveal))
	}
	return &CompetitionResponse{
		Competition: FromCompetition(comp),
		Submissions: out,
	}, nil
}

// Results returns the published standings for a competition. Until the
// competition completes, only rounds that have already been tallied appear.
func (s *CompetitionService) Results(ctx context.Context, ref string) (*Results, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return nil, err
	}

	// Round-1 standings exist while round 2 is still voting; entrant
	// identity stays withheld until the competition publishes results.
	reveal := resultsPublished(comp.Status)
	results := &Results{Competition: FromCompetition(comp)}
	for i := range subs {
		sub := &subs[i]
		userID := int64(0)
		if reveal {
			userID = sub.UserID
		}
		if sub.Round1Score != nil {
			results.Round1 = append(results.Round1, ResultRow{
				SubmissionID: sub.ID,
				Title:        sub.Title,
				UserID:       userID,
				Score:        sub.Round1Score,
				Finalist:     sub.AdvancedToRound2,
			})
		}
		if sub.Round2Score != nil {
			results.Round2 = append(results.Round2, ResultRow{
				SubmissionID: sub.ID,
				Title:        sub.Title,
				UserID:       userID,
				Score:        sub.Round2Score,
				Rank:         sub.FinalRank,
				Finalist:     true,
			})
		}
	}
	sortRows(results.Round1)
	sortRows(results.Round2)
	return results, nil
}

// Submit enters a track into a competition that is open for submissions.
func (s *CompetitionService) Submit(ctx context.Context, ref string, userID int64, title, trackRef string) (*Submission, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("competition service unavailable")
	}
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	title = normalizeTitle(title)
	if title == "" {
		return nil, errors.New("submission title is required")
	}
	if strings.TrimSpace(trackRef) == "" {
		return nil, errors.New("track reference is required")
	}
	sub, err := s.store.AddSubmission(ctx, comp.ID, userID, title, strings.TrimSpace(trackRef))
	if err != nil {
		return nil, err
	}
	dto := FromSubmission(sub, false)
	return &dto, nil
}

// Vote records one voter's score for a submission in the currently open
// round. Score bounds come from configuration; eligibility and duplicate
// rules are enforced by the store.
func (s *CompetitionService) Vote(ctx context.Context, ref string, voterID, submissionID int64, score int, comment string) error {
	if s == nil || s.store == nil {
		return errors.New("competition service unavailable")
	}
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	var round competition.Round
	switch comp.Status {
	case competition.StatusRound1Open:
		round = competition.Round1
	case competition.StatusRound2Open:
		round = competition.Round2
	default:
		return fmt.Errorf("%w: competition is %q", competition.ErrVotingClosed, comp.Status)
	}
	if score < s.cfg.Voting.MinScore || score > s.cfg.Voting.MaxScore {
		return fmt.Errorf("score %d out of range [%d, %d]", score, s.cfg.Voting.MinScore, s.cfg.Voting.MaxScore)
	}
	_, err = s.store.CastVote(ctx, competition.Vote{
		CompetitionID: comp.ID,
		SubmissionID:  submissionID,
		VoterID:       voterID,
		Round:         round,
		Score:         score,
		Comment:       strings.TrimSpace(comment),
	})
	return err
}

// AssignmentFor returns the anonymized round-1 review slate for one voter,
// with signed track URLs when a media backend is configured.
func (s *CompetitionService) AssignmentFor(ctx context.Context, ref string, voterID int64) (*Assignment, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	asg, err := s.store.AssignmentForVoter(ctx, comp.ID, voterID)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, comp.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*competition.Submission, len(subs))
	for i := range subs {
		byID[subs[i].ID] = &subs[i]
	}

	out := &Assignment{CompetitionID: comp.ID, VoterID: voterID}
	for _, id := range asg.SubmissionIDs {
		sub, ok := byID[id]
		if !ok {
			continue
		}
		dto := FromSubmission(sub, false)
		if url, err := s.media.TrackURL(ctx, sub.TrackRef); err == nil {
			dto.TrackURL = url
		} else if !errors.Is(err, media.ErrNoBackend) {
			return nil, err
		}
		out.Submissions = append(out.Submissions, dto)
	}
	return out, nil
}

// Resolve looks a competition up by row ID or public ID and returns its DTO.
func (s *CompetitionService) Resolve(ctx context.Context, ref string) (*Competition, error) {
	comp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	dto := FromCompetition(comp)
	return &dto, nil
}

func (s *CompetitionService) resolve(ctx context.Context, ref string) (*competition.Competition, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty competition reference", competition.ErrNotFound)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.store.GetCompetition(ctx, id)
	}
	return s.store.GetCompetitionByPublicID(ctx, ref)
}

// resultsPublished reports whether entrant identity and scores may appear in
// responses for a competition in the given status.
func resultsPublished(status competition.Status) bool {
	switch status {
	case competition.StatusRequiresManualWinner, competition.StatusCompleted, competition.StatusArchived:
		return true
	default:
		return false
	}
}

// normalizeTitle collapses whitespace and applies Unicode NFC so equal
// titles compare equal regardless of input composition.
func normalizeTitle(title string) string {
	return norm.NFC.String(strings.Join(strings.Fields(title), " "))
}

func sortRows(rows []ResultRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score == nil || b.Score == nil {
			return b.Score == nil && a.Score != nil
		}
		if *a.Score != *b.Score {
			return *a.Score > *b.Score
		}
		return a.SubmissionID < b.SubmissionID
	})
}
