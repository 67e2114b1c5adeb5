package testsupport

import (
	"context"
	"testing"
	"time"

	"encore/internal/competition"
	"encore/internal/config"
	"encore/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCompetition creates a competition whose four deadlines fall at the
// given offsets from now. Offsets must be strictly increasing.
func NewCompetition(t testing.TB, st *store.Store, title string, opens, submissionsClose, round1Closes, round2Closes time.Duration) *competition.Competition {
	t.Helper()

	now := time.Now()
	comp, err := st.CreateCompetition(context.Background(), store.NewCompetition{
		Title:              title,
		OrganizerID:        1,
		OpensAt:            now.Add(opens),
		SubmissionDeadline: now.Add(submissionsClose),
		Round1ClosesAt:     now.Add(round1Closes),
		Round2ClosesAt:     now.Add(round2Closes),
	})
	if err != nil {
		t.Fatalf("store.CreateCompetition: %v", err)
	}
	return comp
}

// Advance walks a competition through the given statuses in order,
// recording each hop as a scheduler job would.
func Advance(t testing.TB, st *store.Store, comp *competition.Competition, path ...competition.Status) {
	t.Helper()

	from := comp.Status
	for _, to := range path {
		if err := st.AdvanceStatus(context.Background(), comp.ID, from, to, "test_advance"); err != nil {
			t.Fatalf("advance %s -> %s: %v", from, to, err)
		}
		from = to
	}
	comp.Status = from
}

// AddSubmission enters a track for the given user, failing the test on error.
func AddSubmission(t testing.TB, st *store.Store, compID, userID int64, title string) *competition.Submission {
	t.Helper()

	sub, err := st.AddSubmission(context.Background(), compID, userID, title, "tracks/"+title)
	if err != nil {
		t.Fatalf("store.AddSubmission: %v", err)
	}
	return sub
}

// CastVote records a vote, failing the test on error.
func CastVote(t testing.TB, st *store.Store, compID, submissionID, voterID int64, round competition.Round, score int) {
	t.Helper()

	_, err := st.CastVote(context.Background(), competition.Vote{
		CompetitionID: compID,
		SubmissionID:  submissionID,
		VoterID:       voterID,
		Round:         round,
		Score:         score,
	})
	if err != nil {
		t.Fatalf("store.CastVote: %v", err)
	}
}
