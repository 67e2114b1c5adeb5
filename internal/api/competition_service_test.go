package api_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"encore/internal/api"
	"encore/internal/assignment"
	"encore/internal/competition"
	"encore/internal/config"
	"encore/internal/store"
	"encore/internal/testsupport"
)

func newService(t *testing.T) (*api.CompetitionService, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return api.NewCompetitionService(cfg, st), st, cfg
}

func createInput(title string) api.CreateInput {
	now := time.Now()
	return api.CreateInput{
		Title:              title,
		OrganizerID:        1,
		OpensAt:            now.Add(time.Hour),
		SubmissionDeadline: now.Add(2 * time.Hour),
		Round1ClosesAt:     now.Add(3 * time.Hour),
		Round2ClosesAt:     now.Add(4 * time.Hour),
	}
}

func TestCreateNormalizesTitle(t *testing.T) {
	svc, _, _ := newService(t)

	comp, err := svc.Create(context.Background(), createInput("  Summer   Remix\tBattle "))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if comp.Title != "Summer Remix Battle" {
		t.Fatalf("title = %q, want normalized", comp.Title)
	}
	if comp.Status != string(competition.StatusUpcoming) {
		t.Fatalf("status = %q", comp.Status)
	}

	if _, err := svc.Create(context.Background(), createInput("   ")); err == nil {
		t.Fatal("expected blank title to be rejected")
	}
}

func TestDescribeResolvesByIDAndPublicID(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, createInput("Lookup"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := svc.Describe(ctx, fmt.Sprintf("%d", created.ID))
	if err != nil {
		t.Fatalf("Describe by ID: %v", err)
	}
	byPublic, err := svc.Describe(ctx, created.PublicID)
	if err != nil {
		t.Fatalf("Describe by public ID: %v", err)
	}
	if byID.Competition.ID != byPublic.Competition.ID {
		t.Fatal("lookups disagree")
	}

	if _, err := svc.Describe(ctx, "no-such-competition"); !errors.Is(err, competition.ErrNotFound) {
		t.Fatalf("missing lookup = %v, want ErrNotFound", err)
	}
}

func TestDescribeWithholdsIdentityUntilPublished(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Anonymized", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)
	testsupport.AddSubmission(t, st, comp.ID, 42, "Masked Mix")

	detail, err := svc.Describe(ctx, comp.PublicID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(detail.Submissions) != 1 {
		t.Fatalf("got %d submissions", len(detail.Submissions))
	}
	if detail.Submissions[0].UserID != 0 {
		t.Fatal("entrant identity leaked before publication")
	}

	testsupport.Advance(t, st, comp,
		competition.StatusRound1Setup,
		competition.StatusRound1Open,
		competition.StatusRound1Tallying,
		competition.StatusRound2Setup,
		competition.StatusRound2Open,
		competition.StatusRound2Tallying,
		competition.StatusCompleted,
	)

	detail, err = svc.Describe(ctx, comp.PublicID)
	if err != nil {
		t.Fatalf("Describe after completion: %v", err)
	}
	if detail.Submissions[0].UserID != 42 {
		t.Fatal("entrant identity missing after publication")
	}
}

func TestVoteValidatesScoreBoundsAndStatus(t *testing.T) {
	svc, st, cfg := newService(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Scored", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)
	for i := 0; i < 3; i++ {
		testsupport.AddSubmission(t, st, comp.ID, int64(50+i), fmt.Sprintf("Entry %d", i))
	}
	subs, _ := st.ListSubmissions(ctx, comp.ID)
	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 2, Seed: comp.ID})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := st.SaveAssignments(ctx, comp.ID, plan.Assignments, plan.GroupBySubmission, false); err != nil {
		t.Fatalf("SaveAssignments: %v", err)
	}

	voter := subs[0].UserID
	asg, _ := st.AssignmentForVoter(ctx, comp.ID, voter)
	target := asg.SubmissionIDs[0]

	// Voting against a closed competition is rejected.
	err = svc.Vote(ctx, comp.PublicID, voter, target, 80, "")
	if !errors.Is(err, competition.ErrVotingClosed) {
		t.Fatalf("closed vote = %v, want ErrVotingClosed", err)
	}

	testsupport.Advance(t, st, comp, competition.StatusRound1Setup, competition.StatusRound1Open)

	if err := svc.Vote(ctx, comp.PublicID, voter, target, cfg.Voting.MaxScore+1, ""); err == nil {
		t.Fatal("expected out-of-range score to be rejected")
	}
	if err := svc.Vote(ctx, comp.PublicID, voter, target, 80, "solid low end"); err != nil {
		t.Fatalf("Vote: %v", err)
	}
}

func TestResultsOrderedByScore(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Standings", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)
	a := testsupport.AddSubmission(t, st, comp.ID, 60, "A")
	b := testsupport.AddSubmission(t, st, comp.ID, 61, "B")
	c := testsupport.AddSubmission(t, st, comp.ID, 62, "C")

	if err := st.SetRound1Results(ctx, comp.ID, map[int64]float64{a.ID: 72.5, b.ID: 91.0, c.ID: 85.0}, []int64{b.ID, c.ID}); err != nil {
		t.Fatalf("SetRound1Results: %v", err)
	}

	results, err := svc.Results(ctx, comp.PublicID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results.Round1) != 3 {
		t.Fatalf("got %d round 1 rows", len(results.Round1))
	}
	if results.Round1[0].SubmissionID != b.ID || results.Round1[1].SubmissionID != c.ID {
		t.Fatalf("round 1 rows out of order: %+v", results.Round1)
	}
	if !results.Round1[0].Finalist || results.Round1[2].Finalist {
		t.Fatal("finalist flags wrong")
	}
	if len(results.Round2) != 0 {
		t.Fatal("round 2 rows present before the final tally")
	}
}

func TestResultsWithholdIdentityUntilPublished(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Midway", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)
	a := testsupport.AddSubmission(t, st, comp.ID, 80, "A")
	b := testsupport.AddSubmission(t, st, comp.ID, 81, "B")

	if err := st.SetRound1Results(ctx, comp.ID, map[int64]float64{a.ID: 88.0, b.ID: 77.0}, []int64{a.ID, b.ID}); err != nil {
		t.Fatalf("SetRound1Results: %v", err)
	}
	testsupport.Advance(t, st, comp,
		competition.StatusRound1Setup,
		competition.StatusRound1Open,
		competition.StatusRound1Tallying,
		competition.StatusRound2Setup,
		competition.StatusRound2Open,
	)

	// Round-1 standings are visible during round-2 voting, but entrant
	// identity is not.
	results, err := svc.Results(ctx, comp.PublicID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results.Round1) != 2 {
		t.Fatalf("got %d round 1 rows", len(results.Round1))
	}
	for _, row := range results.Round1 {
		if row.UserID != 0 {
			t.Fatalf("round 1 row for submission %d leaked user %d before publication", row.SubmissionID, row.UserID)
		}
	}

	testsupport.Advance(t, st, comp, competition.StatusRound2Tallying, competition.StatusCompleted)
	results, err = svc.Results(ctx, comp.PublicID)
	if err != nil {
		t.Fatalf("Results after completion: %v", err)
	}
	for _, row := range results.Round1 {
		if row.UserID == 0 {
			t.Fatalf("round 1 row for submission %d missing user after publication", row.SubmissionID)
		}
	}
}

func TestSubmitRequiresTrackAndTitle(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Entries", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)

	if _, err := svc.Submit(ctx, comp.PublicID, 70, "  ", "tracks/x"); err == nil {
		t.Fatal("expected blank title to be rejected")
	}
	if _, err := svc.Submit(ctx, comp.PublicID, 70, "Mix", "  "); err == nil {
		t.Fatal("expected blank track reference to be rejected")
	}

	sub, err := svc.Submit(ctx, comp.PublicID, 70, "  My   Mix ", "tracks/my-mix.flac")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Title != "My Mix" {
		t.Fatalf("title = %q, want normalized", sub.Title)
	}
	if sub.UserID != 0 {
		t.Fatal("submission response leaked entrant identity")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	testsupport.NewCompetition(t, st, "Waiting", time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour)
	open := testsupport.NewCompetition(t, st, "Accepting", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, open, competition.StatusOpenForSubmissions)

	comps, err := svc.List(ctx, "open_for_submissions")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(comps) != 1 || comps[0].ID != open.ID {
		t.Fatalf("unexpected filtered list: %+v", comps)
	}

	if _, err := svc.List(ctx, "bogus"); err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("List with bad status = %v", err)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d competitions, want 2", len(all))
	}
}
