package assignment_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"encore/internal/assignment"
	"encore/internal/competition"
)

func makeSubmissions(n int) []competition.Submission {
	subs := make([]competition.Submission, 0, n)
	for i := 0; i < n; i++ {
		subs = append(subs, competition.Submission{
			ID:            int64(i + 1),
			CompetitionID: 7,
			UserID:        int64(100 + i),
			Title:         fmt.Sprintf("mix-%d", i+1),
			Status:        competition.SubmissionSubmitted,
		})
	}
	return subs
}

func TestGenerateEveryVoterScoresKPeers(t *testing.T) {
	subs := makeSubmissions(10)
	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, Seed: 7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if plan.VotersPerSubmission != 3 {
		t.Fatalf("effective k = %d, want 3", plan.VotersPerSubmission)
	}
	if plan.Capped {
		t.Fatal("unexpected capping with 10 participants")
	}
	if len(plan.Assignments) != len(subs) {
		t.Fatalf("got %d assignments, want %d", len(plan.Assignments), len(subs))
	}

	ownSubmission := make(map[int64]int64, len(subs))
	for _, sub := range subs {
		ownSubmission[sub.UserID] = sub.ID
	}

	received := make(map[int64]int, len(subs))
	for _, asg := range plan.Assignments {
		if len(asg.SubmissionIDs) != 3 {
			t.Fatalf("voter %d reviews %d submissions, want 3", asg.VoterID, len(asg.SubmissionIDs))
		}
		seen := make(map[int64]bool, len(asg.SubmissionIDs))
		for _, id := range asg.SubmissionIDs {
			if id == ownSubmission[asg.VoterID] {
				t.Fatalf("voter %d assigned their own submission", asg.VoterID)
			}
			if seen[id] {
				t.Fatalf("voter %d assigned submission %d twice", asg.VoterID, id)
			}
			seen[id] = true
			received[id]++
		}
	}
	for _, sub := range subs {
		if received[sub.ID] != 3 {
			t.Fatalf("submission %d received %d reviewers, want 3", sub.ID, received[sub.ID])
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	subs := makeSubmissions(12)
	first, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed produced different plans")
	}

	other, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, Seed: 43})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reflect.DeepEqual(first.Assignments, other.Assignments) {
		t.Fatal("different seeds produced identical plans")
	}
}

func TestGenerateCapsReviewerCount(t *testing.T) {
	subs := makeSubmissions(3)
	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 5, Seed: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !plan.Capped {
		t.Fatal("expected plan to report capping")
	}
	if plan.VotersPerSubmission != 2 {
		t.Fatalf("effective k = %d, want 2", plan.VotersPerSubmission)
	}
	for _, asg := range plan.Assignments {
		if len(asg.SubmissionIDs) != 2 {
			t.Fatalf("voter %d reviews %d submissions, want 2", asg.VoterID, len(asg.SubmissionIDs))
		}
	}
}

func TestGenerateRejectsTooFewParticipants(t *testing.T) {
	for _, n := range []int{0, 1} {
		if _, err := assignment.Generate(makeSubmissions(n), assignment.Options{Seed: 1}); !errors.Is(err, competition.ErrInsufficientParticipants) {
			t.Fatalf("Generate with %d submissions = %v, want ErrInsufficientParticipants", n, err)
		}
	}
}

func TestGenerateExcludesDisqualified(t *testing.T) {
	subs := makeSubmissions(6)
	subs[2].Status = competition.SubmissionDisqualified

	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 2, Seed: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(plan.Assignments) != 5 {
		t.Fatalf("got %d assignments, want 5", len(plan.Assignments))
	}
	for _, asg := range plan.Assignments {
		if asg.VoterID == subs[2].UserID {
			t.Fatal("disqualified entrant received an assignment")
		}
		for _, id := range asg.SubmissionIDs {
			if id == subs[2].ID {
				t.Fatal("disqualified submission was assigned for review")
			}
		}
	}
	if _, ok := plan.GroupBySubmission[subs[2].ID]; ok {
		t.Fatal("disqualified submission placed in a cohort")
	}
}

func TestGenerateZeroGroupSizeDisablesGrouping(t *testing.T) {
	subs := makeSubmissions(30)
	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, GroupSize: 0, Seed: 11})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	groups := make(map[int]int)
	for _, group := range plan.GroupBySubmission {
		groups[group]++
	}
	if len(groups) != 1 {
		t.Fatalf("got %d cohorts with grouping disabled, want 1", len(groups))
	}
	if groups[0] != len(subs) {
		t.Fatalf("cohort holds %d submissions, want %d", groups[0], len(subs))
	}
}

func TestGeneratePartitionsLargeFields(t *testing.T) {
	subs := makeSubmissions(40)
	plan, err := assignment.Generate(subs, assignment.Options{VotersPerSubmission: 3, GroupSize: 10, Seed: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	groups := make(map[int]int)
	for _, group := range plan.GroupBySubmission {
		groups[group]++
	}
	if len(groups) != 4 {
		t.Fatalf("got %d cohorts, want 4", len(groups))
	}
	for group, size := range groups {
		if size < 4 {
			t.Fatalf("cohort %d has %d members, below k+1", group, size)
		}
	}

	// Voters only ever review within their own cohort.
	ownSubmission := make(map[int64]int64, len(subs))
	for _, sub := range subs {
		ownSubmission[sub.UserID] = sub.ID
	}
	for _, asg := range plan.Assignments {
		home := plan.GroupBySubmission[ownSubmission[asg.VoterID]]
		for _, id := range asg.SubmissionIDs {
			if plan.GroupBySubmission[id] != home {
				t.Fatalf("voter %d assigned submission %d outside cohort %d", asg.VoterID, id, home)
			}
		}
	}
}
