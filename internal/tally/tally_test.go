package tally_test

import (
	"testing"

	"encore/internal/competition"
	"encore/internal/tally"
)

func sub(id, userID int64) competition.Submission {
	return competition.Submission{ID: id, UserID: userID, Status: competition.SubmissionUnderReview}
}

func vote(subID int64, round competition.Round, score int) competition.Vote {
	return competition.Vote{SubmissionID: subID, Round: round, Score: score}
}

func TestAggregateComputesMean(t *testing.T) {
	subs := []competition.Submission{sub(1, 101)}
	votes := []competition.Vote{
		vote(1, competition.Round1, 70),
		vote(1, competition.Round1, 80),
		vote(1, competition.Round1, 90),
	}

	results := tally.Aggregate(subs, votes, competition.Round1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Score != 80.0 {
		t.Fatalf("mean = %v, want 80.0", results[0].Score)
	}
	if results[0].VoteCount != 3 {
		t.Fatalf("vote count = %d, want 3", results[0].VoteCount)
	}
}

func TestAggregateExcludesZeroVoteSubmissions(t *testing.T) {
	subs := []competition.Submission{sub(1, 101), sub(2, 102)}
	votes := []competition.Vote{vote(1, competition.Round1, 60)}

	results := tally.Aggregate(subs, votes, competition.Round1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].SubmissionID != 1 {
		t.Fatalf("unexpected result for submission %d", results[0].SubmissionID)
	}
}

func TestAggregateFiltersByRound(t *testing.T) {
	subs := []competition.Submission{sub(1, 101)}
	votes := []competition.Vote{
		vote(1, competition.Round1, 100),
		vote(1, competition.Round2, 50),
	}

	results := tally.Aggregate(subs, votes, competition.Round2)
	if len(results) != 1 || results[0].Score != 50.0 {
		t.Fatalf("unexpected round 2 results: %+v", results)
	}
}

func TestAggregateSkipsDisqualified(t *testing.T) {
	disqualified := sub(2, 102)
	disqualified.Status = competition.SubmissionDisqualified
	subs := []competition.Submission{sub(1, 101), disqualified}
	votes := []competition.Vote{
		vote(1, competition.Round1, 90),
		vote(2, competition.Round1, 95),
	}

	results := tally.Aggregate(subs, votes, competition.Round1)
	if len(results) != 1 || results[0].SubmissionID != 1 {
		t.Fatalf("disqualified submission appeared in results: %+v", results)
	}
}

func TestRankSharedRanksSkipFollowing(t *testing.T) {
	results := []tally.Result{
		{SubmissionID: 1, Score: 95},
		{SubmissionID: 2, Score: 90},
		{SubmissionID: 3, Score: 90},
		{SubmissionID: 4, Score: 80},
	}
	ranked := tally.Rank(results)
	want := []int{1, 2, 2, 4}
	for i, res := range ranked {
		if res.Rank != want[i] {
			t.Fatalf("rank[%d] = %d, want %d", i, res.Rank, want[i])
		}
	}
}

func TestSelectFinalistsIncludesBoundaryTies(t *testing.T) {
	results := []tally.Result{
		{SubmissionID: 1, Score: 95},
		{SubmissionID: 2, Score: 90},
		{SubmissionID: 3, Score: 85},
		{SubmissionID: 4, Score: 85},
		{SubmissionID: 5, Score: 70},
	}
	finalists := tally.SelectFinalists(results, 3)
	if len(finalists) != 4 {
		t.Fatalf("got %d finalists, want 4 (boundary tie included)", len(finalists))
	}

	finalists = tally.SelectFinalists(results[:2], 3)
	if len(finalists) != 2 {
		t.Fatalf("got %d finalists from a field of 2, want 2", len(finalists))
	}
}

func TestFirstPlaceTied(t *testing.T) {
	tied := []tally.Result{
		{SubmissionID: 1, Score: 90},
		{SubmissionID: 2, Score: 90},
		{SubmissionID: 3, Score: 80},
	}
	if !tally.FirstPlaceTied(tied) {
		t.Fatal("expected tie for first place")
	}

	clear := []tally.Result{
		{SubmissionID: 1, Score: 91},
		{SubmissionID: 2, Score: 90},
		{SubmissionID: 3, Score: 90},
	}
	if tally.FirstPlaceTied(clear) {
		t.Fatal("second-place tie is not a first-place tie")
	}

	if tally.FirstPlaceTied(clear[:1]) {
		t.Fatal("single result cannot tie")
	}
}

func TestWinnersIncludesRankBoundaryTies(t *testing.T) {
	ranked := tally.Rank([]tally.Result{
		{SubmissionID: 1, Score: 95},
		{SubmissionID: 2, Score: 90},
		{SubmissionID: 3, Score: 85},
		{SubmissionID: 4, Score: 85},
		{SubmissionID: 5, Score: 70},
	})
	winners := tally.Winners(ranked, 3)
	if len(winners) != 4 {
		t.Fatalf("got %d winners, want 4 (tie at third)", len(winners))
	}
	if tally.Winners(ranked, 0) != nil {
		t.Fatal("expected nil winners for n = 0")
	}
}
