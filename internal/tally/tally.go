package tally

import (
	"sort"

	"encore/internal/competition"
)

// DefaultFinalistCutoff is the finalist count used when none is configured.
const DefaultFinalistCutoff = 3

// Result is one submission's aggregate standing within a round.
type Result struct {
	SubmissionID int64
	UserID       int64
	Score        float64
	VoteCount    int
	Rank         int
}

// Aggregate computes the arithmetic mean of the received votes for each
// submission in the given round. Submissions with zero votes are excluded
// entirely rather than scored zero. Results are sorted by descending score,
// ties ordered by submission ID for stable output only.
func Aggregate(subs []competition.Submission, votes []competition.Vote, round competition.Round) []Result {
	sums := make(map[int64]float64, len(subs))
	counts := make(map[int64]int, len(subs))
	for _, vote := range votes {
		if vote.Round != round {
			continue
		}
		sums[vote.SubmissionID] += float64(vote.Score)
		counts[vote.SubmissionID]++
	}

	results := make([]Result, 0, len(subs))
	for _, sub := range subs {
		if !sub.Eligible() {
			continue
		}
		count := counts[sub.ID]
		if count == 0 {
			continue
		}
		results = append(results, Result{
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			Score:        sums[sub.ID] / float64(count),
			VoteCount:    count,
		})
	}

	Sort(results)
	return results
}

// Sort orders results descending by score, ties by submission ID for stable
// output. SelectFinalists and Rank require this ordering.
func Sort(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SubmissionID < results[j].SubmissionID
	})
}

// SelectFinalists returns the top cutoff results plus every result tied with
// the boundary score, so a tie at the cutoff never arbitrarily excludes an
// entry. Input must already be sorted descending (as Aggregate returns).
func SelectFinalists(results []Result, cutoff int) []Result {
	if cutoff <= 0 {
		cutoff = DefaultFinalistCutoff
	}
	if len(results) <= cutoff {
		return results
	}
	boundary := results[cutoff-1].Score
	end := cutoff
	for end < len(results) && results[end].Score == boundary {
		end++
	}
	return results[:end]
}

// Rank assigns standard competition ranks to descending-sorted results:
// tied entries share a rank and the following rank skips the tie group, so
// scores [95, 90, 90, 80] rank [1, 2, 2, 4].
func Rank(results []Result) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)
	for i := range ranked {
		if i > 0 && ranked[i].Score == ranked[i-1].Score {
			ranked[i].Rank = ranked[i-1].Rank
			continue
		}
		ranked[i].Rank = i + 1
	}
	return ranked
}

// FirstPlaceTied reports whether the top two results share the winning
// score. Competitions with a true tie for first route to manual winner
// selection instead of guessing intent.
func FirstPlaceTied(results []Result) bool {
	return len(results) >= 2 && results[0].Score == results[1].Score
}

// Winners returns the top n ranked results for display, including every
// entry tied at the nth rank boundary.
func Winners(ranked []Result, n int) []Result {
	if n <= 0 || len(ranked) == 0 {
		return nil
	}
	if len(ranked) <= n {
		return ranked
	}
	end := n
	for end < len(ranked) && ranked[end].Rank == ranked[n-1].Rank {
		end++
	}
	return ranked[:end]
}
