package assignment

import (
	"fmt"
	"math/rand/v2"

	"encore/internal/competition"
)

// DefaultVotersPerSubmission is the reviewer count used when none is
// configured.
const DefaultVotersPerSubmission = 3

// Options controls plan generation.
type Options struct {
	// VotersPerSubmission is k: how many distinct voters score each
	// submission. Capped to participantCount-1 when the field is too large.
	VotersPerSubmission int
	// GroupSize bounds cohort size for large competitions; zero disables
	// grouping. Effective cohorts are never smaller than k+1.
	GroupSize int
	// Seed fixes the shuffle. Derive it from the competition identity so a
	// re-run after a crash reproduces the same plan.
	Seed int64
}

// Plan is the generated review schedule for one competition.
type Plan struct {
	Assignments []competition.VotingAssignment
	// GroupBySubmission maps submission ID to its cohort index.
	GroupBySubmission map[int64]int
	// VotersPerSubmission is the effective k after capping.
	VotersPerSubmission int
	// Capped is set when the requested k exceeded participantCount-1.
	Capped bool
}

// Generate partitions the eligible submissions into cohorts and assigns each
// voter a disjoint ring of peers within their cohort. Disqualified
// submissions are excluded before planning. Returns
// competition.ErrInsufficientParticipants when fewer than two eligible
// submissions exist.
func Generate(subs []competition.Submission, opts Options) (*Plan, error) {
	eligible := make([]competition.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub.Eligible() {
			eligible = append(eligible, sub)
		}
	}
	n := len(eligible)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d eligible submissions, need at least 2", competition.ErrInsufficientParticipants, n)
	}

	k := opts.VotersPerSubmission
	if k <= 0 {
		k = DefaultVotersPerSubmission
	}
	capped := false
	if k > n-1 {
		k = n - 1
		capped = true
	}

	order := shuffled(eligible, opts.Seed)
	groups := partition(order, opts.GroupSize, k)

	plan := &Plan{
		Assignments:         make([]competition.VotingAssignment, 0, n),
		GroupBySubmission:   make(map[int64]int, n),
		VotersPerSubmission: k,
		Capped:              capped,
	}

	for groupIdx, members := range groups {
		m := len(members)
		for _, sub := range members {
			plan.GroupBySubmission[sub.ID] = groupIdx
		}
		// Ring assignment: voter i scores the k submissions after their own
		// position. Every submission receives exactly k voters and offset
		// zero is never included, so nobody scores themselves.
		for i, sub := range members {
			ids := make([]int64, 0, k)
			for d := 1; d <= k; d++ {
				ids = append(ids, members[(i+d)%m].ID)
			}
			plan.Assignments = append(plan.Assignments, competition.VotingAssignment{
				CompetitionID: sub.CompetitionID,
				VoterID:       sub.UserID,
				SubmissionIDs: ids,
			})
		}
	}

	return plan, nil
}

// shuffled returns a fair, seed-deterministic permutation of the
// submissions. The PCG stream decouples the plan from submission insertion
// order.
func shuffled(subs []competition.Submission, seed int64) []competition.Submission {
	order := make([]competition.Submission, len(subs))
	copy(order, subs)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+0x9e3779b97f4a7c15))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// partition chunks the shuffled order into cohorts of roughly groupSize
// members. A zero groupSize disables grouping entirely. Cohorts are kept at
// k+1 members minimum so the ring always has enough peers; when the field is
// too small for two cohorts, everything lands in a single cohort.
func partition(order []competition.Submission, groupSize, k int) [][]competition.Submission {
	n := len(order)
	if groupSize <= 0 {
		return [][]competition.Submission{order}
	}
	minSize := k + 1
	if groupSize < minSize {
		groupSize = minSize
	}
	groupCount := n / groupSize
	if groupCount < 2 {
		return [][]competition.Submission{order}
	}

	groups := make([][]competition.Submission, 0, groupCount)
	base := n / groupCount
	extra := n % groupCount
	start := 0
	for g := 0; g < groupCount; g++ {
		size := base
		if g < extra {
			size++
		}
		groups = append(groups, order[start:start+size])
		start += size
	}
	return groups
}
