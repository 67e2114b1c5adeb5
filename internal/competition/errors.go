package competition

import "errors"

// Sentinel errors classifying transition outcomes. The scheduler uses the
// classification to decide between holding a competition, retrying next
// cycle, and alerting.
var (
	// ErrInvalidTransition marks a programming or data error; never retried
	// blindly.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInsufficientParticipants is a business condition: the competition is
	// held in its current status and surfaced to the organizer.
	ErrInsufficientParticipants = errors.New("insufficient participants")
	// ErrConcurrencyConflict means a concurrent writer advanced the
	// competition first; the loser retries on the next cycle.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrDuplicateVote rejects a second vote by the same voter for the same
	// submission within a round.
	ErrDuplicateVote = errors.New("duplicate vote")
	// ErrVotingClosed rejects votes cast outside an open voting round.
	ErrVotingClosed = errors.New("voting closed")
	// ErrNotFound reports a missing competition or submission.
	ErrNotFound = errors.New("not found")
)

// IsTransient reports whether an error should be retried on the next
// scheduler cycle without operator intervention. Everything that is not an
// explicit non-retryable classification is treated as transient, so
// infrastructure failures self-heal.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInsufficientParticipants),
		errors.Is(err, ErrDuplicateVote),
		errors.Is(err, ErrVotingClosed),
		errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

// Holds reports whether the error leaves the competition parked in its
// current status with an operator-facing note rather than retried.
func Holds(err error) bool {
	return errors.Is(err, ErrInsufficientParticipants)
}
