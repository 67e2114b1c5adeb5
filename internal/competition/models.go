package competition

import (
	"strings"
	"time"
)

// Status represents a competition's position in the round lifecycle.
type Status string

const (
	StatusUpcoming             Status = "upcoming"
	StatusOpenForSubmissions   Status = "open_for_submissions"
	StatusRound1Setup          Status = "round1_setup"
	StatusRound1Open           Status = "round1_open"
	StatusRound1Tallying       Status = "round1_tallying"
	StatusRound2Setup          Status = "round2_setup"
	StatusRound2Open           Status = "round2_open"
	StatusRound2Tallying       Status = "round2_tallying"
	StatusRequiresManualWinner Status = "requires_manual_winner"
	StatusCompleted            Status = "completed"
	StatusArchived             Status = "archived"
	StatusCancelled            Status = "cancelled"
)

var allStatuses = []Status{
	StatusUpcoming,
	StatusOpenForSubmissions,
	StatusRound1Setup,
	StatusRound1Open,
	StatusRound1Tallying,
	StatusRound2Setup,
	StatusRound2Open,
	StatusRound2Tallying,
	StatusRequiresManualWinner,
	StatusCompleted,
	StatusArchived,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further autonomous or
// administrative transition.
func (s Status) IsTerminal() bool {
	return s == StatusArchived || s == StatusCancelled
}

// IsTransient reports whether the status is a setup or tallying state that
// the scheduler should advance as soon as its side effect completes, without
// waiting for a deadline.
func (s Status) IsTransient() bool {
	switch s {
	case StatusRound1Setup, StatusRound1Tallying, StatusRound2Setup, StatusRound2Tallying:
		return true
	default:
		return false
	}
}

// Round identifies a voting round.
type Round int

const (
	Round1 Round = 1
	Round2 Round = 2
)

// Competition is a single mix competition moving through the lifecycle.
type Competition struct {
	ID          int64
	PublicID    string
	Title       string
	OrganizerID int64
	Status      Status

	OpensAt            time.Time
	SubmissionDeadline time.Time
	Round1ClosesAt     time.Time
	Round2ClosesAt     time.Time
	CompletedAt        *time.Time

	// StatusNote carries an operator-facing explanation when the scheduler
	// holds a competition in place (e.g. too few participants).
	StatusNote string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deadline returns the timestamp that gates the competition's current
// time-bound status, or false when the status is transient or terminal.
func (c *Competition) Deadline() (time.Time, bool) {
	switch c.Status {
	case StatusUpcoming:
		return c.OpensAt, true
	case StatusOpenForSubmissions:
		return c.SubmissionDeadline, true
	case StatusRound1Open:
		return c.Round1ClosesAt, true
	case StatusRound2Open:
		return c.Round2ClosesAt, true
	default:
		return time.Time{}, false
	}
}

// SubmissionStatus represents the review state of a single submission.
type SubmissionStatus string

const (
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionUnderReview  SubmissionStatus = "under_review"
	SubmissionJudged       SubmissionStatus = "judged"
	SubmissionDisqualified SubmissionStatus = "disqualified"
)

// ParseSubmissionStatus converts a string into a known SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, bool) {
	normalized := SubmissionStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SubmissionSubmitted, SubmissionUnderReview, SubmissionJudged, SubmissionDisqualified:
		return normalized, true
	default:
		return "", false
	}
}

// Submission is one entrant's mix within a competition. A user has at most
// one active submission per competition (enforced by the store).
type Submission struct {
	ID            int64
	PublicID      string
	CompetitionID int64
	UserID        int64
	Title         string
	TrackRef      string
	Status        SubmissionStatus

	// GroupIndex is the submission's cohort within the round-1 assignment
	// plan. -1 until a plan has been generated.
	GroupIndex int

	Round1Score      *float64
	AdvancedToRound2 bool
	Round2Score      *float64
	FinalRank        *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligible reports whether the submission participates in voting.
func (s *Submission) Eligible() bool {
	return s.Status != SubmissionDisqualified
}

// VotingAssignment fixes the ordered set of submissions one voter must score
// in round 1. Immutable once created; regeneration is detected and skipped.
type VotingAssignment struct {
	ID            int64
	CompetitionID int64
	VoterID       int64
	SubmissionIDs []int64
	CreatedAt     time.Time
}

// Contains reports whether the assignment includes the given submission.
func (a *VotingAssignment) Contains(submissionID int64) bool {
	for _, id := range a.SubmissionIDs {
		if id == submissionID {
			return true
		}
	}
	return false
}

// Vote is one voter's score for one submission in one round. Votes are
// immutable once cast; resubmission within a round is rejected.
type Vote struct {
	ID            int64
	CompetitionID int64
	SubmissionID  int64
	VoterID       int64
	Round         Round
	Score         int
	Comment       string
	CreatedAt     time.Time
}

// JobOutcome records how a scheduler transition attempt ended.
type JobOutcome string

const (
	JobSucceeded JobOutcome = "succeeded"
	JobFailed    JobOutcome = "failed"
)

// JobExecutionRecord is the scheduler's idempotency marker: at most one
// succeeded record may exist per (competition, from status) boundary.
type JobExecutionRecord struct {
	ID            int64
	JobName       string
	CompetitionID int64
	FromStatus    Status
	Outcome       JobOutcome
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
