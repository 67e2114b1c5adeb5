package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Competition describes a competition in a transport-friendly format.
type Competition struct {
	ID                 int64  `json:"id"`
	PublicID           string `json:"publicId"`
	Title              string `json:"title"`
	OrganizerID        int64  `json:"organizerId"`
	Status             string `json:"status"`
	StatusNote         string `json:"statusNote,omitempty"`
	OpensAt            string `json:"opensAt"`
	SubmissionDeadline string `json:"submissionDeadline"`
	Round1ClosesAt     string `json:"round1ClosesAt"`
	Round2ClosesAt     string `json:"round2ClosesAt"`
	CompletedAt        string `json:"completedAt,omitempty"`
	NextDeadline       string `json:"nextDeadline,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

// Submission describes one entry. Entrant identity is withheld while voting
// is anonymized; the UserID field is populated only once results publish.
type Submission struct {
	ID               int64    `json:"id"`
	PublicID         string   `json:"publicId"`
	UserID           int64    `json:"userId,omitempty"`
	Title            string   `json:"title"`
	TrackURL         string   `json:"trackUrl,omitempty"`
	Status           string   `json:"status"`
	Round1Score      *float64 `json:"round1Score,omitempty"`
	AdvancedToRound2 bool     `json:"advancedToRound2"`
	Round2Score      *float64 `json:"round2Score,omitempty"`
	FinalRank        *int     `json:"finalRank,omitempty"`
}

// Assignment is the ordered slate of submissions one voter reviews in
// round 1. Submissions are presented without entrant identity.
type Assignment struct {
	CompetitionID int64        `json:"competitionId"`
	VoterID       int64        `json:"voterId"`
	Submissions   []Submission `json:"submissions"`
}

// ResultRow is one line of a published standings table.
type ResultRow struct {
	SubmissionID int64    `json:"submissionId"`
	Title        string   `json:"title"`
	UserID       int64    `json:"userId"`
	Score        *float64 `json:"score,omitempty"`
	Rank         *int     `json:"rank,omitempty"`
	Finalist     bool     `json:"finalist"`
}

// Results is the standings payload for one competition.
type Results struct {
	Competition Competition `json:"competition"`
	Round1      []ResultRow `json:"round1,omitempty"`
	Round2      []ResultRow `json:"round2,omitempty"`
}

// SchedulerStatus summarizes the transition driver's runtime state.
type SchedulerStatus struct {
	Running   bool   `json:"running"`
	Cycles    uint64 `json:"cycles"`
	LastCycle string `json:"lastCycle,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	DatabasePath string          `json:"databasePath"`
	LockFilePath string          `json:"lockFilePath"`
	Scheduler    SchedulerStatus `json:"scheduler"`
}

// CompetitionListResponse wraps a collection of competitions.
type CompetitionListResponse struct {
	Competitions []Competition `json:"competitions"`
}

// CompetitionResponse wraps a single competition with its submissions.
type CompetitionResponse struct {
	Competition Competition  `json:"competition"`
	Submissions []Submission `json:"submissions,omitempty"`
}

// ResolveRequest names the submission declared the winner of a tied final.
type ResolveRequest struct {
	WinnerSubmissionID int64 `json:"winnerSubmissionId"`
}

// CancelRequest carries the administrative cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
