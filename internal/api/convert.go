package api

import (
	"time"

	"encore/internal/competition"
	"encore/internal/scheduler"
)

// FromCompetition converts a competition record to its API representation.
func FromCompetition(comp *competition.Competition) Competition {
	if comp == nil {
		return Competition{}
	}
	dto := Competition{
		ID:                 comp.ID,
		PublicID:           comp.PublicID,
		Title:              comp.Title,
		OrganizerID:        comp.OrganizerID,
		Status:             string(comp.Status),
		StatusNote:         comp.StatusNote,
		OpensAt:            formatTime(comp.OpensAt),
		SubmissionDeadline: formatTime(comp.SubmissionDeadline),
		Round1ClosesAt:     formatTime(comp.Round1ClosesAt),
		Round2ClosesAt:     formatTime(comp.Round2ClosesAt),
		CreatedAt:          formatTime(comp.CreatedAt),
		UpdatedAt:          formatTime(comp.UpdatedAt),
	}
	if comp.CompletedAt != nil {
		dto.CompletedAt = formatTime(*comp.CompletedAt)
	}
	if deadline, ok := comp.Deadline(); ok {
		dto.NextDeadline = formatTime(deadline)
	}
	return dto
}

// FromCompetitions converts a slice of competition records into API DTOs.
func FromCompetitions(comps []*competition.Competition) []Competition {
	if len(comps) == 0 {
		return nil
	}
	out := make([]Competition, 0, len(comps))
	for _, comp := range comps {
		out = append(out, FromCompetition(comp))
	}
	return out
}

// FromSubmission converts a submission record. Entrant identity and scores
// are withheld unless revealIdentity is set; it should be set only once the
// competition has published results.
func FromSubmission(sub *competition.Submission, revealIdentity bool) Submission {
	if sub == nil {
		return Submission{}
	}
	dto := Submission{
		ID:       sub.ID,
		PublicID: sub.PublicID,
		Title:    sub.Title,
		Status:   string(sub.Status),
	}
	if revealIdentity {
		dto.UserID = sub.UserID
		dto.Round1Score = sub.Round1Score
		dto.AdvancedToRound2 = sub.AdvancedToRound2
		dto.Round2Score = sub.Round2Score
		dto.FinalRank = sub.FinalRank
	}
	return dto
}

// FromSchedulerStatus converts a scheduler status summary to API payload.
func FromSchedulerStatus(summary scheduler.StatusSummary) SchedulerStatus {
	dto := SchedulerStatus{
		Running:   summary.Running,
		Cycles:    summary.Cycles,
		LastError: summary.LastError,
	}
	if !summary.LastCycle.IsZero() {
		dto.LastCycle = formatTime(summary.LastCycle)
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
