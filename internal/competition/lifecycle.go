package competition

import "fmt"

// Trigger names the event that drives a lifecycle transition.
type Trigger string

const (
	// TriggerDeadlineElapsed fires autonomously when a time-bound status's
	// deadline has passed.
	TriggerDeadlineElapsed Trigger = "deadline_elapsed"
	// TriggerTallyComplete fires autonomously once a setup or tallying side
	// effect has completed and been durably persisted.
	TriggerTallyComplete Trigger = "tally_complete"
	// TriggerTieDetected fires autonomously when the round-2 tally finds a
	// true tie for first place, routing to manual winner selection.
	TriggerTieDetected Trigger = "tie_detected"
	// TriggerManualOverride is the external action resolving a competition
	// held in requires_manual_winner.
	TriggerManualOverride Trigger = "manual_override"
	// TriggerCancel is the external administrative cancellation.
	TriggerCancel Trigger = "cancel"
)

type transitionKey struct {
	from    Status
	trigger Trigger
}

var transitions = map[transitionKey]Status{
	{StatusUpcoming, TriggerDeadlineElapsed}:           StatusOpenForSubmissions,
	{StatusOpenForSubmissions, TriggerDeadlineElapsed}: StatusRound1Setup,
	{StatusRound1Setup, TriggerTallyComplete}:          StatusRound1Open,
	{StatusRound1Open, TriggerDeadlineElapsed}:         StatusRound1Tallying,
	{StatusRound1Tallying, TriggerTallyComplete}:       StatusRound2Setup,
	{StatusRound2Setup, TriggerTallyComplete}:          StatusRound2Open,
	{StatusRound2Open, TriggerDeadlineElapsed}:         StatusRound2Tallying,
	{StatusRound2Tallying, TriggerTallyComplete}:       StatusCompleted,
	{StatusRound2Tallying, TriggerTieDetected}:         StatusRequiresManualWinner,
	{StatusRequiresManualWinner, TriggerManualOverride}: StatusCompleted,
	{StatusCompleted, TriggerDeadlineElapsed}:           StatusArchived,
}

// NextState computes the successor status for a (status, trigger) pair. It is
// a pure lookup: invalid pairs return ErrInvalidTransition and nothing is
// mutated. TriggerCancel is legal from every non-terminal status.
func NextState(current Status, trigger Trigger) (Status, error) {
	if _, known := statusSet[current]; !known {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	if trigger == TriggerCancel {
		if current.IsTerminal() {
			return "", fmt.Errorf("%w: cannot cancel terminal status %q", ErrInvalidTransition, current)
		}
		return StatusCancelled, nil
	}
	next, ok := transitions[transitionKey{current, trigger}]
	if !ok {
		return "", fmt.Errorf("%w: no transition from %q on %q", ErrInvalidTransition, current, trigger)
	}
	return next, nil
}

// AutonomousTrigger returns the trigger the scheduler fires for a status it
// drives on its own, or false for statuses that only move by external action.
func AutonomousTrigger(status Status) (Trigger, bool) {
	switch status {
	case StatusUpcoming, StatusOpenForSubmissions, StatusRound1Open, StatusRound2Open, StatusCompleted:
		return TriggerDeadlineElapsed, true
	case StatusRound1Setup, StatusRound1Tallying, StatusRound2Setup, StatusRound2Tallying:
		return TriggerTallyComplete, true
	default:
		return "", false
	}
}
