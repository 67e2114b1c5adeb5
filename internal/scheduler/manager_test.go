package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"encore/internal/competition"
	"encore/internal/logging"
	"encore/internal/scheduler"
	"encore/internal/store"
	"encore/internal/testsupport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	events  []string
	winners []string
	holds   []string
}

func (r *recordingNotifier) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func (r *recordingNotifier) NotifySubmissionsClosed(_ context.Context, _ string, _ int) error {
	r.record("submissions_closed")
	return nil
}

func (r *recordingNotifier) NotifyRoundOpened(_ context.Context, _ string, round int, _ time.Time) error {
	if round == 1 {
		r.record("round1_opened")
	} else {
		r.record("round2_opened")
	}
	return nil
}

func (r *recordingNotifier) NotifyFinalistsSelected(_ context.Context, _ string, _ int) error {
	r.record("finalists_selected")
	return nil
}

func (r *recordingNotifier) NotifyWinners(_ context.Context, _ string, winners []string) error {
	r.mu.Lock()
	r.winners = append(r.winners, winners...)
	r.mu.Unlock()
	r.record("winners")
	return nil
}

func (r *recordingNotifier) NotifyTieRequiresResolution(_ context.Context, _ string) error {
	r.record("tie")
	return nil
}

func (r *recordingNotifier) NotifyCompetitionHeld(_ context.Context, _ string, reason string) error {
	r.mu.Lock()
	r.holds = append(r.holds, reason)
	r.mu.Unlock()
	r.record("held")
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, _ error, _ string) error {
	r.record("error")
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func newTestManager(t *testing.T, opts ...testsupport.ConfigOption) (*scheduler.Manager, *store.Store, *fakeClock, *recordingNotifier) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Scheduler.ArchiveAfterDays = 1
	st := testsupport.MustOpenStore(t, cfg)
	clock := newFakeClock()
	notifier := &recordingNotifier{}
	mgr := scheduler.NewManagerWithOptions(cfg, st, logging.NewNop(), notifier, clock)
	return mgr, st, clock, notifier
}

func mustStatus(t *testing.T, st *store.Store, id int64, want competition.Status) {
	t.Helper()
	comp, err := st.GetCompetition(context.Background(), id)
	if err != nil {
		t.Fatalf("GetCompetition: %v", err)
	}
	if comp.Status != want {
		t.Fatalf("status = %s, want %s (note: %q)", comp.Status, want, comp.StatusNote)
	}
}

func runCycle(t *testing.T, mgr *scheduler.Manager) {
	t.Helper()
	if err := mgr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
}

func TestSchedulerDrivesCompetitionToCompletion(t *testing.T) {
	mgr, st, clock, notifier := newTestManager(t, testsupport.WithVoting(3, 0, 3))
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Full Run", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)

	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusOpenForSubmissions)

	entrants := []int64{10, 11, 12, 13, 14}
	for i, user := range entrants {
		testsupport.AddSubmission(t, st, comp.ID, user, []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}[i])
	}

	clock.Advance(90 * time.Minute)
	runCycle(t, mgr)
	// One cycle closes submissions, generates the plan, and opens round 1:
	// transient statuses are carried forward within the cycle.
	mustStatus(t, st, comp.ID, competition.StatusRound1Open)
	if !notifier.has("submissions_closed") || !notifier.has("round1_opened") {
		t.Fatalf("missing lifecycle notifications: %v", notifier.events)
	}

	assignments, err := st.ListAssignments(ctx, comp.ID)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(assignments) != len(entrants) {
		t.Fatalf("got %d assignments, want %d", len(assignments), len(entrants))
	}
	// Every entrant votes their full slate; per-submission means stay
	// distinct so no boundary ties complicate the cutoff.
	for _, asg := range assignments {
		for _, subID := range asg.SubmissionIDs {
			testsupport.CastVote(t, st, comp.ID, subID, asg.VoterID, competition.Round1, 50+int(subID%40))
		}
	}

	clock.Advance(time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusRound2Open)
	if !notifier.has("finalists_selected") || !notifier.has("round2_opened") {
		t.Fatalf("missing round 2 notifications: %v", notifier.events)
	}

	finalists, err := st.ListFinalists(ctx, comp.ID)
	if err != nil {
		t.Fatalf("ListFinalists: %v", err)
	}
	if len(finalists) != 3 {
		t.Fatalf("got %d finalists, want 3", len(finalists))
	}

	for i, finalist := range finalists {
		for _, judge := range []int64{900, 901} {
			testsupport.CastVote(t, st, comp.ID, finalist.ID, judge, competition.Round2, 70+10*i)
		}
	}

	clock.Advance(time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusCompleted)
	if !notifier.has("winners") {
		t.Fatalf("missing winner notification: %v", notifier.events)
	}
	if len(notifier.winners) != 3 {
		t.Fatalf("podium notification lists %d titles, want top 3", len(notifier.winners))
	}

	final, _ := st.GetCompetition(ctx, comp.ID)
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
	finalists, _ = st.ListFinalists(ctx, comp.ID)
	ranks := make(map[int]int64, len(finalists))
	for _, f := range finalists {
		if f.FinalRank == nil {
			t.Fatalf("finalist %d missing final rank", f.ID)
		}
		ranks[*f.FinalRank] = f.ID
	}
	if _, ok := ranks[1]; !ok {
		t.Fatalf("no finalist ranked first: %+v", ranks)
	}

	// Completed competitions rest for the configured day count, then archive.
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusCompleted)
	clock.Advance(25 * time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusArchived)
}

func TestSchedulerRoutesFirstPlaceTieToManualResolution(t *testing.T) {
	mgr, st, clock, notifier := newTestManager(t, testsupport.WithVoting(2, 0, 2))
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Tied Final", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)

	runCycle(t, mgr)
	for i, user := range []int64{20, 21, 22, 23} {
		testsupport.AddSubmission(t, st, comp.ID, user, []string{"North", "South", "East", "West"}[i])
	}

	clock.Advance(90 * time.Minute)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusRound1Open)

	assignments, _ := st.ListAssignments(ctx, comp.ID)
	for _, asg := range assignments {
		for _, subID := range asg.SubmissionIDs {
			testsupport.CastVote(t, st, comp.ID, subID, asg.VoterID, competition.Round1, 60+int(subID%30))
		}
	}

	clock.Advance(time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusRound2Open)

	finalists, _ := st.ListFinalists(ctx, comp.ID)
	if len(finalists) != 2 {
		t.Fatalf("got %d finalists, want 2", len(finalists))
	}
	// Identical scores force a true first-place tie.
	for _, finalist := range finalists {
		for _, judge := range []int64{900, 901} {
			testsupport.CastVote(t, st, comp.ID, finalist.ID, judge, competition.Round2, 88)
		}
	}

	clock.Advance(time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusRequiresManualWinner)
	if !notifier.has("tie") {
		t.Fatalf("missing tie notification: %v", notifier.events)
	}

	// Scores are published, ranks wait for the decision.
	finalists, _ = st.ListFinalists(ctx, comp.ID)
	for _, f := range finalists {
		if f.Round2Score == nil {
			t.Fatalf("finalist %d missing round 2 score", f.ID)
		}
		if f.FinalRank != nil {
			t.Fatalf("finalist %d ranked before manual resolution", f.ID)
		}
	}

	// Further cycles leave the competition parked.
	clock.Advance(24 * time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusRequiresManualWinner)

	winner := finalists[0]
	if err := mgr.ResolveManualWinner(ctx, comp.ID, winner.ID); err != nil {
		t.Fatalf("ResolveManualWinner: %v", err)
	}
	mustStatus(t, st, comp.ID, competition.StatusCompleted)

	finalists, _ = st.ListFinalists(ctx, comp.ID)
	for _, f := range finalists {
		if f.FinalRank == nil {
			t.Fatalf("finalist %d missing final rank after resolution", f.ID)
		}
		if f.ID == winner.ID && *f.FinalRank != 1 {
			t.Fatalf("winner rank = %d, want 1", *f.FinalRank)
		}
		if f.ID != winner.ID && *f.FinalRank != 2 {
			t.Fatalf("runner-up rank = %d, want 2", *f.FinalRank)
		}
	}

	// A second resolution attempt loses the optimistic status check.
	err := mgr.ResolveManualWinner(ctx, comp.ID, winner.ID)
	if !errors.Is(err, competition.ErrInvalidTransition) {
		t.Fatalf("repeat resolution = %v, want ErrInvalidTransition", err)
	}
}

func TestManualResolutionRanksRemainingFinalistsByScore(t *testing.T) {
	mgr, st, _, notifier := newTestManager(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Scrambled Final", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	testsupport.Advance(t, st, comp, competition.StatusOpenForSubmissions)

	a := testsupport.AddSubmission(t, st, comp.ID, 40, "Adrift")
	b := testsupport.AddSubmission(t, st, comp.ID, 41, "Breaker")
	c := testsupport.AddSubmission(t, st, comp.ID, 42, "Current")
	d := testsupport.AddSubmission(t, st, comp.ID, 43, "Downbeat")

	// Scores deliberately out of submission-ID order: the runner-up ranking
	// must follow score, not listing order.
	scores := map[int64]float64{a.ID: 70, b.ID: 90, c.ID: 90, d.ID: 80}
	if err := st.SetRound1Results(ctx, comp.ID, scores, []int64{a.ID, b.ID, c.ID, d.ID}); err != nil {
		t.Fatalf("SetRound1Results: %v", err)
	}
	if err := st.SetFinalResults(ctx, comp.ID, scores, nil); err != nil {
		t.Fatalf("SetFinalResults: %v", err)
	}
	testsupport.Advance(t, st, comp,
		competition.StatusRound1Setup,
		competition.StatusRound1Open,
		competition.StatusRound1Tallying,
		competition.StatusRound2Setup,
		competition.StatusRound2Open,
		competition.StatusRound2Tallying,
		competition.StatusRequiresManualWinner,
	)

	if err := mgr.ResolveManualWinner(ctx, comp.ID, b.ID); err != nil {
		t.Fatalf("ResolveManualWinner: %v", err)
	}
	mustStatus(t, st, comp.ID, competition.StatusCompleted)

	want := map[int64]int{b.ID: 1, c.ID: 2, d.ID: 3, a.ID: 4}
	finalists, _ := st.ListFinalists(ctx, comp.ID)
	if len(finalists) != 4 {
		t.Fatalf("got %d finalists, want 4", len(finalists))
	}
	for _, f := range finalists {
		if f.FinalRank == nil {
			t.Fatalf("finalist %d missing final rank", f.ID)
		}
		if *f.FinalRank != want[f.ID] {
			t.Fatalf("submission %d rank = %d, want %d", f.ID, *f.FinalRank, want[f.ID])
		}
	}

	// The completion notification carries the podium in rank order.
	if len(notifier.winners) != 3 || notifier.winners[0] != "Breaker" {
		t.Fatalf("podium notification = %v, want Breaker first of 3", notifier.winners)
	}
}

func TestSchedulerHoldsUnderfilledCompetition(t *testing.T) {
	mgr, st, clock, notifier := newTestManager(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Quiet", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	runCycle(t, mgr)
	testsupport.AddSubmission(t, st, comp.ID, 30, "Lonely")

	clock.Advance(2 * time.Hour)
	runCycle(t, mgr)
	mustStatus(t, st, comp.ID, competition.StatusOpenForSubmissions)

	held, _ := st.GetCompetition(ctx, comp.ID)
	if held.StatusNote == "" {
		t.Fatal("expected hold note on competition")
	}
	if len(notifier.holds) != 1 {
		t.Fatalf("got %d hold notifications, want 1", len(notifier.holds))
	}

	// Repeat cycles do not spam hold notifications while the note stands.
	runCycle(t, mgr)
	if len(notifier.holds) != 1 {
		t.Fatalf("hold notification repeated: %d", len(notifier.holds))
	}
}

func TestCancelTerminatesCompetition(t *testing.T) {
	mgr, st, _, _ := newTestManager(t)
	ctx := context.Background()

	comp := testsupport.NewCompetition(t, st, "Doomed", -time.Hour, time.Hour, 2*time.Hour, 3*time.Hour)
	if err := mgr.Cancel(ctx, comp.ID, "organizer request"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	mustStatus(t, st, comp.ID, competition.StatusCancelled)

	cancelled, _ := st.GetCompetition(ctx, comp.ID)
	if cancelled.StatusNote != "organizer request" {
		t.Fatalf("cancellation reason = %q", cancelled.StatusNote)
	}

	if err := mgr.Cancel(ctx, comp.ID, "again"); !errors.Is(err, competition.ErrInvalidTransition) {
		t.Fatalf("cancel of cancelled = %v, want ErrInvalidTransition", err)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if !mgr.Status().Running {
		t.Fatal("expected scheduler to report running")
	}

	mgr.Stop()
	if mgr.Status().Running {
		t.Fatal("expected scheduler to report stopped")
	}
	// Stop is idempotent.
	mgr.Stop()
}
