// Package competition defines the domain model for mix competitions: the
// lifecycle state machine, submissions, votes, round-1 voting assignments,
// and the scheduler's job execution records. The package is pure domain
// logic; persistence lives in internal/store and orchestration in
// internal/scheduler.
package competition
