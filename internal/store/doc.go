// Package store persists competitions, submissions, voting assignments,
// votes, and job execution records in SQLite. All status advancement goes
// through an optimistic expected-previous-value check, and the job execution
// table is the sole coordination point between concurrent scheduler
// instances.
package store
