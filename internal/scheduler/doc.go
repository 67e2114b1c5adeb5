// Package scheduler drives competitions through the round lifecycle without
// human intervention. A single periodic loop scans each scheduler-driven
// status for due competitions, runs the status's side effect (assignment
// generation, score tallying), and advances the status with an optimistic
// concurrency check. Job execution records make every transition fire at
// most once per state boundary even across concurrent scheduler instances
// or interrupted cycles.
package scheduler
