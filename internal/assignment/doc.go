// Package assignment builds the round-1 peer review plan: every eligible
// submission is scored by exactly k distinct fellow entrants, every voter
// receives a bounded, fairly shuffled set of peers, and nobody reviews their
// own mix. Planning is deterministic for a given seed so regeneration after
// a crash reproduces the identical plan.
package assignment
