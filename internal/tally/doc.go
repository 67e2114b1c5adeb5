// Package tally aggregates per-voter scores into competition results:
// round-1 means drive finalist selection, round-2 means drive the final
// ranking with standard competition tie handling. The package is pure; the
// scheduler persists what it computes.
package tally
