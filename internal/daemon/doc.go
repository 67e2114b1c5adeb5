// Package daemon wires the scheduler, store, and HTTP API into the single
// background process (encored) and enforces single-instance execution.
package daemon
