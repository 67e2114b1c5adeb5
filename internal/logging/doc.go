// Package logging provides the slog construction and attribute conventions
// used across encore: console and JSON handlers, typed attribute helpers,
// component loggers, and context-carried correlation fields for scheduler
// transition attempts.
package logging
