// Package api defines the transport-friendly DTOs and service layer shared
// by the daemon's HTTP endpoints and the CLI's direct invocations.
package api
