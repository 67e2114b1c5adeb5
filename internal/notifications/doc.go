// Package notifications publishes informational push messages about
// competition lifecycle events via ntfy. The sink is strictly advisory:
// delivery failures are logged by callers and never block a transition.
package notifications
