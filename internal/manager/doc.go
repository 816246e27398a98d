// Package manager owns the offline action queue: enqueueing queries and
// document uploads while offline, draining them against the remote
// processor when connectivity returns, and publishing terminal transitions
// to the notification service.
package manager
