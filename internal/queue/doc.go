// Package queue persists offline actions (legal queries and document
// uploads) in SQLite and models their lifecycle. Items move through
// pending -> syncing -> completed/failed; failed queries with retries
// remaining return to pending. The store only persists records; all
// transitions are driven by the manager package.
package queue
