// Command lexsync is the CLI for the offline action queue. It talks to a
// running lexsyncd over the IPC socket and falls back to direct store
// access when no daemon is available, so enqueueing works fully offline.
package main
