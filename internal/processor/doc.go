// Package processor performs the remote work for a single queued item.
// Processors know nothing about persistence or retry policy; the manager
// owns both. Timeouts live here: the queue never times out a call.
package processor
