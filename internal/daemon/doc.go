// Package daemon ties the queue manager and sync coordinator into a
// single-instance background process and exposes the operations the IPC
// layer forwards.
package daemon
