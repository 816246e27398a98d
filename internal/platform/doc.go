// Package platform abstracts host facilities the queue depends on:
// connectivity detection and background-sync interest registration. The
// manager and coordinator depend only on the Services interface so
// alternative hosts can supply their own implementation.
package platform
