// Package logging configures slog for the daemon and CLI and provides
// shared attribute helpers plus standardized field names so log output
// stays greppable across components.
package logging
