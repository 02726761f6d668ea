// Package logging assembles structured slog loggers and formatting helpers used
// across igmirror.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes helpers that keep warning lines shaped consistently
// (event type, hint, impact). Credentials never reach a log line: request URLs
// pass through RedactURL and tokens through MaskToken. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
