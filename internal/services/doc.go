// Package services defines shared utilities consumed by the external API
// integrations.
//
// Key responsibilities:
//   - Context helpers that stamp the running operation and a correlation
//     identifier for logging.
//   - Structured error markers plus the Wrap helper, so callers can classify
//     failures (configuration, unauthorized, transient) with errors.Is and
//     show a matching Hint.
package services
