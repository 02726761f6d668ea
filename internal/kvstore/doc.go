// Package kvstore persists small named string values such as the long-lived
// access token and its refresh timestamp.
//
// Store is deliberately tiny (Get/Set by name) so the token controller can be
// exercised against an in-memory map in tests and against SQLite, PostgreSQL,
// or a JSON file in production. Open picks the backend from configuration.
package kvstore
