// Package memory provides in-memory implementations of driven port interfaces.
//
// These adapters back the "memory" storage backend and the core service tests:
//
//   - KVStore: Cache entries, markers and credentials
//   - ReportStore: Refresh report history
//   - ConfigStore: Configuration values
//
// Nothing is persisted; all data is lost when the process exits.
package memory
