// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Gateway: Fetches attendance, exams, internals, CGPA and greeting from the portal
//   - KVStore: Persists cache entries, refresh markers, dedup markers and credentials
//   - Notifier: Delivers local notifications
//   - ConfigStore: Application configuration and preferences
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BackgroundScheduler: Invokes the refresh check outside the foreground loop.
//     Without it, only the foreground scheduler drives refreshes.
//   - ReportStore: Refresh report history. Without it, reports are only logged.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
