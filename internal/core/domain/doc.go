// Package domain defines the core business entities for portal-sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CacheEntry: A timestamped payload for one DataKind
//   - RefreshMarker: The calendar date a scheduled refresh last ran
//   - DedupKey: The identity of a notification that must only be sent once
//   - SessionState: The phase of the user's session
//   - Course, Exam, InternalMark, CGPA, Greeting: Decoded portal records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
