package domain

import "time"

const unknownDescription = "Unknown"

// StorageBackend selects the key-value store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite is a local SQLite database file.
	StorageSQLite StorageBackend = "sqlite"

	// StorageRedis is a Redis server shared by several processes.
	StorageRedis StorageBackend = "redis"

	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StorageRedis, StorageMemory:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if data survives a process restart.
func (b StorageBackend) IsPersistent() bool {
	return b == StorageSQLite || b == StorageRedis
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageSQLite:
		return "SQLite (local file)"
	case StorageRedis:
		return "Redis (shared)"
	case StorageMemory:
		return "Memory (not persisted)"
	default:
		return unknownDescription
	}
}

// PortalSettings configures the remote gateway.
type PortalSettings struct {
	// BaseURL is the portal API root.
	BaseURL string

	// RequestsPerSecond throttles calls to the portal.
	RequestsPerSecond float64
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Backend   StorageBackend
	RedisAddr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Notifications NotificationPreferences
	Portal        PortalSettings
	Scheduler     SchedulerConfig
	Storage       StorageSettings
}

// DefaultAppSettings returns the settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Notifications: NotificationPreferences{
			AttendanceEnabled:   true,
			ExamEnabled:         true,
			AttendanceThreshold: DefaultAttendanceThreshold,
		},
		Portal: PortalSettings{
			BaseURL:           "http://localhost:8080",
			RequestsPerSecond: 2,
		},
		Scheduler: DefaultSchedulerConfig(),
		Storage: StorageSettings{
			Backend:   StorageSQLite,
			RedisAddr: "localhost:6379",
		},
	}
}

// Validate checks settings for values the services cannot run with.
func (s *AppSettings) Validate() error {
	if s.Notifications.AttendanceThreshold <= 0 || s.Notifications.AttendanceThreshold > 100 {
		return ErrInvalidInput
	}
	if s.Scheduler.PollInterval < time.Minute || s.Scheduler.BackgroundInterval < time.Minute {
		return ErrInvalidInput
	}
	if s.Scheduler.GatewayTimeout <= 0 {
		return ErrInvalidInput
	}
	if !s.Storage.Backend.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
