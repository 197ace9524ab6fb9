package driving

import "github.com/custodia-labs/portal-sync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// NotificationPreferences returns the per-category notification switches.
	// Returns an error wrapping domain.ErrPreferenceRead if a stored value is unreadable.
	NotificationPreferences() (domain.NotificationPreferences, error)

	// SetNotificationPreferences updates the per-category switches.
	SetNotificationPreferences(prefs domain.NotificationPreferences) error

	// SetValue parses raw for key and stores it.
	// Returns domain.ErrInvalidInput for unknown keys or unparsable values.
	SetValue(key, raw string) error

	// Keys returns every supported setting key.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ConfigPath returns the location of the settings file.
	ConfigPath() string
}
