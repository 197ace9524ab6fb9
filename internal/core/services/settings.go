package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interfaces.
var (
	_ driving.SettingsService = (*SettingsService)(nil)
	_ PreferenceReader        = (*SettingsService)(nil)
)

// Config keys for settings storage.
const (
	KeyAttendanceEnabled   = "notifications.attendance_enabled"
	KeyExamEnabled         = "notifications.exam_enabled"
	KeyAttendanceThreshold = "notifications.attendance_threshold"
	KeyPortalBaseURL       = "portal.base_url"
	KeyPortalRPS           = "portal.requests_per_second"
	KeyPollInterval        = "refresh.poll_interval_minutes"
	KeyBackgroundInterval  = "refresh.background_interval_minutes"
	KeyGatewayTimeout      = "refresh.gateway_timeout_seconds"
	KeyStorageBackend      = "storage.backend"
	KeyRedisAddr           = "storage.redis_addr"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings.
// Missing keys take their defaults. Unreadable notification switches are an
// error; other unreadable values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	prefs, err := s.NotificationPreferences()
	if err != nil {
		return nil, err
	}

	settings := &domain.AppSettings{
		Notifications: prefs,
		Portal: domain.PortalSettings{
			BaseURL:           s.getString(KeyPortalBaseURL, defaults.Portal.BaseURL),
			RequestsPerSecond: s.getPositiveFloat(KeyPortalRPS, defaults.Portal.RequestsPerSecond),
		},
		Scheduler: domain.SchedulerConfig{
			PollInterval:       s.getDuration(KeyPollInterval, time.Minute, defaults.Scheduler.PollInterval),
			BackgroundInterval: s.getDuration(KeyBackgroundInterval, time.Minute, defaults.Scheduler.BackgroundInterval),
			GatewayTimeout:     s.getDuration(KeyGatewayTimeout, time.Second, defaults.Scheduler.GatewayTimeout),
		},
		Storage: domain.StorageSettings{
			Backend:   s.getBackend(defaults.Storage.Backend),
			RedisAddr: s.getString(KeyRedisAddr, defaults.Storage.RedisAddr),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if err := s.SetNotificationPreferences(settings.Notifications); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{KeyPortalBaseURL, settings.Portal.BaseURL},
		{KeyPortalRPS, settings.Portal.RequestsPerSecond},
		{KeyPollInterval, int(settings.Scheduler.PollInterval / time.Minute)},
		{KeyBackgroundInterval, int(settings.Scheduler.BackgroundInterval / time.Minute)},
		{KeyGatewayTimeout, int(settings.Scheduler.GatewayTimeout / time.Second)},
		{KeyStorageBackend, settings.Storage.Backend.String()},
		{KeyRedisAddr, settings.Storage.RedisAddr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// NotificationPreferences returns the per-category switches.
// Missing keys default to enabled. A value of the wrong type is reported as
// domain.ErrPreferenceRead rather than silently treated as a default.
func (s *SettingsService) NotificationPreferences() (domain.NotificationPreferences, error) {
	defaults := domain.DefaultAppSettings().Notifications

	attendance, err := s.strictBool(KeyAttendanceEnabled, defaults.AttendanceEnabled)
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	exam, err := s.strictBool(KeyExamEnabled, defaults.ExamEnabled)
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	threshold, err := s.strictFloat(KeyAttendanceThreshold, defaults.AttendanceThreshold)
	if err != nil {
		return domain.NotificationPreferences{}, err
	}
	if threshold <= 0 || threshold > 100 {
		return domain.NotificationPreferences{}, fmt.Errorf("%w: %s out of range: %v",
			domain.ErrPreferenceRead, KeyAttendanceThreshold, threshold)
	}

	return domain.NotificationPreferences{
		AttendanceEnabled:   attendance,
		ExamEnabled:         exam,
		AttendanceThreshold: threshold,
	}, nil
}

// SetNotificationPreferences updates the per-category switches.
func (s *SettingsService) SetNotificationPreferences(prefs domain.NotificationPreferences) error {
	if prefs.AttendanceThreshold <= 0 || prefs.AttendanceThreshold > 100 {
		return fmt.Errorf("%w: attendance threshold must be in (0, 100]", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(KeyAttendanceEnabled, prefs.AttendanceEnabled); err != nil {
		return fmt.Errorf("save attendance switch: %w", err)
	}
	if err := s.configStore.Set(KeyExamEnabled, prefs.ExamEnabled); err != nil {
		return fmt.Errorf("save exam switch: %w", err)
	}
	if err := s.configStore.Set(KeyAttendanceThreshold, prefs.AttendanceThreshold); err != nil {
		return fmt.Errorf("save attendance threshold: %w", err)
	}
	return nil
}

// SetValue parses raw for key and stores it.
func (s *SettingsService) SetValue(key, raw string) error {
	raw = strings.TrimSpace(raw)

	var value any
	switch key {
	case KeyAttendanceEnabled, KeyExamEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		value = b
	case KeyAttendanceThreshold, KeyPortalRPS:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f <= 0 || (key == KeyAttendanceThreshold && f > 100) {
			return fmt.Errorf("%w: %s expects a positive number", domain.ErrInvalidInput, key)
		}
		value = f
	case KeyPollInterval, KeyBackgroundInterval, KeyGatewayTimeout:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s expects a positive integer", domain.ErrInvalidInput, key)
		}
		value = n
	case KeyStorageBackend:
		backend := domain.StorageBackend(raw)
		if !backend.IsValid() {
			return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, raw)
		}
		value = backend.String()
	case KeyPortalBaseURL, KeyRedisAddr:
		if raw == "" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, key)
		}
		value = raw
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	return s.configStore.Set(key, value)
}

// Keys returns every supported setting key, sorted.
func (s *SettingsService) Keys() []string {
	keys := []string{
		KeyAttendanceEnabled, KeyExamEnabled, KeyAttendanceThreshold,
		KeyPortalBaseURL, KeyPortalRPS,
		KeyPollInterval, KeyBackgroundInterval, KeyGatewayTimeout,
		KeyStorageBackend, KeyRedisAddr,
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ConfigPath returns the location of the settings file.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getPositiveFloat(key string, defaultVal float64) float64 {
	if v := s.configStore.GetFloat(key); v > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	if v := s.configStore.GetInt(key); v > 0 {
		return time.Duration(v) * unit
	}
	return defaultVal
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(KeyStorageBackend))
	if backend.IsValid() {
		return backend
	}
	return defaultVal
}

func (s *SettingsService) strictBool(key string, defaultVal bool) (bool, error) {
	v, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s holds %T", domain.ErrPreferenceRead, key, v)
	}
	return b, nil
}

func (s *SettingsService) strictFloat(key string, defaultVal float64) (float64, error) {
	v, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s holds %T", domain.ErrPreferenceRead, key, v)
	}
}
