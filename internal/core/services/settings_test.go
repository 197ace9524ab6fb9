package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portal-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(KeyExamEnabled, false)
	_ = store.Set(KeyAttendanceThreshold, int64(75))
	_ = store.Set(KeyPortalBaseURL, "https://portal.example.edu")
	_ = store.Set(KeyPollInterval, int64(10))
	_ = store.Set(KeyGatewayTimeout, int64(5))
	_ = store.Set(KeyStorageBackend, "redis")

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	assert.True(t, settings.Notifications.AttendanceEnabled)
	assert.False(t, settings.Notifications.ExamEnabled)
	assert.InDelta(t, 75.0, settings.Notifications.AttendanceThreshold, 0.001)
	assert.Equal(t, "https://portal.example.edu", settings.Portal.BaseURL)
	assert.Equal(t, 10*time.Minute, settings.Scheduler.PollInterval)
	assert.Equal(t, 5*time.Second, settings.Scheduler.GatewayTimeout)
	assert.Equal(t, domain.StorageRedis, settings.Storage.Backend)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set(KeyStorageBackend, "etcd")
	_ = store.Set(KeyPollInterval, "often")

	settings, err := NewSettingsService(store).Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Scheduler.PollInterval, settings.Scheduler.PollInterval)
}

func TestSettingsService_NotificationPreferences_ReadError(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "attendance switch is a string", key: KeyAttendanceEnabled, value: "yes"},
		{name: "exam switch is a number", key: KeyExamEnabled, value: int64(1)},
		{name: "threshold is a string", key: KeyAttendanceThreshold, value: "80"},
		{name: "threshold out of range", key: KeyAttendanceThreshold, value: 120.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set(tt.key, tt.value)
			service := NewSettingsService(store)

			_, err := service.NotificationPreferences()
			assert.ErrorIs(t, err, domain.ErrPreferenceRead)

			_, err = service.Get()
			assert.ErrorIs(t, err, domain.ErrPreferenceRead)
		})
	}
}

func TestSettingsService_SetNotificationPreferences(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	prefs := domain.NotificationPreferences{AttendanceEnabled: false, ExamEnabled: true, AttendanceThreshold: 85}
	require.NoError(t, service.SetNotificationPreferences(prefs))

	got, err := service.NotificationPreferences()
	require.NoError(t, err)
	assert.Equal(t, prefs, got)

	err = service.SetNotificationPreferences(domain.NotificationPreferences{AttendanceThreshold: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings := domain.DefaultAppSettings()
	settings.Portal.BaseURL = "https://portal.example.edu"
	settings.Scheduler.BackgroundInterval = 30 * time.Minute
	settings.Storage.Backend = domain.StorageMemory
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings := domain.DefaultAppSettings()
	settings.Scheduler.PollInterval = time.Second
	assert.ErrorIs(t, service.Save(&settings), domain.ErrInvalidInput)
}

func TestSettingsService_SetValue(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.SetValue(KeyExamEnabled, "false"))
	require.NoError(t, service.SetValue(KeyAttendanceThreshold, "72.5"))
	require.NoError(t, service.SetValue(KeyPollInterval, "2"))
	require.NoError(t, service.SetValue(KeyStorageBackend, "memory"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.False(t, settings.Notifications.ExamEnabled)
	assert.InDelta(t, 72.5, settings.Notifications.AttendanceThreshold, 0.001)
	assert.Equal(t, 2*time.Minute, settings.Scheduler.PollInterval)
	assert.Equal(t, domain.StorageMemory, settings.Storage.Backend)
}

func TestSettingsService_SetValue_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	tests := []struct {
		key string
		raw string
	}{
		{KeyExamEnabled, "maybe"},
		{KeyAttendanceThreshold, "150"},
		{KeyPollInterval, "0"},
		{KeyStorageBackend, "etcd"},
		{KeyPortalBaseURL, " "},
		{"search.mode", "hybrid"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.ErrorIs(t, service.SetValue(tt.key, tt.raw), domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore()).Keys()
	assert.Len(t, keys, 10)
	assert.Contains(t, keys, KeyAttendanceThreshold)
	assert.IsIncreasing(t, keys)
}
