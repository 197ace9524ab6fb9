package cli

import "errors"

var (
	errSessionNotConfigured       = errors.New("session service not configured")
	errSettingsNotConfigured      = errors.New("settings service not configured")
	errNotificationsNotConfigured = errors.New("notification service not configured")
	errNoData                     = errors.New("no data fetched")
)
