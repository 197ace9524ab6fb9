package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change notification, portal, refresh and storage settings.

Settings are stored in a TOML file; a running daemon picks up changes.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting by key, for example:

  portalsync settings set notifications.attendance_threshold 75
  portalsync settings set notifications.exam_enabled false
  portalsync settings set storage.backend redis

An unknown key prints the list of valid keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Notifications]")
	cmd.Printf("  Low attendance alerts: %s\n", onOff(settings.Notifications.AttendanceEnabled))
	cmd.Printf("  Exam alerts: %s\n", onOff(settings.Notifications.ExamEnabled))
	cmd.Printf("  Attendance threshold: %.1f%%\n", settings.Notifications.AttendanceThreshold)
	cmd.Println()

	cmd.Println("[Portal]")
	cmd.Printf("  Base URL: %s\n", settings.Portal.BaseURL)
	cmd.Printf("  Requests per second: %g\n", settings.Portal.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Refresh]")
	cmd.Printf("  Poll interval: %s\n", settings.Scheduler.PollInterval)
	cmd.Printf("  Background interval: %s\n", settings.Scheduler.BackgroundInterval)
	cmd.Printf("  Gateway timeout: %s\n", settings.Scheduler.GatewayTimeout)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend.Description())
	if settings.Storage.Backend == domain.StorageRedis {
		cmd.Printf("  Redis address: %s\n", settings.Storage.RedisAddr)
	}
	cmd.Println()

	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("invalid setting %s=%q: %w\nvalid keys: %s",
				key, value, err, strings.Join(settingsService.Keys(), ", "))
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}

	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
