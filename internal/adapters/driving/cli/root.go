// Package cli implements the portalsync command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

// Lifecycle moves the session between foreground and background execution.
type Lifecycle interface {
	EnterBackground() error
	EnterForeground(ctx context.Context) error
}

// ConfigWatcher reports edits to the settings file.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Services holds everything the commands drive.
type Services struct {
	Session       driving.SessionService
	Settings      driving.SettingsService
	Notifications driving.NotificationService
	Lifecycle     Lifecycle
	ConfigWatcher ConfigWatcher
}

var (
	version = "dev"
	verbose bool

	sessionService      driving.SessionService
	settingsService     driving.SettingsService
	notificationService driving.NotificationService
	lifecycle           Lifecycle
	configWatcher       ConfigWatcher
)

var rootCmd = &cobra.Command{
	Use:   "portalsync",
	Short: "Keep student portal data fresh and send reminders",
	Long: `portalsync mirrors attendance, exams, internal marks and CGPA from the
student portal into a local cache.

Refreshes run once in each daily window (00:00-00:30 and 17:00-17:30) and
raise low-attendance and exam reminders at most once a day. Run 'portalsync
daemon' to keep the schedulers alive.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to stderr")
}

// SetServices installs the services used by commands.
func SetServices(s Services) {
	sessionService = s.Session
	settingsService = s.Settings
	notificationService = s.Notifications
	lifecycle = s.Lifecycle
	configWatcher = s.ConfigWatcher
}

// SetVersion sets the version reported by 'portalsync version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// initSession restores the persisted session before a command runs.
func initSession(cmd *cobra.Command) (driving.SessionService, error) {
	if sessionService == nil {
		return nil, errSessionNotConfigured
	}
	if err := sessionService.Initialize(commandContext(cmd)); err != nil {
		return nil, err
	}
	return sessionService, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
