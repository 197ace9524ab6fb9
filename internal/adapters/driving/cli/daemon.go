package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

var daemonBackground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled refreshes until interrupted",
	Long: `Keeps the foreground timer and the background task running so refreshes
happen in the 00:00-00:30 and 17:00-17:30 windows.

With --background only the background task runs, as it would while the app
is not in the foreground. Edits to the settings file are picked up without
a restart.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonBackground, "background", false, "Run only the background task")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	state := session.State()
	if !state.IsAuthenticated() {
		return errors.New("not logged in; run 'portalsync login' first")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if daemonBackground && lifecycle != nil {
		if err := lifecycle.EnterBackground(); err != nil {
			return err
		}
	}

	unsubscribe := session.Subscribe(func(s domain.SessionState) {
		cmd.Printf("Session %s\n", s.Phase)
	})
	defer unsubscribe()

	if configWatcher != nil {
		go watchSettings(ctx, cmd)
	}

	mode := "foreground"
	if daemonBackground {
		mode = "background"
	}
	cmd.Printf("portalsync daemon running for %s (%s). Press Ctrl+C to stop.\n", state.UserID, mode)

	<-ctx.Done()
	cmd.Println("Stopping...")
	return nil
}

func watchSettings(ctx context.Context, cmd *cobra.Command) {
	err := configWatcher.Watch(ctx, func() {
		if settingsService == nil {
			return
		}
		prefs, err := settingsService.NotificationPreferences()
		if err != nil {
			cliLog.Warn("settings reloaded with unreadable preferences: %v", err)
			return
		}
		cliLog.Info("settings reloaded: attendance=%t exams=%t threshold=%.0f",
			prefs.AttendanceEnabled, prefs.ExamEnabled, prefs.AttendanceThreshold)
	})
	if err != nil {
		cmd.PrintErrf("Settings watcher stopped: %v\n", err)
	}
}
