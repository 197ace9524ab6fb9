package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Manage notification history",
}

var notificationsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget which alerts were already sent",
	Long: `Clears the record of sent alerts so today's low-attendance and exam
reminders may fire again on the next refresh.`,
	RunE: runNotificationsReset,
}

func init() {
	notificationsCmd.AddCommand(notificationsResetCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func runNotificationsReset(cmd *cobra.Command, _ []string) error {
	if notificationService == nil {
		return errNotificationsNotConfigured
	}

	n, err := notificationService.ResetHistory(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to reset notification history: %w", err)
	}

	cmd.Printf("Cleared %d notification record(s).\n", n)
	return nil
}
