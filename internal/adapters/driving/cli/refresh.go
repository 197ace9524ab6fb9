package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all portal data now",
	Long: `Runs a full refresh immediately, ignoring the daily windows.

Each report is fetched independently; a failure in one does not stop the
others. Notifications are evaluated against whatever was fetched.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	cmd.Println("Refreshing portal data...")
	report, err := session.ForceRefresh(commandContext(cmd))
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) || errors.Is(err, domain.ErrCredentialsMissing) {
			return errors.New("not logged in; run 'portalsync login' first")
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	for _, o := range report.Outcomes {
		if o.Succeeded() {
			cmd.Printf("  %-15s ok (%s)\n", o.Kind, o.Duration.Round(time.Millisecond))
		} else {
			cmd.Printf("  %-15s FAILED: %s\n", o.Kind, o.Error)
		}
	}

	if report.SuccessCount() == 0 {
		return fmt.Errorf("refresh failed: %w", errNoData)
	}
	cmd.Printf("Refreshed %d of %d reports.\n", report.SuccessCount(), len(report.Outcomes))
	return nil
}
