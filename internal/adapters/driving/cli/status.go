package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

const displayTime = "2006-01-02 15:04"

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, cache and refresh status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusHistory, "history", "n", 5, "Number of recent refreshes to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	ctx := commandContext(cmd)

	state := session.State()
	cmd.Println("[Session]")
	if state.IsAuthenticated() {
		cmd.Printf("  Logged in as: %s\n", state.UserID)
		cmd.Printf("  Last login: %s\n", formatTime(state.LastLoginTime))
	} else {
		cmd.Println("  Not logged in")
	}
	cmd.Println()

	status, err := session.CacheStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache status: %w", err)
	}
	cmd.Println("[Cache]")
	freshness := "fresh"
	if status.Stale {
		freshness = "stale"
	}
	cmd.Printf("  Last update: %s (%s)\n", formatTime(status.LastUpdate), freshness)
	for _, kind := range domain.AllKinds() {
		ks := status.Kinds[kind]
		cmd.Printf("  %-15s %s\n", kind, describeKind(ks))
	}
	cmd.Println()

	if statusHistory <= 0 {
		return nil
	}
	reports, err := session.RecentReports(ctx, statusHistory)
	if err != nil {
		return fmt.Errorf("failed to read refresh history: %w", err)
	}
	cmd.Println("[Recent refreshes]")
	if len(reports) == 0 {
		cmd.Println("  none")
		return nil
	}
	for i := range reports {
		r := &reports[i]
		cmd.Printf("  %s  %-9s %d/%d ok\n",
			r.StartedAt.Local().Format(displayTime), r.Trigger, r.SuccessCount(), len(r.Outcomes))
	}
	return nil
}

func describeKind(ks domain.KindStatus) string {
	switch {
	case !ks.Present:
		return "missing"
	case !ks.Valid:
		return "expired, fetched " + formatTime(ks.FetchedAt)
	default:
		return "valid, fetched " + formatTime(ks.FetchedAt)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(displayTime)
}
