package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
)

var showCmd = &cobra.Command{
	Use:   "show <attendance|exams|internals|cgpa|greeting>",
	Short: "Print portal data from the cache",
	Long: `Prints one report from the local cache. A report that is missing or
older than a day is fetched from the portal first and cached.`,
	ValidArgs: []string{"attendance", "exams", "internals", "cgpa", "greeting"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	switch args[0] {
	case "attendance":
		err = showAttendance(cmd, session)
	case "exams":
		err = showExams(cmd, session)
	case "internals":
		err = showInternals(cmd, session)
	case "cgpa":
		err = showCGPA(cmd, session)
	case "greeting":
		err = showGreeting(cmd, session)
	}
	if errors.Is(err, domain.ErrNotAuthenticated) || errors.Is(err, domain.ErrCredentialsMissing) {
		return errors.New("not logged in; run 'portalsync login' first")
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	return nil
}

func showAttendance(cmd *cobra.Command, data driving.PortalData) error {
	courses, err := data.Attendance(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		cmd.Println("No courses.")
		return nil
	}

	threshold := attendanceThreshold()
	for _, c := range courses {
		if c.Total == 0 {
			cmd.Printf("  %-8s %-28s no classes yet\n", c.Code, c.Name)
			continue
		}
		flag := ""
		if c.BelowThreshold(threshold) {
			flag = "  LOW"
		}
		cmd.Printf("  %-8s %-28s %3d/%-3d %6.2f%%%s\n", c.Code, c.Name, c.Present, c.Total, c.Percentage, flag)
	}
	return nil
}

func showExams(cmd *cobra.Command, data driving.PortalData) error {
	exams, err := data.ExamSchedule(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(exams) == 0 {
		cmd.Println("No exams scheduled.")
		return nil
	}
	for _, e := range exams {
		cmd.Printf("  %s  %-8s %-28s %-4s %s\n", e.Date, e.CourseCode, e.CourseName, e.Session, e.Venue)
	}
	return nil
}

func showInternals(cmd *cobra.Command, data driving.PortalData) error {
	marks, err := data.Internals(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(marks) == 0 {
		cmd.Println("No internal marks.")
		return nil
	}
	for _, m := range marks {
		cmd.Printf("  %-8s %-10s %g/%g\n", m.CourseCode, m.Component, m.Obtained, m.Maximum)
	}
	return nil
}

func showCGPA(cmd *cobra.Command, data driving.PortalData) error {
	cgpa, err := data.CGPA(commandContext(cmd))
	if err != nil {
		return err
	}
	if cgpa == nil {
		return errNoData
	}
	cmd.Printf("CGPA: %.2f (%d credits)\n", cgpa.Value, cgpa.Credits)
	for _, s := range cgpa.Semesters {
		cmd.Printf("  Semester %-2d SGPA %.2f (%d credits)\n", s.Semester, s.SGPA, s.Credits)
	}
	return nil
}

func showGreeting(cmd *cobra.Command, data driving.PortalData) error {
	greeting, err := data.Greeting(commandContext(cmd))
	if err != nil {
		return err
	}
	if greeting == nil {
		return errNoData
	}
	cmd.Printf("Hello, %s.\n", greeting.Name)
	if greeting.Message != "" {
		cmd.Println(greeting.Message)
	}
	return nil
}

// attendanceThreshold returns the configured threshold, or the default.
func attendanceThreshold() float64 {
	if settingsService == nil {
		return domain.DefaultAttendanceThreshold
	}
	prefs, err := settingsService.NotificationPreferences()
	if err != nil || prefs.AttendanceThreshold <= 0 {
		return domain.DefaultAttendanceThreshold
	}
	return prefs.AttendanceThreshold
}
