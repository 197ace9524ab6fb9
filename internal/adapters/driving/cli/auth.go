package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login [user-id]",
	Short: "Sign in to the student portal",
	Long: `Stores your portal credentials, fetches every report once and starts
scheduled refreshes.

The password is always prompted for. When stdin is not a terminal it is read
from the next input line, so it can be piped in.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear cached data",
	Long: `Stops scheduled refreshes, clears the cache and removes stored credentials.
Notification history is kept.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	if state := session.State(); state.IsAuthenticated() {
		return fmt.Errorf("already logged in as %s; run 'portalsync logout' first", state.UserID)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	userID := ""
	if len(args) > 0 {
		userID = strings.TrimSpace(args[0])
	} else {
		cmd.Print("User ID: ")
		if userID, err = readLine(reader); err != nil {
			return fmt.Errorf("read user id: %w", err)
		}
	}

	cmd.Print("Password: ")
	secret, err := readSecret(cmd, reader)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	cmd.Println("Signing in and fetching data...")
	if err := session.Login(commandContext(cmd), domain.Credentials{UserID: userID, Secret: secret}); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errors.New("user ID and password are required")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s.\n", userID)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	session, err := initSession(cmd)
	if err != nil {
		return err
	}
	defer shutdownSession(session)

	if err := session.Logout(commandContext(cmd)); err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			cmd.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	cmd.Println("Logged out. Cached data and credentials removed.")
	return nil
}

func readLine(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads a password without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return readLine(reader)
}
