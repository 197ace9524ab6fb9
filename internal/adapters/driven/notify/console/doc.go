// Package console implements driven.Notifier by printing notifications to a
// terminal. It stands in for the platform notification service when the
// daemon runs in a shell.
package console
