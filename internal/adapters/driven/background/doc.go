// Package background implements driven.BackgroundScheduler on gocron.
//
// It stands in for the operating system's opportunistic task scheduler:
// registered tasks run on a fixed interval in their own goroutines, with at
// most one run of a task in flight at a time.
package background
