// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The refresh path is: ForegroundScheduler or BackgroundTask ->
// RefreshTrigger -> RefreshExecutor -> Gateway, CacheService ->
// NotificationEngine. SessionManager owns the lifecycle of both schedulers.
package services
