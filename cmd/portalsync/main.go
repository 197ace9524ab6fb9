// Command portalsync keeps student portal data cached and raises attendance
// and exam reminders on a daily schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/portal-sync/internal/adapters/driven/background"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/gateway/portal"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/notify/console"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/portal-sync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/portal-sync/internal/adapters/driving/cli"
	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/core/services"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) (err error) {
	configStore, watcher := openConfig()
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		logger.Error("settings: %v; using defaults", err)
		defaults := settingsService.GetDefaults()
		settings = &defaults
	}

	storage, err := openStorage(ctx, settings.Storage)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, storage.Close())
	}()

	gateway := portal.NewClient(settings.Portal.BaseURL,
		portal.WithRateLimiter(portal.NewRateLimiter(settings.Portal.RequestsPerSecond)))

	cache := services.NewCacheService(storage.kv)
	vault := services.NewCredentialVault(storage.kv)
	engine := services.NewNotificationEngine(storage.kv, console.NewNotifier(os.Stdout), settingsService)
	executor := services.NewRefreshExecutor(gateway, cache, vault, storage.reports, engine, settings.Scheduler.GatewayTimeout)
	trigger := services.NewRefreshTrigger(storage.kv, executor)

	bgScheduler, err := background.NewScheduler(settings.Scheduler.BackgroundInterval)
	if err != nil {
		return fmt.Errorf("start background scheduler: %w", err)
	}
	defer func() {
		err = errors.Join(err, bgScheduler.Close())
	}()

	session := services.NewSessionManager(
		vault,
		cache,
		gateway,
		executor,
		storage.reports,
		services.NewForegroundScheduler(settings.Scheduler, trigger),
		services.NewBackgroundTask(bgScheduler, trigger),
		version,
	)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Session:       session,
		Settings:      settingsService,
		Notifications: engine,
		Lifecycle:     session,
		ConfigWatcher: watcher,
	})
	return cli.Execute(ctx)
}

// openConfig opens the TOML config file. If it cannot be opened, settings
// are kept in memory for this run and nothing is watched.
func openConfig() (driven.ConfigStore, cli.ConfigWatcher) {
	store, err := file.NewConfigStore("")
	if err != nil {
		logger.Warn("config file unavailable (%v); settings will not be saved", err)
		return memory.NewConfigStore(), nil
	}
	return store, store
}

// stores bundles the selected backend's stores.
type stores struct {
	kv      driven.KVStore
	reports driven.ReportStore
	closer  io.Closer
}

func (s *stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func openStorage(ctx context.Context, cfg domain.StorageSettings) (*stores, error) {
	switch cfg.Backend {
	case domain.StorageRedis:
		kv, err := redis.NewKVStore(ctx, redis.Config{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &stores{kv: kv, reports: memory.NewReportStore(), closer: kv}, nil
	case domain.StorageMemory:
		return &stores{kv: memory.NewKVStore(), reports: memory.NewReportStore()}, nil
	default:
		store, err := sqlite.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return &stores{kv: store.KVStore(), reports: store.ReportStore(), closer: store}, nil
	}
}
