package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tapx-earn-go/internal/accrual"
	"tapx-earn-go/internal/api"
	"tapx-earn-go/internal/bot"
	"tapx-earn-go/internal/cache"
	"tapx-earn-go/internal/database"
	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/formance"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/referral"
	"tapx-earn-go/internal/settings"
	"tapx-earn-go/internal/vip"
	"tapx-earn-go/internal/withdrawal"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Settings  *settings.Provider
	Ledger    *api.LedgerService
	Telegram  *telego.Bot
	Journal   *formance.Journal
	Location  *time.Location

	redis *cache.RedisSettings
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the store, settings cache, engines, event sinks
// and the LedgerService facade.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.App.Timezone, err)
	}

	defaults, err := settings.SeedDefaults(cfg.App.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings seed: %w", err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService, Location: loc}

	var settingsCache settings.Cache = cache.NewMemory(cfg.Cache.TTL)
	if cfg.Cache.Addr != "" {
		redisCache, err := cache.ConnectRedis(ctx, cfg.Cache)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.redis = redisCache
		settingsCache = redisCache
	}
	services.Settings = settings.NewProvider(dbService, settingsCache, defaults)

	var sinks events.Fanout
	if cfg.Formance.Enabled {
		journal, err := formance.NewJournal(ctx, cfg.Formance)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Journal = journal
		sinks = append(sinks, journal)
	}
	if cfg.Bot.Token != "" {
		client, err := bot.NewClient(cfg.Bot)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Telegram = client
		sinks = append(sinks, bot.NewNotifier(client))
	}

	referrals := referral.NewEngine(dbService, services.Settings, sinks)
	services.Ledger = api.NewLedgerService(api.Deps{
		Store:       dbService,
		Settings:    services.Settings,
		Taps:        accrual.NewEngine(dbService, services.Settings, loc, referrals),
		Referrals:   referrals,
		Vip:         vip.NewService(dbService, sinks, cfg.App.VipDurationDays),
		Withdrawals: withdrawal.NewService(dbService, services.Settings, sinks, loc),
		BotUsername: cfg.Bot.Username,
	})

	zap.L().Info("Services initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.String("timezone", loc.String()),
		zap.Bool("redis_cache", services.redis != nil),
		zap.Bool("formance_journal", services.Journal != nil),
		zap.Bool("telegram", services.Telegram != nil))

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like reports
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.redis != nil {
		cs.redis.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
