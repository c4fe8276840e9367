package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"qwesade/internal/api"
	"qwesade/internal/bot"
	"qwesade/internal/config"
	"qwesade/internal/database"
	"qwesade/internal/domain"
	"qwesade/internal/events"
	"qwesade/internal/google"
	"qwesade/internal/logging"
	"qwesade/internal/metrics"
	"qwesade/internal/repository"
	"qwesade/internal/service"
	"qwesade/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(registry)

	spreadsheet, storeCheck, closeStore, err := initSpreadsheet(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ledger, bookings, err := initStores(ctx, cfg, spreadsheet, logger)
	if err != nil {
		return err
	}

	redisClient, stateService := initStateService(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	eventBus := events.NewEventBus()
	bookingService := service.NewBookingService(ledger, bookings, eventBus, cfg.Booking, logging.Component(logger, "booking"))

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug
	logger.Info().Str("username", botAPI.Self.UserName).Msg("Authorized on Telegram")

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))
	telegramBot := bot.NewBot(tgService, cfg, stateService, bookingService, bot.NewMetrics(registry), logging.Component(logger, "bot"))
	telegramBot.SubscribeEvents(eventBus)
	telegramBot.StartReminders(ctx)

	webhook := cfg.Telegram.Mode == config.ModeWebhook
	if cfg.API.Enabled || webhook {
		apiServer := api.NewServer(cfg.API, bookingService, registry, logging.Component(logger, "api"))
		apiServer.AddHealthCheck("store", storeCheck)
		if redisClient != nil {
			apiServer.AddHealthCheck("redis", func(ctx context.Context) error { return repository.Ping(ctx, redisClient) })
		}
		if webhook {
			apiServer.Handle(webhookPath(cfg.Telegram.WebhookSecret), telegramBot.WebhookHandler())
		}

		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	if webhook {
		if err := registerWebhook(botAPI, cfg.Telegram, logger); err != nil {
			logger.Error().Err(err).Msg("Ошибка регистрации webhook")
			return err
		}
		logger.Info().Msg("Бот запущен в режиме webhook")
		<-ctx.Done()
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete webhook before polling")
		}
		logger.Info().Msg("Бот запущен...")
		telegramBot.Start(ctx)
		telegramBot.Stop()
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logging.Component(baseLogger, "bot-main"), closer, nil
}

// initSpreadsheet выбирает хранилище таблиц по storage.driver
func initSpreadsheet(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Spreadsheet, api.HealthCheck, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.StorageSheets:
		sheetsSvc, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.CredentialsJSON, cfg.Google.SpreadsheetID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Google Sheets service")
			return nil, nil, noop, err
		}
		if err := sheetsSvc.TestConnection(ctx); err != nil {
			logger.Error().Err(err).Msg("Google Sheets connection test failed")
			return nil, nil, noop, err
		}
		logger.Info().Msg("Google Sheets service initialized successfully")
		return sheetsSvc, sheetsSvc.TestConnection, noop, nil

	case config.StorageSQLite:
		db, err := database.NewDB(cfg.Storage.SQLitePath, logging.Component(logger, "database"))
		if err != nil {
			logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
			return nil, nil, noop, err
		}
		if cfg.Backup.Enabled {
			backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
			go backupService.Start(ctx)
		}
		return db, db.PingContext, func() { _ = db.Close() }, nil

	default:
		logger.Warn().Msg("Используется хранилище в памяти, данные не сохраняются между запусками")
		return store.NewMemorySpreadsheet(), func(context.Context) error { return nil }, noop, nil
	}
}

func initStores(
	ctx context.Context,
	cfg *config.Config,
	spreadsheet domain.Spreadsheet,
	logger *zerolog.Logger,
) (*store.Ledger, *store.Bookings, error) {
	calendarSheet, err := spreadsheet.Worksheet(ctx, cfg.Google.CalendarSheet)
	if err != nil {
		return nil, nil, err
	}
	bookingsSheet, err := spreadsheet.Worksheet(ctx, cfg.Google.BookingsSheet)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := store.NewLedger(ctx, calendarSheet, cfg.Booking.TimeSlots, cfg.Booking.WholeDayLabel, logging.Component(logger, "ledger"))
	if err != nil {
		return nil, nil, err
	}
	bookings, err := store.NewBookings(ctx, bookingsSheet)
	if err != nil {
		return nil, nil, err
	}
	return ledger, bookings, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	ttl := cfg.SessionTTL()
	memoryRepo := repository.NewMemorySessionRepository(ttl)
	if cfg.Redis.Address == "" {
		return nil, service.NewStateService(memoryRepo, logger)
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if errPing := repository.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}

	primaryRepo := repository.NewRedisSessionRepository(redisClient, ttl)
	stateRepo := repository.NewFailoverSessionRepository(primaryRepo, memoryRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func webhookPath(secret string) string {
	return "/webhook/" + secret
}

// registerWebhook сообщает Telegram адрес {webhook_url}/webhook/{secret}
func registerWebhook(botAPI *tgbotapi.BotAPI, cfg config.TelegramConfig, logger *zerolog.Logger) error {
	base := strings.TrimRight(cfg.WebhookURL, "/")
	wh, err := tgbotapi.NewWebhook(base + webhookPath(cfg.WebhookSecret))
	if err != nil {
		return err
	}
	if _, err := botAPI.Request(wh); err != nil {
		return err
	}

	info, err := botAPI.GetWebhookInfo()
	if err != nil {
		return err
	}
	if info.LastErrorDate != 0 {
		logger.Warn().
			Str("error", info.LastErrorMessage).
			Time("at", time.Unix(int64(info.LastErrorDate), 0)).
			Msg("Telegram reports a webhook delivery error")
	}
	return nil
}
