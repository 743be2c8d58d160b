// cmd/bookings-bot/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bookings-bot/internal/booking"
	"bookings-bot/internal/bot"
	"bookings-bot/internal/channel/discord"
	"bookings-bot/internal/channel/webhook"
	"bookings-bot/internal/common/aws"
	"bookings-bot/internal/common/config"
	"bookings-bot/internal/common/database"
	commonerrors "bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/common/metrics"
	"bookings-bot/internal/common/observability"
	"bookings-bot/internal/notify"
	"bookings-bot/internal/scheduling"
	"bookings-bot/internal/state"
	"bookings-bot/pkg/messages"
)

// pingableStorage is a state store that can report its health to /ready.
type pingableStorage interface {
	state.Storage
	Ping(ctx context.Context) error
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// openStorage connects the configured state driver. The returned close function is
// never nil.
func openStorage(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (pingableStorage, func(), error) {
	switch cfg.Storage.Driver {
	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return nil, func() {}, err
		}
		zapLog.Info("Redis connected successfully")
		storage := state.NewRedisStorage(rc.Client, cfg.Storage.KeyPrefix, config.GetDuration(cfg.Storage.TTL))
		return storage, func() { _ = rc.Close() }, nil

	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, func() {}, err
		}
		zapLog.Info("PostgreSQL connected successfully")
		storage, err := state.NewPostgresStorage(pg.DB, cfg.Database.Postgres.Table)
		if err != nil {
			_ = pg.Close()
			return nil, func() {}, err
		}
		if err := storage.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, func() {}, err
		}
		return storage, func() { _ = pg.Close() }, nil

	default:
		zapLog.Warn("Using in-memory state; conversations are lost on restart")
		return state.NewMemoryStorage(), func() {}, nil
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, catalog *messages.Catalog, log logger.Logger) (notify.Notifier, error) {
	if !cfg.Notifications.Email.Enabled {
		return nil, nil
	}
	ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.NewEmailNotifier(ses, catalog.Email, log)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting bookings bot...",
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("timeZone", cfg.Bot.TimeZone),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel prometheus exporter unavailable", zap.Error(err))
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	catalog, err := messages.Load(cfg.Bot.MessagesPath)
	if err != nil {
		zapLog.Fatal("message catalogue load failed", zap.Error(err))
	}

	storage, closeStorage, err := openStorage(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("state storage failed after retries", zap.Error(err))
	}
	defer closeStorage()

	notifier, err := newNotifier(ctx, cfg, catalog, log)
	if err != nil {
		zapLog.Fatal("email notifier init failed", zap.Error(err))
	}

	// --- Dialogs and bot ---
	recorder := metrics.Recorder{}
	conversationState := state.NewConversationState(storage)
	userState := state.NewUserState(storage)
	faults := commonerrors.NewErrorHandler(log, recorder, catalog.Apology)

	deps := &booking.Deps{
		Client:          scheduling.NewGraphClient(ctx, cfg.Scheduling),
		Profile:         state.NewProperty[booking.Profile](userState, booking.ProfilePropertyName),
		Messages:        catalog,
		Location:        cfg.Location(),
		DateChoiceCount: cfg.Bot.DateChoiceCount,
		Notifier:        notifier,
		Recorder:        recorder,
		Logger:          log,
	}

	dialogs, err := booking.NewDialogSet(deps, faults)
	if err != nil {
		zapLog.Fatal("dialog registration failed", zap.Error(err))
	}
	dialogs.SetObserver(recorder)

	b := bot.New(bot.Options{
		ConversationState: conversationState,
		UserState:         userState,
		Dialogs:           dialogs,
		Messages:          catalog,
		CancelKeyword:     cfg.Bot.CancelKeyword,
		Faults:            faults,
		Observability:     obs,
		Logger:            log,
	})

	// --- Channels ---
	hook, err := webhook.New(webhook.Options{
		Path:      cfg.Channels.Webhook.Path,
		Handler:   b,
		Storage:   storage,
		RateLimit: cfg.Bot.RateLimit,
		RateBurst: cfg.Bot.RateBurst,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("webhook init failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           hook.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening",
			zap.String("address", cfg.Server.Address),
			zap.String("messagesPath", cfg.Channels.Webhook.Path),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	var discordAdapter *discord.Adapter
	if cfg.Channels.Discord.Enabled {
		discordAdapter, err = discord.New(discord.Config{
			Token:     cfg.Channels.Discord.Token,
			ChannelID: cfg.Channels.Discord.ChannelID,
		}, b, log)
		if err != nil {
			zapLog.Fatal("discord init failed", zap.Error(err))
		}
		err = retryWithBackoff(discordAdapter.Start, 5, 2*time.Second, zapLog, "Discord connection")
		if err != nil {
			zapLog.Fatal("discord failed after retries", zap.Error(err))
		}
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining turns...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if discordAdapter != nil {
		if err := discordAdapter.Stop(); err != nil {
			zapLog.Error("Error closing Discord session", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Bookings bot stopped gracefully")
}
