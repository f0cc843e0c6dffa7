package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelbooking/internal/api"
	"hotelbooking/internal/auth"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/google"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"
	"hotelbooking/internal/notify"
	"hotelbooking/internal/repository"
	"hotelbooking/internal/service"
	"hotelbooking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	cache := initCache(redisClient, logger)

	bus := events.NewEventBus(logging.Component(logger, "events"))
	svc, tokens := initServices(cfg, db, cache, bus, logger)

	if sheetsWorker := initSheetsSync(ctx, cfg, db, redisClient, svc.Bookings, bus, logger); sheetsWorker != nil {
		svc.Sheets = sheetsWorker
	}
	initTelegram(ctx, cfg, svc, bus, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, tokens, logging.Component(logger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		availability := api.NewAvailabilityService(svc.Bookings, svc.Rooms)
		grpcServer, err = api.NewGRPCServer(&cfg.API, availability, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, cfg, httpServer, grpcServer, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initCache prefers Redis and falls back to process memory when it is down or absent.
func initCache(client *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	memory := repository.NewMemoryCacheRepository()
	if client == nil {
		return memory
	}
	primary := repository.NewRedisCacheRepository(client, "hotel:")
	return repository.NewFailoverCacheRepository(primary, memory, logging.Component(logger, "cache"))
}

func initServices(
	cfg *config.Config,
	db *database.DB,
	cache domain.CacheRepository,
	bus *events.EventBus,
	logger *zerolog.Logger,
) (api.Services, *auth.TokenManager) {
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	serviceLogger := logging.Component(logger, "service")

	dashboard := service.NewDashboardService(db, cache, cfg.Cache.StatsTTL, serviceLogger)
	dashboard.SubscribeInvalidation(bus)

	return api.Services{
		Bookings:  service.NewBookingService(db, cache, bus, cfg.Booking, serviceLogger),
		Rooms:     service.NewRoomService(db, bus, serviceLogger),
		Users:     service.NewUserService(db, hasher, tokens, serviceLogger),
		Reviews:   service.NewReviewService(db, bus, serviceLogger),
		Dashboard: dashboard,
		Health:    db.Health,
	}, tokens
}

func initSheetsSync(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	bookings worker.BookingSource,
	bus *events.EventBus,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google, sheetsLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	go sheetsService.StartCacheRefresh(ctx, time.Duration(models.SheetsCacheTTL)*time.Second)

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, bookings, redisClient, worker.DefaultRetryPolicy, sheetsLogger)
	sheetsWorker.Subscribe(bus)
	go sheetsWorker.Start(ctx)

	logger.Info().Msg("google sheets sync started")
	return sheetsWorker
}

func initTelegram(ctx context.Context, cfg *config.Config, svc api.Services, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled {
		return
	}
	if len(cfg.Telegram.AdminChatIDs) == 0 {
		logger.Warn().Msg("telegram enabled without admin_chat_ids, notifications disabled")
		return
	}

	botAPI, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot init failed, continuing without notifications")
		return
	}

	notifier := notify.NewTelegramNotifier(botAPI, cfg.Telegram.AdminChatIDs, logging.Component(logger, "telegram"))
	notifier.Subscribe(bus)
	go notifier.Start(ctx)
	if cfg.Telegram.DailyDigest {
		go notifier.StartDailyDigest(ctx, svc.Bookings, cfg.Telegram.DigestHour)
	}
	if cfg.Telegram.AdminConsole {
		console := notify.NewAdminConsole(botAPI, svc.Bookings, svc.Dashboard, cfg.Telegram.AdminChatIDs, logging.Component(logger, "telegram-console"))
		go console.Start(ctx)
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("telegram notifications started")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	httpServer *api.HTTPServer,
	grpcServer *api.GRPCServer,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		logger.Info().Str("grpc_addr", grpcServer.Addr()).Msg("gRPC availability API enabled")
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
