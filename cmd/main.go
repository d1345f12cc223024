package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/weekly-finals/brackets"
	"github.com/Dosada05/weekly-finals/config"
	"github.com/Dosada05/weekly-finals/handlers"
	"github.com/Dosada05/weekly-finals/middleware"
	"github.com/Dosada05/weekly-finals/repositories"
	api "github.com/Dosada05/weekly-finals/routes"
	"github.com/Dosada05/weekly-finals/services"
	"github.com/Dosada05/weekly-finals/storage"
	"github.com/Dosada05/weekly-finals/supabase"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("sql_enabled", cfg.DatabaseURL != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Клиент Supabase: REST всегда, SQL при наличии DATABASE_URL
	client, err := supabase.NewClient(supabase.Config{
		URL:         cfg.SupabaseURL,
		APIKey:      cfg.SupabaseAnonKey,
		ServiceKey:  cfg.SupabaseServiceKey,
		DatabaseURL: cfg.DatabaseURL,
		Timeout:     cfg.RequestTimeout,
	}, supabase.WithLogger(logger), supabase.WithMetrics(supabase.NewMetrics(registry)))
	if err != nil {
		logger.Error("failed to create supabase client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close supabase client", slog.Any("error", err))
		}
	}()

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
			Endpoint:        cfg.R2.Endpoint,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 is not configured, match proof uploads are disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)

	// Инициализация репозиториев
	tournamentRepo := repositories.NewTournamentRepository(client)
	phaseRepo := repositories.NewPhaseRepository(client)
	participantRepo := repositories.NewPhaseParticipantRepository(client, client)
	standingRepo := repositories.NewStandingRepository(client)
	registrationRepo := repositories.NewRegistrationRepository(client)
	userRepo := repositories.NewUserRepository(client)
	finalsRepo := repositories.NewFinalsMatchRepository(client)
	uploadRepo := repositories.NewMatchUploadRepository(client)

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, services.AuthConfig{
		Secret:   cfg.JWTSecretKey,
		TokenTTL: cfg.TokenTTL,
	})
	phaseService := services.NewPhaseService(services.PhaseServiceDeps{
		Tournaments:   tournamentRepo,
		Phases:        phaseRepo,
		Participants:  participantRepo,
		Standings:     standingRepo,
		Registrations: registrationRepo,
		FinalsMatches: finalsRepo,
		Transactor:    client,
		Events:        wsHub,
		Generator:     brackets.NewSeededEliminationGenerator(),
		Logger:        logger,
	})
	matchService := services.NewMatchService(finalsRepo, uploadRepo, uploader, logger)
	dashboardService := services.NewDashboardService(userRepo, tournamentRepo, phaseRepo, participantRepo)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Phases:    handlers.NewPhaseHandler(phaseService),
		Matches:   handlers.NewMatchHandler(matchService),
		Dashboard: handlers.NewDashboardHandler(dashboardService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins, logger),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, api.Options{
		Tokens:         authService,
		LoginLimiter:   middleware.NewIPRateLimiter(cfg.LoginRatePerMinute),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}
	}
	logger.Info("application exited")
}
