package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tradewind-labs/tradedesk-backend/api/routes"
	internalauth "github.com/tradewind-labs/tradedesk-backend/internal/auth"
	"github.com/tradewind-labs/tradedesk-backend/internal/companies"
	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	"github.com/tradewind-labs/tradedesk-backend/internal/parties"
	"github.com/tradewind-labs/tradedesk-backend/internal/trades"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
	"github.com/tradewind-labs/tradedesk-backend/pkg/metrics"
	"github.com/tradewind-labs/tradedesk-backend/pkg/migrate"
	redisclient "github.com/tradewind-labs/tradedesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "auto-migration failed", err)
		os.Exit(1)
	}

	redisClient, err := redisclient.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to build session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	membershipsRepo := memberships.NewRepository(conn)
	companiesRepo := companies.NewRepository(conn)
	partiesRepo := parties.NewRepository(conn)
	tradesRepo := trades.NewRepo(conn)

	authService, err := internalauth.NewService(internalauth.ServiceParams{
		UserRepo:        usersRepo,
		MembershipsRepo: membershipsRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to build auth service", err)
		os.Exit(1)
	}

	registerService, err := internalauth.NewRegisterService(
		internalauth.DefaultRegisterServiceParams(dbClient, cfg.Password))
	if err != nil {
		logg.Error(ctx, "failed to build register service", err)
		os.Exit(1)
	}

	switchService, err := internalauth.NewSwitchCompanyService(internalauth.SwitchCompanyServiceParams{
		MembershipsRepo: membershipsRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to build switch-company service", err)
		os.Exit(1)
	}

	companiesService, err := companies.NewService(companiesRepo, membershipsRepo, usersRepo, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to build companies service", err)
		os.Exit(1)
	}

	partiesService, err := parties.NewService(parties.Params{Repo: partiesRepo})
	if err != nil {
		logg.Error(ctx, "failed to build parties service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	tradesService, err := trades.NewService(trades.Params{
		Repo:    tradesRepo,
		Parties: partiesRepo,
		Numbers: trades.NewRedisNumberAllocator(redisClient),
		Metrics: httpMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build trades service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Metrics:     httpMetrics,
		Registry:    registry,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		Auth:        authService,
		Register:    registerService,
		Switch:      switchService,
		Users:       usersRepo,
		Memberships: membershipsRepo,
		Companies:   companiesService,
		Parties:     partiesService,
		Trades:      tradesService,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logg.Info(ctx, "api listening on :"+cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server stopped", err)
			stop()
		}
	}()

	<-shutdownCtx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
	logg.Info(ctx, "api stopped")
}
