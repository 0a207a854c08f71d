// Package main provides the economic analytics platform API service.
//
// The service ingests indicator series from the World Bank API, stores them
// in a deduplicated observation store, and serves inequality, correlation
// and forecasting analytics over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Nuraidyn/economic-web-platform/internal/aliasing"
	"github.com/Nuraidyn/economic-web-platform/internal/api"
	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/authz"
	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/config"
	"github.com/Nuraidyn/economic-web-platform/internal/correlation"
	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/storage"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "platform"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting platform service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	// Rate limiter (graceful shutdown handled by server.shutdown())
	middlewareConfig := middleware.LoadConfig()
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("client_rps", middlewareConfig.ClientRPS),
		slog.Int("client_burst", middlewareConfig.ClientBurst),
	)

	// Storage
	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close() // Ensure connection closes on normal shutdown
	}()

	store, err := storage.NewPlatformStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to initialize platform store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	logger.Info("Platform store initialized",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Int("database_max_open_conns", storageConfig.MaxOpenConns),
		slog.Int("database_max_idle_conns", storageConfig.MaxIdleConns),
	)

	// Baseline catalog plus any operator extensions from the platform config
	// file. Seeding is idempotent; stored rows are never overwritten.
	configPath := catalog.ConfigPath()

	catalogConfig, err := catalog.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load catalog config", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	countries, indicators := catalogConfig.ExtendDefaults()

	if err := store.SeedCatalog(context.Background(), countries, indicators); err != nil {
		logger.Error("Failed to seed catalog", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	logger.Info("Catalog seeded",
		slog.Int("countries", len(countries)),
		slog.Int("indicators", len(indicators)),
	)

	// Alias resolution for client-supplied codes (same config file)
	aliasConfig, err := aliasing.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load alias config", slog.String("error", err.Error()))

		_ = dbConn.Close()
		os.Exit(1)
	}

	aliasResolver := aliasing.NewResolver(aliasConfig)

	logger.Info("Alias resolver initialized",
		slog.Int("aliases", aliasResolver.AliasCount()),
	)

	// Upstream provider client
	upstreamClient := upstream.NewClient(upstream.LoadConfig(), logger)

	// Domain services
	pipeline := ingestion.NewPipeline(upstreamClient, store, store, store, logger)
	inequalityService := inequality.NewService(store, store, store, upstreamClient, logger)
	correlationEngine := correlation.NewEngine(store, store, logger)
	forecastEngine := forecast.NewEngine(store, store, store, upstreamClient, forecast.ConfigFromEnv(), logger)

	deps := &api.Dependencies{
		Aliases:      aliasResolver,
		Catalog:      store,
		Pipeline:     pipeline,
		Runs:         store,
		Observations: store,
		Fetcher:      upstreamClient,
		Inequality:   inequalityService,
		Correlation:  correlationEngine,
		Forecast:     forecastEngine,
		Health:       dbConn,
	}

	// Authorization resolver against the external identity service
	var resolver middleware.CredentialResolver

	authEnabled := config.GetEnvBool("PLATFORM_AUTH_ENABLED", true)
	if authEnabled {
		authzConfig := authz.ConfigFromEnv()
		resolver = authz.NewResolver(authzConfig, logger)

		logger.Info("Authorization enabled",
			slog.String("identity_url", authzConfig.IdentityURL),
			slog.Bool("strict", authzConfig.Strict),
			slog.Duration("cache_ttl", authzConfig.CacheTTL),
		)
	} else {
		logger.Warn("Authorization disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set PLATFORM_AUTH_ENABLED=true to enable credential authorization"),
		)
	}

	server := api.NewServer(serverConfig, deps, resolver, rateLimiter)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Platform service stopped")
}
