// Package main provides the ingestion worker for the economic analytics
// platform.
//
// The worker consumes (country, indicator) ingestion requests from a Kafka
// topic and dispatches them to the ingestion pipeline. With --seed-baseline
// it instead walks the built-in country×indicator baseline once and exits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/segmentio/kafka-go"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/config"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/storage"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "ingester"
)

const (
	defaultTopic   = "platform.ingest.requests"
	defaultGroupID = "platform-ingester"

	// Baseline seeding pacing and retry bounds.
	seedPairDelay   = 500 * time.Millisecond
	seedMaxAttempts = 3
	seedRetryDelay  = 2 * time.Second
)

// ingestRequest is the Kafka message payload for one ingestion request.
type ingestRequest struct {
	Country   string `json:"country"`
	Indicator string `json:"indicator"`
}

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	seedBaseline := flag.Bool("seed-baseline", false, "ingest the built-in country×indicator baseline and exit")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("PLATFORM_INGESTER_LOG_LEVEL", slog.LevelInfo),
	}))

	logger.Info("Starting ingestion worker",
		slog.String("service", name),
		slog.String("version", version),
	)

	storageConfig := storage.LoadConfig()

	dbConn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = dbConn.Close()
	}()

	store, err := storage.NewPlatformStore(dbConn, logger)
	if err != nil {
		logger.Error("Failed to initialize platform store", slog.String("error", err.Error()))

		_ = dbConn.Close()
		//nolint:gocritic // Explicit cleanup before os.Exit is intentional (defer won't run)
		os.Exit(1)
	}

	upstreamClient := upstream.NewClient(upstream.LoadConfig(), logger)
	pipeline := ingestion.NewPipeline(upstreamClient, store, store, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seedBaseline {
		seedBaselineMatrix(ctx, pipeline, logger)

		return
	}

	if err := consume(ctx, pipeline, logger); err != nil {
		logger.Error("Consumer stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Ingestion worker stopped")
}

// consume runs the Kafka consumer loop until the context is cancelled.
// Malformed or invalid messages are logged and committed so they are not
// redelivered; ingestion failures are logged and committed too, since the
// failed run is already recorded in the audit table for operators.
func consume(ctx context.Context, pipeline *ingestion.Pipeline, logger *slog.Logger) error {
	brokers := config.ParseCommaSeparatedList(
		config.GetEnvStr("PLATFORM_KAFKA_BROKERS", "localhost:9092"),
	)
	topic := config.GetEnvStr("PLATFORM_KAFKA_TOPIC", defaultTopic)
	groupID := config.GetEnvStr("PLATFORM_KAFKA_GROUP_ID", defaultGroupID)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.FirstOffset,
	})

	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("Failed to close Kafka reader", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Consuming ingestion requests",
		slog.Any("brokers", brokers),
		slog.String("topic", topic),
		slog.String("group_id", groupID),
	)

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}

		handleMessage(ctx, pipeline, logger, message)

		if err := reader.CommitMessages(ctx, message); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}
	}
}

// handleMessage validates and dispatches one ingestion request.
func handleMessage(ctx context.Context, pipeline *ingestion.Pipeline, logger *slog.Logger, message kafka.Message) {
	var request ingestRequest

	if err := json.Unmarshal(message.Value, &request); err != nil {
		logger.Warn("Skipping malformed ingestion request",
			slog.String("topic", message.Topic),
			slog.Int64("offset", message.Offset),
			slog.String("error", err.Error()),
		)

		return
	}

	if err := ingestion.ValidateCountryCode(request.Country); err != nil {
		logger.Warn("Skipping invalid ingestion request",
			slog.Int64("offset", message.Offset),
			slog.String("error", err.Error()),
		)

		return
	}

	if err := ingestion.ValidateIndicatorCode(request.Indicator); err != nil {
		logger.Warn("Skipping invalid ingestion request",
			slog.Int64("offset", message.Offset),
			slog.String("error", err.Error()),
		)

		return
	}

	result, err := pipeline.Ingest(ctx, request.Country, request.Indicator)
	if err != nil {
		logger.Error("Ingestion request failed",
			slog.String("country", request.Country),
			slog.String("indicator", request.Indicator),
			slog.String("error", err.Error()),
		)

		return
	}

	logger.Info("Ingestion request completed",
		slog.String("country", request.Country),
		slog.String("indicator", request.Indicator),
		slog.Int64("run_id", result.RunID),
		slog.Int("inserted", result.Inserted),
		slog.Int("total", result.Total),
	)
}

// seedBaselineMatrix ingests every built-in (country, indicator) pair once,
// pacing requests and retrying transient failures a bounded number of times.
func seedBaselineMatrix(ctx context.Context, pipeline *ingestion.Pipeline, logger *slog.Logger) {
	var succeeded, failed int

	start := time.Now()

	for _, country := range catalog.DefaultCountries {
		for _, indicator := range catalog.DefaultIndicators {
			if ctx.Err() != nil {
				logger.Warn("Baseline seeding interrupted",
					slog.Int("succeeded", succeeded),
					slog.Int("failed", failed),
				)

				return
			}

			if seedPair(ctx, pipeline, logger, country.Code, indicator.Code) {
				succeeded++
			} else {
				failed++
			}

			// Pace requests to stay friendly to the upstream provider.
			sleepCtx(ctx, seedPairDelay)
		}
	}

	logger.Info("Baseline seeding finished",
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
		slog.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
}

// seedPair ingests one pair with bounded retries. Returns true on success.
func seedPair(
	ctx context.Context,
	pipeline *ingestion.Pipeline,
	logger *slog.Logger,
	countryCode, indicatorCode string,
) bool {
	for attempt := 1; attempt <= seedMaxAttempts; attempt++ {
		result, err := pipeline.Ingest(ctx, countryCode, indicatorCode)
		if err == nil {
			logger.Info("Baseline pair ingested",
				slog.String("country", countryCode),
				slog.String("indicator", indicatorCode),
				slog.Int64("run_id", result.RunID),
				slog.Int("inserted", result.Inserted),
			)

			return true
		}

		logger.Warn("Baseline pair failed",
			slog.String("country", countryCode),
			slog.String("indicator", indicatorCode),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < seedMaxAttempts {
			sleepCtx(ctx, seedRetryDelay)
		}
	}

	return false
}

// sleepCtx sleeps for the duration or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
