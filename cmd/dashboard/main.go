package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"noise-dashboard/internal/api"
	"noise-dashboard/internal/config"
	"noise-dashboard/internal/export"
	"noise-dashboard/internal/format"
	"noise-dashboard/internal/manager"
	"noise-dashboard/internal/models"
	"noise-dashboard/pkg/cache"
	"noise-dashboard/pkg/logging"
	"noise-dashboard/pkg/metrics"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	locationID := flag.String("location", "", "Location identifier to inspect")
	granularityFlag := flag.String("granularity", "hourly", "Noise granularity: raw or hourly")
	startFlag := flag.String("start", "", "Window start (RFC 3339), defaults to the configured lookback")
	endFlag := flag.String("end", "", "Window end (RFC 3339)")
	exportFormat := flag.String("export", "", "Export the noise table: csv or xlsx")
	exportPath := flag.String("out", "noise-export", "Export file path (extension added per format)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "noise-dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	logger.Info("[STARTUP] Starting noise dashboard",
		zap.String("api_url", cfg.API.URL),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("noise_dashboard")

	// Initialize cache backend
	var kv cache.KV
	switch cfg.Cache.Backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("[STARTUP_ERROR] Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		kv = cache.NewRedisKV(redisClient)
	default:
		kv = cache.NewMemoryKV()
	}

	// Initialize API client and data manager
	client := api.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout, logger, metricsCollector)
	formatter := format.NewFormatter(time.UTC, metricsCollector)
	dataManager := manager.NewAppDataManager(client, formatter, kv, logger, metricsCollector, cfg.ManagerOptions())

	if err := run(ctx, dataManager, logger, metricsCollector, runOptions{
		locationID:   *locationID,
		granularity:  *granularityFlag,
		start:        *startFlag,
		end:          *endFlag,
		exportFormat: *exportFormat,
		exportPath:   *exportPath,
	}); err != nil {
		logger.Fatal("[RUN_ERROR] Dashboard query failed", zap.Error(err))
	}
}

type runOptions struct {
	locationID   string
	granularity  string
	start        string
	end          string
	exportFormat string
	exportPath   string
}

func run(ctx context.Context, dataManager *manager.AppDataManager, logger *zap.Logger, collector *metrics.Collector, opts runOptions) error {
	// Load and print the locations table
	locations, err := dataManager.LoadLocations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load locations: %w", err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("LOCATIONS (%d)\n", len(locations.Locations))
	fmt.Println(strings.Repeat("=", 80))
	for _, loc := range locations.Locations {
		sending, err := dataManager.GetActiveStatus(ctx, loc.ID)
		if err != nil {
			return fmt.Errorf("failed to check status of %s: %w", loc.ID, err)
		}
		status := "silent"
		if sending {
			status = "sending"
		}
		fmt.Printf("%-12s %-24s (%.5f, %.5f) r=%.0fm  %s\n",
			loc.ID, loc.Label, loc.Latitude, loc.Longitude, loc.Radius, status)
	}

	if opts.locationID == "" {
		return nil
	}

	return inspectLocation(ctx, dataManager, logger, collector, opts)
}

func inspectLocation(ctx context.Context, dataManager *manager.AppDataManager, logger *zap.Logger, collector *metrics.Collector, opts runOptions) error {
	granularity, err := models.ParseGranularity(opts.granularity)
	if err != nil {
		return err
	}

	dataManager.SelectLocation(opts.locationID)

	empty, err := dataManager.IsNoiseAvailable(ctx, opts.locationID)
	if err != nil {
		return fmt.Errorf("failed to check data availability: %w", err)
	}
	if empty {
		fmt.Printf("\nLocation %s has no recorded measurements.\n", opts.locationID)
		return nil
	}

	stats, err := dataManager.LoadLocationStats(ctx, opts.locationID)
	if err != nil {
		return fmt.Errorf("failed to load life-time stats: %w", err)
	}

	label, err := dataManager.GetLabel(ctx, opts.locationID)
	if err != nil {
		return fmt.Errorf("failed to load location info: %w", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("LIFE-TIME STATS: %s (%s)\n", label, opts.locationID)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Observed:   %s .. %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
	fmt.Printf("Samples:    %d\n", stats.Count)
	fmt.Printf("Levels dBA: min=%.1f mean=%.1f max=%.1f\n", stats.Min, stats.Mean, stats.Max)

	start, err := parseTimeFlag("start", opts.start)
	if err != nil {
		return err
	}
	end, err := parseTimeFlag("end", opts.end)
	if err != nil {
		return err
	}

	table, err := dataManager.LoadLocationNoise(ctx, opts.locationID, granularity, start, end)
	if err != nil {
		return fmt.Errorf("failed to load noise series: %w", err)
	}

	fmt.Printf("\nLoaded %d %s rows.\n", len(table), granularity)

	if opts.exportFormat == "" {
		return nil
	}

	return exportTable(table, logger, collector, opts)
}

func exportTable(table format.Table, logger *zap.Logger, collector *metrics.Collector, opts runOptions) error {
	exporter := export.NewExporter(logger, collector)

	path := opts.exportPath + "." + opts.exportFormat
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	switch opts.exportFormat {
	case "csv":
		err = exporter.WriteCSV(file, table)
	case "xlsx":
		err = exporter.WriteXLSX(file, table)
	default:
		return fmt.Errorf("unknown export format %q, expected csv or xlsx", opts.exportFormat)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d rows to %s\n", len(table), path)
	return nil
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s value %q: %w", name, value, err)
	}
	return &t, nil
}
