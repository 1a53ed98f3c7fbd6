package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"noise-dashboard/internal/mockapi"
	"noise-dashboard/pkg/logging"
)

func main() {
	// Parse command-line flags
	addr := flag.String("addr", ":8080", "Listen address")
	pageSize := flag.Int("page-size", 100, "Measurements per noise page")
	locations := flag.Int("locations", 5, "Number of generated sensor locations")
	days := flag.Int("days", 14, "Days of generated hourly history per location")
	seed := flag.Int64("seed", 42, "Fixture generator seed")
	flag.Parse()

	// Initialize logger
	logger, err := logging.NewLoggerWithDefaults()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("[STARTUP] Starting mock measurement API",
		zap.String("address", *addr),
		zap.Int("locations", *locations),
		zap.Int("days", *days),
	)

	// Generate fixture data
	store := generateFixtures(*pageSize, *locations, *days, *seed)

	// Setup router
	router := mockapi.NewServer(store, logger).Router()
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("[SERVER_START] HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[SERVER_ERROR] Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("[SHUTDOWN] Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("[SHUTDOWN_ERROR] Server forced to shutdown", zap.Error(err))
	}

	logger.Info("[SHUTDOWN_COMPLETE] Server stopped")
}

// generateFixtures builds a deterministic fixture store: a handful of
// locations around Boston harbor, hourly history for each, raw samples for
// the most recent day, and the matching life-time summary.
func generateFixtures(pageSize, locations, days int, seed int64) *mockapi.Store {
	rng := rand.New(rand.NewSource(seed))
	store := mockapi.NewStore(pageSize)

	end := time.Now().UTC().Truncate(time.Hour)

	for i := 0; i < locations; i++ {
		id := fmt.Sprintf("sensor-%d", i+1)
		active := i%4 != 3 // every fourth sensor is decommissioned

		store.Locations = append(store.Locations, map[string]any{
			"id":        id,
			"label":     fmt.Sprintf("Station %d", i+1),
			"latitude":  42.36 + rng.Float64()*0.05,
			"longitude": -71.06 + rng.Float64()*0.05,
			"radius":    float64(20 + rng.Intn(30)),
			"active":    active,
		})

		if !active {
			continue
		}

		base := 40.0 + rng.Float64()*10
		hours := days * 24
		start := end.Add(-time.Duration(hours) * time.Hour)

		count := 0
		lifeMin, lifeMax := 200.0, 0.0
		var meanSum float64

		for h := 0; h < hours; h++ {
			ts := start.Add(time.Duration(h) * time.Hour)

			// Roughly 2% of hours are sensor outages.
			if rng.Float64() < 0.02 {
				continue
			}
			daily := 8 * dayShape(float64(ts.Hour()))
			mean := base + daily + rng.Float64()*3
			min := mean - 5 - rng.Float64()*5
			max := mean + 10 + rng.Float64()*15

			store.Hourly[id] = append(store.Hourly[id], map[string]any{
				"timestamp": ts.Format(time.RFC3339),
				"min":       round1(min),
				"max":       round1(max),
				"mean":      round1(mean),
			})

			samples := 50 + rng.Intn(20)
			count += samples
			meanSum += mean * float64(samples)
			if min < lifeMin {
				lifeMin = min
			}
			if max > lifeMax {
				lifeMax = max
			}

			// Raw samples only for the most recent day.
			if hours-h <= 24 {
				for s := 0; s < 6; s++ {
					store.Raw[id] = append(store.Raw[id], map[string]any{
						"timestamp": ts.Add(time.Duration(s*10) * time.Minute).Format(time.RFC3339),
						"min":       round1(min + rng.Float64()),
						"max":       round1(max - rng.Float64()),
						"mean":      round1(mean + rng.Float64() - 0.5),
					})
				}
			}
		}

		if count > 0 {
			store.LifeTime[id] = []map[string]any{{
				"start": start.Format(time.RFC3339),
				"end":   end.Format(time.RFC3339),
				"count": count,
				"min":   round1(lifeMin),
				"max":   round1(lifeMax),
				"mean":  round1(meanSum / float64(count)),
			}}
		}
	}

	return store
}

func dayShape(hour float64) float64 {
	// Cheap day-shape curve peaking around 08:00 and 18:00.
	switch {
	case hour >= 7 && hour <= 9:
		return 1.0
	case hour >= 17 && hour <= 19:
		return 0.9
	case hour >= 0 && hour <= 5:
		return -1.0
	default:
		return 0.2
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
