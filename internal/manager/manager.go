// Package manager is the single orchestration point presentation code calls:
// it hides pagination, formatting and caching behind load and accessor
// operations over per-entity cached slots.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"noise-dashboard/internal/api"
	"noise-dashboard/internal/format"
	"noise-dashboard/internal/models"
	"noise-dashboard/pkg/cache"
	"noise-dashboard/pkg/metrics"
)

// Options holds the behavior toggles the dashboard configuration exposes
type Options struct {
	// FilterActive drops inactive locations when loading the locations table
	FilterActive bool

	// Deduplicate drops repeated location identifiers, keeping the first
	Deduplicate bool

	// FillGaps inserts explicit missing-value rows into hourly series
	FillGaps bool

	// LookbackDays sizes the default query window ending at a location's
	// last observed measurement
	LookbackDays int

	// Freshness bounds how old the last measurement may be for a location
	// to count as sending data
	Freshness time.Duration

	// CacheTTL bounds how long a loaded slot stays fresh
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.LookbackDays <= 0 {
		o.LookbackDays = 7
	}
	if o.Freshness <= 0 {
		o.Freshness = 5 * time.Hour
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 15 * time.Minute
	}
	return o
}

// AppDataManager owns the cached data slots behind the dashboard: the
// locations table, per-location life-time stats, per-location noise series
// keyed by granularity, and per-location info records. Load operations
// replace their slot wholesale; a failed load propagates the error and
// leaves the previous slot untouched.
type AppDataManager struct {
	api       api.NoiseAPI
	formatter *format.Formatter
	kv        cache.KV
	logger    *zap.Logger
	metrics   *metrics.Collector
	opts      Options

	// selected is the location the dashboard is currently focused on.
	// Single-writer like the slots themselves.
	selected string

	// now is swappable for tests
	now func() time.Time
}

// NewAppDataManager creates a data manager over the given API client,
// formatter and cache backend.
func NewAppDataManager(client api.NoiseAPI, formatter *format.Formatter, kv cache.KV, logger *zap.Logger, collector *metrics.Collector, opts Options) *AppDataManager {
	return &AppDataManager{
		api:       client,
		formatter: formatter,
		kv:        kv,
		logger:    logger,
		metrics:   collector,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

func locationsKey() string      { return "locations" }
func infoKey(id string) string  { return "info:" + id }
func statsKey(id string) string { return "stats:" + id }
func noiseKey(id string, g models.Granularity) string {
	return fmt.Sprintf("noise:%s:%s", id, g)
}

// LoadLocations fetches all locations, applies the configured active-only
// and deduplication filters, replaces the locations slot and returns the
// filtered table.
func (m *AppDataManager) LoadLocations(ctx context.Context) (*models.LocationsData, error) {
	data, err := m.api.GetLocations(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Received locations", zap.Int("count", len(data.Locations)))

	// Active filter runs first so an inactive duplicate cannot shadow the
	// active copy of the same identifier.
	if m.opts.FilterActive {
		data.Locations = filterActive(data.Locations)
		m.logger.Info("Filtered to active locations", zap.Int("count", len(data.Locations)))
	}
	if m.opts.Deduplicate {
		data.Locations = deduplicate(data.Locations)
		m.logger.Info("Deduplicated locations", zap.Int("count", len(data.Locations)))
	}

	m.storeSlot(ctx, locationsKey(), data)
	return data, nil
}

// LoadLocationInfo fetches one location's info record and replaces its slot
func (m *AppDataManager) LoadLocationInfo(ctx context.Context, locationID string) (*models.Location, error) {
	data, err := m.api.GetLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if len(data.Locations) == 0 {
		return nil, &models.ValidationError{
			Field:   "id",
			Value:   locationID,
			Message: "location not found",
		}
	}

	info := data.Locations[0]
	m.storeSlot(ctx, infoKey(locationID), &info)
	return &info, nil
}

// LoadLocationStats fetches a location's life-time aggregate and replaces its
// slot. A location with no recorded data yields a nil aggregate, not an error.
func (m *AppDataManager) LoadLocationStats(ctx context.Context, locationID string) (*models.NoiseAggregate, error) {
	data, err := m.api.GetNoiseLifeTime(ctx, locationID)
	if err != nil {
		return nil, err
	}

	m.storeSlot(ctx, statsKey(locationID), data)

	if len(data.Measurements) == 0 {
		return nil, nil
	}
	return &data.Measurements[0], nil
}

// LoadLocationNoise fetches a location's noise series at the given
// granularity, replaces its slot and returns the formatted table. When no
// explicit window is given it defaults to the configured lookback ending at
// the location's last observed measurement.
func (m *AppDataManager) LoadLocationNoise(ctx context.Context, locationID string, granularity models.Granularity, start, end *time.Time) (format.Table, error) {
	granularity = granularity.OrDefault()

	if start == nil && end == nil {
		stats, err := m.locationStats(ctx, locationID)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			windowEnd := stats.End
			windowStart := windowEnd.AddDate(0, 0, -m.opts.LookbackDays)
			start, end = &windowStart, &windowEnd
		}
	}

	params := &models.NoiseRequestParams{
		Granularity: granularity,
		Start:       start,
		End:         end,
	}

	data, err := m.api.GetNoiseTimed(ctx, locationID, params)
	if err != nil {
		return nil, err
	}

	m.storeSlot(ctx, noiseKey(locationID, granularity), data)
	return m.formatNoise(data, granularity)
}

// Locations returns the locations slot, loading it on a cache miss
func (m *AppDataManager) Locations(ctx context.Context) (*models.LocationsData, error) {
	var data models.LocationsData
	if m.readSlot(ctx, locationsKey(), "locations", &data) {
		return &data, nil
	}
	return m.LoadLocations(ctx)
}

// LocationInfo returns a location's info slot, loading it on a cache miss
func (m *AppDataManager) LocationInfo(ctx context.Context, locationID string) (*models.Location, error) {
	var info models.Location
	if m.readSlot(ctx, infoKey(locationID), "info", &info) {
		return &info, nil
	}
	return m.LoadLocationInfo(ctx, locationID)
}

// LocationNoise returns a location's noise slot as a formatted table,
// loading it on a cache miss.
func (m *AppDataManager) LocationNoise(ctx context.Context, locationID string, granularity models.Granularity) (format.Table, error) {
	granularity = granularity.OrDefault()

	var data models.TimedNoiseData
	if m.readSlot(ctx, noiseKey(locationID, granularity), "noise", &data) {
		return m.formatNoise(&data, granularity)
	}
	return m.LoadLocationNoise(ctx, locationID, granularity, nil, nil)
}

// IsNoiseAvailable reports whether a location has no recorded measurements,
// so callers can redirect away from an empty location page. The flag reads
// as "no data available to chart".
func (m *AppDataManager) IsNoiseAvailable(ctx context.Context, locationID string) (bool, error) {
	stats, err := m.locationStats(ctx, locationID)
	if err != nil {
		return false, err
	}
	return stats == nil || stats.Count == 0, nil
}

// GetActiveStatus reports whether a location is currently sending data: its
// last observed measurement is more recent than now minus the configured
// freshness threshold. Every surface displaying "sending" uses this one
// definition.
func (m *AppDataManager) GetActiveStatus(ctx context.Context, locationID string) (bool, error) {
	stats, err := m.locationStats(ctx, locationID)
	if err != nil {
		return false, err
	}
	if stats == nil {
		return false, nil
	}
	return stats.End.After(m.now().Add(-m.opts.Freshness)), nil
}

// GetRadius returns a location's sensing radius in meters
func (m *AppDataManager) GetRadius(ctx context.Context, locationID string) (float64, error) {
	info, err := m.LocationInfo(ctx, locationID)
	if err != nil {
		return 0, err
	}
	return info.Radius, nil
}

// GetLabel returns a location's display label
func (m *AppDataManager) GetLabel(ctx context.Context, locationID string) (string, error) {
	info, err := m.LocationInfo(ctx, locationID)
	if err != nil {
		return "", err
	}
	return info.Label, nil
}

// SelectLocation records the currently focused location identifier
func (m *AppDataManager) SelectLocation(locationID string) {
	m.selected = locationID
	m.logger.Debug("Selected location", zap.String("location_id", locationID))
}

// SelectedLocation returns the currently focused location identifier, empty
// when none is selected.
func (m *AppDataManager) SelectedLocation() string {
	return m.selected
}

// InvalidateLocation drops a location's cached slots so the next accessor
// read loads fresh data instead of serving the cache.
func (m *AppDataManager) InvalidateLocation(ctx context.Context, locationID string) {
	keys := []string{infoKey(locationID), statsKey(locationID)}
	for _, g := range []models.Granularity{models.GranularityRaw, models.GranularityHourly} {
		keys = append(keys, noiseKey(locationID, g))
	}

	for _, key := range keys {
		if err := m.kv.Delete(ctx, key); err != nil {
			m.logger.Warn("Failed to invalidate cache slot", zap.String("key", key), zap.Error(err))
		}
	}

	m.logger.Info("Invalidated location slots", zap.String("location_id", locationID))
}

// locationStats returns a location's life-time aggregate through the stats
// slot, loading it on a cache miss.
func (m *AppDataManager) locationStats(ctx context.Context, locationID string) (*models.NoiseAggregate, error) {
	var data models.AggregateNoiseData
	if m.readSlot(ctx, statsKey(locationID), "stats", &data) {
		if len(data.Measurements) == 0 {
			return nil, nil
		}
		return &data.Measurements[0], nil
	}
	return m.LoadLocationStats(ctx, locationID)
}

// formatNoise converts loaded measurements into the registry-keyed table the
// UI consumes, applying configured gap filling to hourly series.
func (m *AppDataManager) formatNoise(data *models.TimedNoiseData, granularity models.Granularity) (format.Table, error) {
	table, err := m.formatter.WireTableToInternal(data.Wire())
	if err != nil {
		return nil, err
	}

	if m.opts.FillGaps && granularity == models.GranularityHourly {
		table = m.formatter.FillMissingTimes(table, time.Hour)
	}

	return table, nil
}

// storeSlot replaces a cached slot. Cache write failures are logged and
// swallowed: the caller already holds the fresh data.
func (m *AppDataManager) storeSlot(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("Failed to encode cache slot", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.kv.Set(ctx, key, string(payload), m.opts.CacheTTL); err != nil {
		m.logger.Warn("Failed to store cache slot", zap.String("key", key), zap.Error(err))
	}
}

// readSlot reads a cached slot into value, reporting whether it was a usable
// hit. An unreadable or undecodable entry counts as a miss.
func (m *AppDataManager) readSlot(ctx context.Context, key, entity string, value any) bool {
	payload, err := m.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			m.logger.Warn("Failed to read cache slot", zap.String("key", key), zap.Error(err))
		}
		m.metrics.RecordCacheMiss(entity)
		return false
	}

	if err := json.Unmarshal([]byte(payload), value); err != nil {
		m.logger.Warn("Failed to decode cache slot", zap.String("key", key), zap.Error(err))
		m.metrics.RecordCacheMiss(entity)
		return false
	}

	m.metrics.RecordCacheHit(entity)
	return true
}

// deduplicate keeps the first occurrence of each location identifier
func deduplicate(locations []models.Location) []models.Location {
	seen := make(map[string]bool, len(locations))
	unique := make([]models.Location, 0, len(locations))
	for _, loc := range locations {
		if seen[loc.ID] {
			continue
		}
		seen[loc.ID] = true
		unique = append(unique, loc)
	}
	return unique
}

// filterActive keeps only locations flagged active
func filterActive(locations []models.Location) []models.Location {
	active := make([]models.Location, 0, len(locations))
	for _, loc := range locations {
		if loc.Active {
			active = append(active, loc)
		}
	}
	return active
}
