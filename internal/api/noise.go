package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"noise-dashboard/internal/models"
)

// GetNoiseTimed fetches raw or hourly measurements for one location.
// When the caller did not pin an explicit page, pages are fetched in strictly
// increasing order until the server returns an empty one; any page failure
// aborts the whole query and discards the partial result. Cancelling the
// context between pages stops the loop without an error so an interactive
// caller can navigate away mid-load.
func (c *Client) GetNoiseTimed(ctx context.Context, locationID string, params *models.NoiseRequestParams) (*models.TimedNoiseData, error) {
	p := normalizeParams(params)
	if p.Granularity == models.GranularityLifeTime {
		return nil, &models.ValidationError{
			Field:   "granularity",
			Value:   string(p.Granularity),
			Message: "life-time queries use GetNoiseLifeTime",
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	endpoint := noiseEndpoint(locationID)

	// An explicit page pins the query to a single request.
	paginate := p.Page == nil
	if paginate {
		page := 0
		p.Page = &page
	}

	data := &models.TimedNoiseData{Measurements: []models.NoiseTimed{}}
	pages := 0

	for {
		raws, err := c.getMeasurements(ctx, endpoint, p.Query(), p.Granularity)
		if err != nil {
			// A cancel landing mid-request ends the walk the same way a
			// cancel between pages does: keep what was already loaded.
			if paginate && pages > 0 && errors.Is(err, context.Canceled) {
				c.logger.Info("Pagination cancelled",
					zap.String("location_id", locationID),
					zap.Int("pages", pages),
				)
				break
			}
			return nil, err
		}
		pages++

		pageData := make([]models.NoiseTimed, 0, len(raws))
		for _, raw := range raws {
			var m models.NoiseTimed
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, schemaMismatch(p.Granularity, err)
			}
			pageData = append(pageData, m)
		}
		data.Measurements = append(data.Measurements, pageData...)

		if !paginate || len(pageData) == 0 {
			break
		}
		if ctx.Err() != nil {
			c.logger.Info("Pagination cancelled",
				zap.String("location_id", locationID),
				zap.Int("pages", pages),
			)
			break
		}

		*p.Page++
	}

	c.metrics.PagesPerQuery.Observe(float64(pages))
	c.metrics.MeasurementsLoaded.Add(float64(len(data.Measurements)))

	c.logger.Info("Received measurements",
		zap.String("location_id", locationID),
		zap.String("granularity", string(p.Granularity)),
		zap.Int("pages", pages),
		zap.Int("count", len(data.Measurements)),
	)

	return data, nil
}

// GetNoiseLifeTime fetches the single all-time summary row for a location.
// The server never paginates this granularity, so exactly one request is
// issued; a location with no data yields an empty result, not an error.
func (c *Client) GetNoiseLifeTime(ctx context.Context, locationID string) (*models.AggregateNoiseData, error) {
	params := models.NoiseRequestParams{Granularity: models.GranularityLifeTime}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	raws, err := c.getMeasurements(ctx, noiseEndpoint(locationID), params.Query(), params.Granularity)
	if err != nil {
		return nil, err
	}

	data := &models.AggregateNoiseData{Measurements: []models.NoiseAggregate{}}
	for _, raw := range raws {
		var m models.NoiseAggregate
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, schemaMismatch(params.Granularity, err)
		}
		data.Measurements = append(data.Measurements, m)
	}

	// The server summarizes a location's full history into one row.
	if len(data.Measurements) > 1 {
		return nil, &models.SchemaMismatchError{
			Granularity: params.Granularity,
			Reason:      fmt.Sprintf("expected at most one aggregate row, got %d", len(data.Measurements)),
		}
	}

	c.logger.Info("Received life-time stats",
		zap.String("location_id", locationID),
		zap.Int("count", len(data.Measurements)),
	)

	return data, nil
}

// getMeasurements executes one page request and returns the undecoded
// measurement elements.
func (c *Client) getMeasurements(ctx context.Context, endpoint string, query url.Values, granularity models.Granularity) ([]json.RawMessage, error) {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, schemaMismatch(granularity, fmt.Errorf("unparseable response: %w", err))
	}

	raw, ok := envelope["measurements"]
	if !ok {
		return nil, &models.SchemaMismatchError{
			Granularity: granularity,
			Reason:      "response carries no measurements key",
		}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, schemaMismatch(granularity, fmt.Errorf("measurements is not a list: %w", err))
	}

	return raws, nil
}

func noiseEndpoint(locationID string) string {
	return "locations/" + url.PathEscape(locationID) + "/noise"
}

func normalizeParams(params *models.NoiseRequestParams) models.NoiseRequestParams {
	if params == nil {
		return models.NoiseRequestParams{Granularity: models.GranularityRaw}
	}

	p := *params
	p.Granularity = p.Granularity.OrDefault()
	if p.Page != nil {
		page := *p.Page
		p.Page = &page
	}
	return p
}

func schemaMismatch(granularity models.Granularity, err error) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return &models.SchemaMismatchError{Granularity: granularity, Reason: validationErr.Error()}
	}
	return &models.SchemaMismatchError{Granularity: granularity, Reason: err.Error()}
}
