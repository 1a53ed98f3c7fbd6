package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"noise-dashboard/internal/models"
	"noise-dashboard/pkg/metrics"
)

// NoiseAPI is the measurement API surface the data manager depends on.
// The caller picks the decode target by the granularity it requested; the
// response shape is never inferred from the payload.
type NoiseAPI interface {
	// GetLocations fetches every sensor location.
	GetLocations(ctx context.Context) (*models.LocationsData, error)

	// GetLocation fetches one location's info as a single-element set.
	GetLocation(ctx context.Context, locationID string) (*models.LocationsData, error)

	// GetNoiseTimed fetches raw or hourly measurements, transparently
	// paginating unless the caller pinned an explicit page.
	GetNoiseTimed(ctx context.Context, locationID string, params *models.NoiseRequestParams) (*models.TimedNoiseData, error)

	// GetNoiseLifeTime fetches the single all-time summary row, issuing
	// exactly one request.
	GetNoiseLifeTime(ctx context.Context, locationID string) (*models.AggregateNoiseData, error)
}

// Client issues HTTP GET requests against the measurement API
type Client struct {
	http    *resty.Client
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Collector
}

var _ NoiseAPI = (*Client)(nil)

// NewClient creates a measurement API client. The bearer token is attached
// at construction time; timeout bounds every request including each page of
// a paginated query.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger, collector *metrics.Collector) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if token != "" {
		httpClient.SetAuthToken(token)
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		metrics: collector,
	}
}

// get executes one GET and returns the raw body. Non-2xx statuses and
// network failures become TransportErrors; nothing is retried here, errors
// propagate to the caller.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	resolved := c.resolveURL(endpoint, query)
	c.logger.Info("GET request", zap.String("url", resolved))

	timer := c.metrics.NewTimer(c.metrics.APIRequestDuration.WithLabelValues(endpoint))
	request := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		request.SetQueryParamsFromValues(query)
	}

	resp, err := request.Get(endpoint)
	timer.ObserveDuration()

	if err != nil {
		c.metrics.RecordAPIError("network_error", endpoint)
		return nil, &models.TransportError{URL: resolved, Err: err}
	}

	c.metrics.RecordAPIRequest(endpoint, resp.Status())

	if resp.IsError() {
		c.metrics.RecordAPIError("http_error", endpoint)
		return nil, &models.TransportError{URL: resolved, StatusCode: resp.StatusCode()}
	}

	return resp.Body(), nil
}

// resolveURL builds the fully resolved request URL for traceability logging
func (c *Client) resolveURL(endpoint string, query url.Values) string {
	resolved := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	if len(query) > 0 {
		resolved += "?" + query.Encode()
	}
	return resolved
}

// GetLocations fetches every sensor location
func (c *Client) GetLocations(ctx context.Context) (*models.LocationsData, error) {
	return c.getLocations(ctx, "locations")
}

// GetLocation fetches one location's info as a single-element set
func (c *Client) GetLocation(ctx context.Context, locationID string) (*models.LocationsData, error) {
	return c.getLocations(ctx, "locations/"+url.PathEscape(locationID))
}

func (c *Client) getLocations(ctx context.Context, endpoint string) (*models.LocationsData, error) {
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &models.ValidationError{Field: "locations", Message: fmt.Sprintf("unparseable response: %v", err)}
	}

	raw, ok := envelope["locations"]
	if !ok {
		return nil, &models.ValidationError{Field: "locations", Message: "response carries no locations key"}
	}

	var locations []models.Location
	if err := json.Unmarshal(raw, &locations); err != nil {
		return nil, err
	}

	c.logger.Info("Received locations", zap.Int("count", len(locations)))

	return &models.LocationsData{Locations: locations}, nil
}
