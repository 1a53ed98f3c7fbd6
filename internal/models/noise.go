package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Granularity is the aggregation level of a noise query.
type Granularity string

const (
	GranularityRaw      Granularity = "raw"
	GranularityHourly   Granularity = "hourly"
	GranularityLifeTime Granularity = "life-time"
)

// ParseGranularity converts a string into a Granularity
func ParseGranularity(value string) (Granularity, error) {
	switch Granularity(value) {
	case GranularityRaw, GranularityHourly, GranularityLifeTime:
		return Granularity(value), nil
	default:
		return "", &ValidationError{
			Field:   "granularity",
			Value:   value,
			Message: "expected one of raw, hourly, life-time",
		}
	}
}

// OrDefault returns the granularity, defaulting to raw when unset
func (g Granularity) OrDefault() Granularity {
	if g == "" {
		return GranularityRaw
	}
	return g
}

// NoiseRequestParams describes one noise-data query. Unset optional fields
// are omitted from the query string entirely, never sent as empty or null.
type NoiseRequestParams struct {
	Granularity Granularity
	Start       *time.Time
	End         *time.Time
	Page        *int
}

// Validate checks the parameter invariants before any network call
func (p *NoiseRequestParams) Validate() error {
	if p.Granularity != "" {
		if _, err := ParseGranularity(string(p.Granularity)); err != nil {
			return err
		}
	}

	if p.Page != nil && *p.Page < 0 {
		return &ValidationError{
			Field:   "page",
			Value:   strconv.Itoa(*p.Page),
			Message: "page must be non-negative",
		}
	}

	// The server never paginates life-time queries.
	if p.Granularity == GranularityLifeTime && p.Page != nil {
		return &ValidationError{
			Field:   "page",
			Value:   strconv.Itoa(*p.Page),
			Message: "life-time requests must not carry a page",
		}
	}

	return nil
}

// Query serializes the parameters to transport form, omitting unset fields
func (p *NoiseRequestParams) Query() url.Values {
	values := url.Values{}
	values.Set("granularity", string(p.Granularity.OrDefault()))

	if p.Start != nil {
		values.Set("start", p.Start.Format(time.RFC3339))
	}
	if p.End != nil {
		values.Set("end", p.End.Format(time.RFC3339))
	}
	if p.Page != nil {
		values.Set("page", strconv.Itoa(*p.Page))
	}

	return values
}

// Location represents a physical sensor installation
type Location struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Active    bool    `json:"active"`
}

// locationWire mirrors the JSON payload; pointer fields distinguish absent
// from zero-valued, and ID stays raw so numeric source IDs can be coerced.
type locationWire struct {
	ID        json.RawMessage `json:"id"`
	Label     *string         `json:"label"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Radius    *float64        `json:"radius"`
	Active    *bool           `json:"active"`
}

// UnmarshalJSON validates required fields and coerces numeric IDs to string
func (l *Location) UnmarshalJSON(data []byte) error {
	var wire locationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return &ValidationError{Field: "location", Message: err.Error()}
	}

	id, err := coerceID(wire.ID)
	if err != nil {
		return err
	}

	if wire.Label == nil {
		return &ValidationError{Field: "label", Message: "required field missing"}
	}
	if wire.Latitude == nil {
		return &ValidationError{Field: "latitude", Message: "required field missing or non-numeric"}
	}
	if wire.Longitude == nil {
		return &ValidationError{Field: "longitude", Message: "required field missing or non-numeric"}
	}
	if wire.Radius == nil {
		return &ValidationError{Field: "radius", Message: "required field missing or non-numeric"}
	}
	if wire.Active == nil {
		return &ValidationError{Field: "active", Message: "required field missing"}
	}

	l.ID = id
	l.Label = *wire.Label
	l.Latitude = *wire.Latitude
	l.Longitude = *wire.Longitude
	l.Radius = *wire.Radius
	l.Active = *wire.Active

	return nil
}

// coerceID turns a string or integer wire identifier into its string form
func coerceID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", &ValidationError{Field: "id", Message: "required field missing"}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", &ValidationError{Field: "id", Value: string(raw), Message: "unparseable identifier"}
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", &ValidationError{Field: "id", Value: string(raw), Message: "identifier must be a string or number"}
	}
}

// Wire returns the location as a string-keyed record for the formatter
func (l Location) Wire() map[string]any {
	return map[string]any{
		"id":        l.ID,
		"label":     l.Label,
		"latitude":  l.Latitude,
		"longitude": l.Longitude,
		"radius":    l.Radius,
		"active":    l.Active,
	}
}

// LocationsData is the API reply listing sensor locations
type LocationsData struct {
	Locations []Location `json:"locations"`
}

// Wire returns the locations as string-keyed records
func (d LocationsData) Wire() []map[string]any {
	records := make([]map[string]any, 0, len(d.Locations))
	for _, loc := range d.Locations {
		records = append(records, loc.Wire())
	}
	return records
}

// Noise holds the decibel summary fields shared by all measurement shapes
type Noise struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// NoiseTimed is one raw sample or one hourly bucket; the two are told apart
// only by the granularity of the request that produced them.
type NoiseTimed struct {
	Noise
	Timestamp time.Time `json:"timestamp"`
}

// NoiseAggregate is the single life-time summary row for a location
type NoiseAggregate struct {
	Noise
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

type noiseTimedWire struct {
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Mean      *float64 `json:"mean"`
	Timestamp *string  `json:"timestamp"`
}

type noiseAggregateWire struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Mean  *float64 `json:"mean"`
	Start *string  `json:"start"`
	End   *string  `json:"end"`
	Count *int     `json:"count"`
}

// UnmarshalJSON validates the timed measurement shape
func (n *NoiseTimed) UnmarshalJSON(data []byte) error {
	var wire noiseTimedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return &ValidationError{Field: "measurement", Message: err.Error()}
	}

	if wire.Min == nil || wire.Max == nil || wire.Mean == nil {
		return &ValidationError{Field: "measurement", Message: "min/max/mean required and numeric"}
	}
	if wire.Timestamp == nil {
		return &ValidationError{Field: "timestamp", Message: "required field missing"}
	}

	timestamp, err := ParseAwareTime("timestamp", *wire.Timestamp)
	if err != nil {
		return err
	}

	n.Min = *wire.Min
	n.Max = *wire.Max
	n.Mean = *wire.Mean
	n.Timestamp = timestamp

	return nil
}

// UnmarshalJSON validates the life-time aggregate shape
func (n *NoiseAggregate) UnmarshalJSON(data []byte) error {
	var wire noiseAggregateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return &ValidationError{Field: "measurement", Message: err.Error()}
	}

	if wire.Min == nil || wire.Max == nil || wire.Mean == nil {
		return &ValidationError{Field: "measurement", Message: "min/max/mean required and numeric"}
	}
	if wire.Start == nil {
		return &ValidationError{Field: "start", Message: "required field missing"}
	}
	if wire.End == nil {
		return &ValidationError{Field: "end", Message: "required field missing"}
	}
	if wire.Count == nil {
		return &ValidationError{Field: "count", Message: "required field missing or non-integer"}
	}

	start, err := ParseAwareTime("start", *wire.Start)
	if err != nil {
		return err
	}
	end, err := ParseAwareTime("end", *wire.End)
	if err != nil {
		return err
	}

	n.Min = *wire.Min
	n.Max = *wire.Max
	n.Mean = *wire.Mean
	n.Start = start
	n.End = end
	n.Count = *wire.Count

	return nil
}

// Wire returns the timed measurement as a string-keyed record
func (n NoiseTimed) Wire() map[string]any {
	return map[string]any{
		"timestamp": n.Timestamp,
		"min":       n.Min,
		"max":       n.Max,
		"mean":      n.Mean,
	}
}

// Wire returns the aggregate measurement as a string-keyed record
func (n NoiseAggregate) Wire() map[string]any {
	return map[string]any{
		"start": n.Start,
		"end":   n.End,
		"count": n.Count,
		"min":   n.Min,
		"max":   n.Max,
		"mean":  n.Mean,
	}
}

// TimedNoiseData collects raw or hourly measurements for one location
type TimedNoiseData struct {
	Measurements []NoiseTimed `json:"measurements"`
}

// Wire returns the measurements as string-keyed records
func (d TimedNoiseData) Wire() []map[string]any {
	records := make([]map[string]any, 0, len(d.Measurements))
	for _, m := range d.Measurements {
		records = append(records, m.Wire())
	}
	return records
}

// AggregateNoiseData collects life-time summary measurements for one location
type AggregateNoiseData struct {
	Measurements []NoiseAggregate `json:"measurements"`
}

// Wire returns the measurements as string-keyed records
func (d AggregateNoiseData) Wire() []map[string]any {
	records := make([]map[string]any, 0, len(d.Measurements))
	for _, m := range d.Measurements {
		records = append(records, m.Wire())
	}
	return records
}

// ParseAwareTime parses an ISO 8601 timestamp that must carry a UTC offset.
// A source timestamp without an offset is a defect to surface, not a value
// to silently localize.
func ParseAwareTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}

	for _, naive := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if _, naiveErr := time.Parse(naive, value); naiveErr == nil {
			return time.Time{}, &ValidationError{
				Field:   field,
				Value:   value,
				Message: "timestamp carries no UTC offset",
			}
		}
	}

	return time.Time{}, &ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("unparseable timestamp: %v", err),
	}
}
