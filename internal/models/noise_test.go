package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// TestNoiseRequestParams_Validate covers the parameter invariants checked
// before any network call is made.
func TestNoiseRequestParams_Validate(t *testing.T) {
	page := func(p int) *int { return &p }

	tests := []struct {
		name    string
		params  NoiseRequestParams
		wantErr bool
	}{
		{
			name:    "empty params valid",
			params:  NoiseRequestParams{},
			wantErr: false,
		},
		{
			name:    "page zero valid",
			params:  NoiseRequestParams{Page: page(0)},
			wantErr: false,
		},
		{
			name:    "negative page rejected",
			params:  NoiseRequestParams{Page: page(-1)},
			wantErr: true,
		},
		{
			name:    "life-time without page valid",
			params:  NoiseRequestParams{Granularity: GranularityLifeTime},
			wantErr: false,
		},
		{
			name:    "life-time with page rejected",
			params:  NoiseRequestParams{Granularity: GranularityLifeTime, Page: page(0)},
			wantErr: true,
		},
		{
			name:    "unknown granularity rejected",
			params:  NoiseRequestParams{Granularity: "weekly"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()

			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

// TestNoiseRequestParams_Query checks that unset fields are omitted from the
// query string entirely, never sent as empty or null.
func TestNoiseRequestParams_Query(t *testing.T) {
	start := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	page := 2

	tests := []struct {
		name       string
		params     NoiseRequestParams
		wantKeys   []string
		absentKeys []string
	}{
		{
			name:       "defaults serialize granularity only",
			params:     NoiseRequestParams{},
			wantKeys:   []string{"granularity"},
			absentKeys: []string{"start", "end", "page"},
		},
		{
			name:       "window and page included when set",
			params:     NoiseRequestParams{Granularity: GranularityHourly, Start: &start, End: &end, Page: &page},
			wantKeys:   []string{"granularity", "start", "end", "page"},
			absentKeys: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.params.Query()

			for _, key := range tt.wantKeys {
				if !values.Has(key) {
					t.Errorf("Query() missing key %q", key)
				}
			}
			for _, key := range tt.absentKeys {
				if values.Has(key) {
					t.Errorf("Query() should omit unset key %q, got %q", key, values.Get(key))
				}
			}
		})
	}

	t.Run("unset granularity defaults to raw", func(t *testing.T) {
		params := NoiseRequestParams{}
		if got := params.Query().Get("granularity"); got != "raw" {
			t.Errorf("granularity = %q, want %q", got, "raw")
		}
	})
}

// TestLocation_UnmarshalJSON covers required-field validation and the
// numeric identifier coercion.
func TestLocation_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		wantID  string
	}{
		{
			name:    "string id",
			payload: `{"id":"a99","label":"Market St","latitude":42.36,"longitude":-71.06,"radius":25,"active":true}`,
			wantErr: false,
			wantID:  "a99",
		},
		{
			name:    "integer id coerced to string",
			payload: `{"id":512,"label":"Elm St","latitude":42.0,"longitude":-71.0,"radius":30.5,"active":false}`,
			wantErr: false,
			wantID:  "512",
		},
		{
			name:    "missing latitude",
			payload: `{"id":"a99","label":"Market St","longitude":-71.06,"radius":25,"active":true}`,
			wantErr: true,
		},
		{
			name:    "non-numeric latitude",
			payload: `{"id":"a99","label":"Market St","latitude":"north","longitude":-71.06,"radius":25,"active":true}`,
			wantErr: true,
		},
		{
			name:    "missing active flag",
			payload: `{"id":"a99","label":"Market St","latitude":42.36,"longitude":-71.06,"radius":25}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc Location
			err := json.Unmarshal([]byte(tt.payload), &loc)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && loc.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", loc.ID, tt.wantID)
			}
		})
	}
}

// TestNoiseTimed_UnmarshalJSON checks the timed measurement shape including
// the aware-timestamp requirement.
func TestNoiseTimed_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid with offset",
			payload: `{"timestamp":"2024-03-09T14:00:00+01:00","min":38.5,"max":72.1,"mean":45.0}`,
			wantErr: false,
		},
		{
			name:    "valid with zulu",
			payload: `{"timestamp":"2024-03-09T14:00:00Z","min":38.5,"max":72.1,"mean":45.0}`,
			wantErr: false,
		},
		{
			name:    "naive timestamp rejected",
			payload: `{"timestamp":"2024-03-09T14:00:00","min":38.5,"max":72.1,"mean":45.0}`,
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			payload: `{"min":38.5,"max":72.1,"mean":45.0}`,
			wantErr: true,
		},
		{
			name:    "life-time shape rejected by timed model",
			payload: `{"start":"2024-01-01T00:00:00Z","end":"2024-03-10T00:00:00Z","count":120,"min":30,"max":80,"mean":50}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m NoiseTimed
			err := json.Unmarshal([]byte(tt.payload), &m)

			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNoiseAggregate_UnmarshalJSON checks the life-time aggregate shape.
func TestNoiseAggregate_UnmarshalJSON(t *testing.T) {
	payload := `{"start":"2024-01-01T00:00:00Z","end":"2024-03-10T00:00:00Z","count":120,"min":30.0,"max":80.0,"mean":50.5}`

	var m NoiseAggregate
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if m.Count != 120 {
		t.Errorf("Count = %d, want 120", m.Count)
	}
	wantEnd := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !m.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", m.End, wantEnd)
	}

	t.Run("timed shape rejected by aggregate model", func(t *testing.T) {
		var agg NoiseAggregate
		err := json.Unmarshal([]byte(`{"timestamp":"2024-03-09T14:00:00Z","min":30,"max":80,"mean":50}`), &agg)
		if err == nil {
			t.Error("expected error for timed payload decoded as aggregate")
		}
	})
}

// TestParseAwareTime checks the offset requirement directly.
func TestParseAwareTime(t *testing.T) {
	if _, err := ParseAwareTime("timestamp", "2024-03-09T14:00:00+02:00"); err != nil {
		t.Errorf("offset timestamp rejected: %v", err)
	}

	_, err := ParseAwareTime("timestamp", "2024-03-09 14:00:00")
	if err == nil {
		t.Fatal("naive timestamp accepted")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("error type = %T, want *ValidationError", err)
	}
}
