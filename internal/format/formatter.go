package format

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"noise-dashboard/internal/models"
	"noise-dashboard/pkg/metrics"
)

// Record is one row of the internal typed representation, keyed by the
// column registry.
type Record map[Column]any

// Table is a record-oriented tabular structure directly consumable by
// charting and table components.
type Table []Record

// Formatter converts between the wire representation (string-keyed records)
// and the internal typed representation, and reshapes regular time series.
// All timestamps are normalized into one canonical zone so downstream
// comparisons never mix offsets.
type Formatter struct {
	zone    *time.Location
	metrics *metrics.Collector
}

// NewFormatter creates a formatter normalizing timestamps into zone.
// A nil zone defaults to UTC; the metrics collector is optional.
func NewFormatter(zone *time.Location, collector *metrics.Collector) *Formatter {
	if zone == nil {
		zone = time.UTC
	}
	return &Formatter{zone: zone, metrics: collector}
}

// WireToInternal renames string keys to registry columns, drops any key not
// in the registry, and coerces values to each column's fixed kind.
// Re-applying it to already-typed data is a no-op.
func (f *Formatter) WireToInternal(wire map[string]any) (Record, error) {
	record := make(Record, len(wire))

	for key, value := range wire {
		col, ok := ColumnForWireName(key)
		if !ok {
			if f.metrics != nil {
				f.metrics.DroppedFieldsTotal.Inc()
			}
			continue
		}

		coerced, err := f.coerce(col, value)
		if err != nil {
			return nil, err
		}
		record[col] = coerced
	}

	return record, nil
}

// WireTableToInternal converts a full record set
func (f *Formatter) WireTableToInternal(wire []map[string]any) (Table, error) {
	table := make(Table, 0, len(wire))
	for _, row := range wire {
		record, err := f.WireToInternal(row)
		if err != nil {
			return nil, err
		}
		table = append(table, record)
	}
	return table, nil
}

// InternalToWire maps registry columns back to their wire names; used only
// when producing output for display or export.
func (f *Formatter) InternalToWire(record Record) map[string]any {
	wire := make(map[string]any, len(record))
	for col, value := range record {
		wire[col.WireName()] = value
	}
	return wire
}

// TableToWire converts a full table back to string-keyed records
func (f *Formatter) TableToWire(table Table) []map[string]any {
	wire := make([]map[string]any, 0, len(table))
	for _, record := range table {
		wire = append(wire, f.InternalToWire(record))
	}
	return wire
}

// FillMissingTimes reindexes a timestamp-keyed table onto the full regular
// range from its earliest to latest timestamp at the given frequency. Rows
// without a sample carry only the timestamp, so line charts render outages
// as gaps instead of interpolating across them.
func (f *Formatter) FillMissingTimes(table Table, freq time.Duration) Table {
	if len(table) == 0 || freq <= 0 {
		return table
	}

	byTime := make(map[int64]Record, len(table))
	var min, max time.Time
	for _, record := range table {
		ts, ok := record[ColTimestamp].(time.Time)
		if !ok {
			return table
		}
		byTime[ts.UnixNano()] = record

		if min.IsZero() || ts.Before(min) {
			min = ts
		}
		if max.IsZero() || ts.After(max) {
			max = ts
		}
	}

	filled := make(Table, 0, len(table))
	for t := min; !t.After(max); t = t.Add(freq) {
		if record, ok := byTime[t.UnixNano()]; ok {
			filled = append(filled, record)
			continue
		}
		filled = append(filled, Record{ColTimestamp: t})
		if f.metrics != nil {
			f.metrics.GapRowsFilledTotal.Inc()
		}
	}

	sort.Slice(filled, func(i, j int) bool {
		return filled[i][ColTimestamp].(time.Time).Before(filled[j][ColTimestamp].(time.Time))
	})

	return filled
}

// coerce converts a single value to the column's fixed kind
func (f *Formatter) coerce(col Column, value any) (any, error) {
	switch col.Kind() {
	case KindFloat:
		return f.coerceFloat(col, value)
	case KindInt:
		return f.coerceInt(col, value)
	case KindBool:
		return f.coerceBool(col, value)
	case KindTime:
		return f.coerceTime(col, value)
	default:
		return f.coerceString(col, value)
	}
}

func (f *Formatter) coerceFloat(col Column, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, coercionError(col, value, "numeric")
		}
		return parsed, nil
	default:
		return 0, coercionError(col, value, "numeric")
	}
}

func (f *Formatter) coerceInt(col Column, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, coercionError(col, value, "integer")
		}
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, coercionError(col, value, "integer")
		}
		return parsed, nil
	default:
		return 0, coercionError(col, value, "integer")
	}
}

func (f *Formatter) coerceBool(col Column, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, coercionError(col, value, "boolean")
		}
		return parsed, nil
	default:
		return false, coercionError(col, value, "boolean")
	}
}

// coerceTime normalizes aware timestamps into the canonical zone. Strings
// must carry a UTC offset; already-normalized values pass through unchanged.
func (f *Formatter) coerceTime(col Column, value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.In(f.zone), nil
	case string:
		parsed, err := models.ParseAwareTime(col.WireName(), v)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.In(f.zone), nil
	default:
		return time.Time{}, coercionError(col, value, "timestamp")
	}
}

func (f *Formatter) coerceString(col Column, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", coercionError(col, value, "string")
	}
}

func coercionError(col Column, value any, want string) *models.ValidationError {
	return &models.ValidationError{
		Field:   col.WireName(),
		Value:   fmt.Sprintf("%v", value),
		Message: fmt.Sprintf("expected %s value, got %T", want, value),
	}
}
