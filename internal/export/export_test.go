package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"noise-dashboard/internal/format"
	"noise-dashboard/pkg/metrics"
)

var testMetrics = metrics.NewCollector("export_test")

func sampleTable() format.Table {
	at := func(hour int) time.Time {
		return time.Date(2024, 3, 9, hour, 0, 0, 0, time.UTC)
	}
	return format.Table{
		{format.ColTimestamp: at(12), format.ColMin: 38.5, format.ColMax: 70.0, format.ColMean: 45.0},
		{format.ColTimestamp: at(13)}, // gap row
		{format.ColTimestamp: at(14), format.ColMin: 40.0, format.ColMax: 68.0, format.ColMean: 47.0},
	}
}

func TestWriteCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop(), testMetrics)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(&buf, sampleTable()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"timestamp", "min", "max", "mean"}, rows[0])
	assert.Equal(t, []string{"2024-03-09T12:00:00Z", "38.5", "70", "45"}, rows[1])
	assert.Equal(t, []string{"2024-03-09T13:00:00Z", "", "", ""}, rows[2], "gap rows export as empty cells")
}

func TestWriteCSV_Empty(t *testing.T) {
	exporter := NewExporter(zap.NewNop(), testMetrics)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(&buf, format.Table{}))
	assert.Equal(t, "\n", buf.String(), "an empty table yields only the empty header line")
}

func TestWriteXLSX(t *testing.T) {
	exporter := NewExporter(zap.NewNop(), testMetrics)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteXLSX(&buf, sampleTable()))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Noise Data")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"timestamp", "min", "max", "mean"}, rows[0])
	assert.Equal(t, "2024-03-09T12:00:00Z", rows[1][0])
	assert.Equal(t, "38.5", rows[1][1])
}
