// Package export renders formatted noise tables to downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"noise-dashboard/internal/format"
	"noise-dashboard/pkg/metrics"
)

const xlsxSheetName = "Noise Data"

// Exporter writes registry-keyed tables as CSV or XLSX downloads
type Exporter struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewExporter creates an exporter
func NewExporter(logger *zap.Logger, collector *metrics.Collector) *Exporter {
	return &Exporter{logger: logger, metrics: collector}
}

// WriteCSV writes the table as CSV with a wire-name header row. Gap rows
// render their missing fields as empty cells.
func (e *Exporter) WriteCSV(w io.Writer, table format.Table) error {
	cols := columns(table)

	writer := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.WireName()
	}
	if err := writer.Write(header); err != nil {
		e.metrics.RecordExportError("csv")
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range table {
		row := make([]string, len(cols))
		for i, col := range cols {
			value, ok := record[col]
			if !ok {
				continue
			}
			row[i] = cellString(value)
		}
		if err := writer.Write(row); err != nil {
			e.metrics.RecordExportError("csv")
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		e.metrics.RecordExportError("csv")
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	e.metrics.RecordExport("csv")
	e.logger.Info("Exported table", zap.String("format", "csv"), zap.Int("rows", len(table)))
	return nil
}

// WriteXLSX writes the table as a single-sheet XLSX workbook
func (e *Exporter) WriteXLSX(w io.Writer, table format.Table) error {
	cols := columns(table)

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), xlsxSheetName); err != nil {
		e.metrics.RecordExportError("xlsx")
		return fmt.Errorf("failed to name XLSX sheet: %w", err)
	}

	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col.WireName()
	}
	if err := file.SetSheetRow(xlsxSheetName, "A1", &header); err != nil {
		e.metrics.RecordExportError("xlsx")
		return fmt.Errorf("failed to write XLSX header: %w", err)
	}

	for rowIdx, record := range table {
		row := make([]any, len(cols))
		for i, col := range cols {
			if value, ok := record[col]; ok {
				row[i] = cellValue(value)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			e.metrics.RecordExportError("xlsx")
			return fmt.Errorf("failed to address XLSX row: %w", err)
		}
		if err := file.SetSheetRow(xlsxSheetName, cell, &row); err != nil {
			e.metrics.RecordExportError("xlsx")
			return fmt.Errorf("failed to write XLSX row: %w", err)
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		e.metrics.RecordExportError("xlsx")
		return fmt.Errorf("failed to write XLSX file: %w", err)
	}

	e.metrics.RecordExport("xlsx")
	e.logger.Info("Exported table", zap.String("format", "xlsx"), zap.Int("rows", len(table)))
	return nil
}

// columns returns every column present in the table, in registry order, so
// exports have a stable header layout.
func columns(table format.Table) []format.Column {
	present := make(map[format.Column]bool)
	for _, record := range table {
		for col := range record {
			present[col] = true
		}
	}

	cols := make([]format.Column, 0, len(present))
	for col := range present {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

func cellString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// cellValue keeps native numeric and boolean cells, rendering timestamps as
// RFC 3339 strings for deterministic output.
func cellValue(value any) any {
	if t, ok := value.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return value
}
