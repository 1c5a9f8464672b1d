package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/maltedev/wb-catalog-scraper/internal/metrics"
	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

var ErrNoRecords = errors.New("no records to export")

const sheetName = "Sheet1"

// Result reports what Export wrote.
type Result struct {
	CatalogRows     int
	FilteredRows    int
	FilteredWritten bool
}

// Exporter writes the catalog workbook and its filtered companion.
type Exporter struct {
	catalogFile  string
	filteredFile string
	filter       Filter
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewExporter(catalogFile, filteredFile string, filter Filter, m *metrics.Metrics) *Exporter {
	return &Exporter{
		catalogFile:  catalogFile,
		filteredFile: filteredFile,
		filter:       filter,
		metrics:      m,
		logger:       slog.Default().With("component", "exporter"),
	}
}

func (e *Exporter) Export(products []*models.Product) (Result, error) {
	var res Result
	if len(products) == 0 {
		return res, ErrNoRecords
	}

	e.logger.Info("exporting catalog", "products", len(products), "file", e.catalogFile)
	if err := writeWorkbook(e.catalogFile, models.Columns, rows(products, false)); err != nil {
		return res, fmt.Errorf("failed to write catalog: %w", err)
	}
	res.CatalogRows = len(products)
	e.metrics.AddExported("catalog", res.CatalogRows)

	filtered := e.filter.Apply(products)
	if len(filtered) == 0 {
		e.logger.Info("no products match the filter",
			"min_rating", e.filter.MinRating,
			"max_price", e.filter.MaxPrice)
		return res, nil
	}

	columns := append(append([]string{}, models.Columns...), "price_numeric")
	if err := writeWorkbook(e.filteredFile, columns, rows(filtered, true)); err != nil {
		return res, fmt.Errorf("failed to write filtered catalog: %w", err)
	}
	res.FilteredRows = len(filtered)
	res.FilteredWritten = true
	e.metrics.AddExported("filtered", res.FilteredRows)

	e.logger.Info("filtered catalog saved", "file", e.filteredFile, "products", res.FilteredRows)
	return res, nil
}

func rows(products []*models.Product, withNumericPrice bool) [][]any {
	out := make([][]any, 0, len(products))
	for _, p := range products {
		row := p.Row()
		if withNumericPrice {
			row = append(row, NumericPrice(p.Price))
		}
		out = append(out, row)
	}
	return out
}

func writeWorkbook(path string, header []string, data [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
