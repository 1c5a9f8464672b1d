package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maltedev/wb-catalog-scraper/internal/models"
)

func product(name, price string, rating float64) *models.Product {
	p := models.NewProduct("https://www.wildberries.ru/catalog/1/detail.aspx", "1")
	p.Name = name
	p.Price = price
	p.Rating = rating
	return p
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func TestNumericPrice(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"9 000", 9000},
		{"12 490", 12490},
		{"1 234", 1234},
		{"от 5 000 до 7 000", 5000},
		{"990", 990},
		{models.DefaultPrice, 0},
		{"", 0},
		{"99 999 999 999 999 999 999", math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NumericPrice(tt.input))
		})
	}
}

func TestFilter_OverflowingPriceDoesNotMatch(t *testing.T) {
	p := models.NewProduct("https://www.wildberries.ru/catalog/1/detail.aspx", "1")
	p.Price = "99 999 999 999 999 999 999"
	p.Rating = 4.9

	assert.False(t, DefaultFilter().Matches(p))
}

func TestFilter_Apply(t *testing.T) {
	products := []*models.Product{
		product("a", "9 000", 4.6),
		product("b", "5 000", 4.4),
		product("c", "15 000", 5.0),
	}

	filtered := DefaultFilter().Apply(products)

	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].Name)
}

func TestFilter_Boundaries(t *testing.T) {
	f := DefaultFilter()

	assert.True(t, f.Matches(product("edge", "10 000", 4.5)))
	assert.False(t, f.Matches(product("over", "10 001", 4.5)))
	assert.True(t, f.Matches(product("no price", models.DefaultPrice, 4.9)))
}

func TestExporter_WritesBothWorkbooks(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "wildberries_catalog.xlsx")
	filtered := filepath.Join(dir, "filtered_catalog.xlsx")

	products := []*models.Product{
		product("a", "9 000", 4.6),
		product("b", "5 000", 4.4),
		product("c", "15 000", 5.0),
	}

	res, err := NewExporter(catalog, filtered, DefaultFilter(), nil).Export(products)
	require.NoError(t, err)
	assert.Equal(t, Result{CatalogRows: 3, FilteredRows: 1, FilteredWritten: true}, res)

	rows := readRows(t, catalog)
	require.Len(t, rows, 4)
	assert.Equal(t, models.Columns, rows[0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "9 000", rows[1][1])
	assert.Equal(t, "4.6", rows[1][2])
	assert.Equal(t, "c", rows[3][0])

	rows = readRows(t, filtered)
	require.Len(t, rows, 2)
	assert.Equal(t, "price_numeric", rows[0][len(rows[0])-1])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "9000", rows[1][len(rows[1])-1])
}

func TestExporter_NoMatchSkipsFilteredFile(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.xlsx")
	filtered := filepath.Join(dir, "filtered.xlsx")

	res, err := NewExporter(catalog, filtered, DefaultFilter(), nil).Export([]*models.Product{
		product("cheap but bad", "100", 3.0),
	})
	require.NoError(t, err)
	assert.False(t, res.FilteredWritten)

	_, err = os.Stat(catalog)
	assert.NoError(t, err)
	_, err = os.Stat(filtered)
	assert.True(t, os.IsNotExist(err))
}

func TestExporter_NoRecords(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.xlsx")

	_, err := NewExporter(catalog, filepath.Join(dir, "f.xlsx"), DefaultFilter(), nil).Export(nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = os.Stat(catalog)
	assert.True(t, os.IsNotExist(err))
}
