// backend-go/internal/ingest/normalizer_test.go
package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInventoryAggregatesDuplicates(t *testing.T) {
	tbl := &Table{
		Name:    "inventario",
		Columns: []string{" Producto ", "BODEGA", "Inventario_Actual", "Stock_Seguridad", "Lead_Time"},
		Rows: [][]string{
			{"P1", "W1", "60", "20", "2"},
			{"P1", "W1", "40", "10", "4"},
			{"P2", "W1", "15", "5", "7"},
		},
	}

	records, err := ParseInventory(tbl)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.InventoryRecord{
		Warehouse:    "W1",
		Product:      "P1",
		OnHand:       100, // summed
		SafetyStock:  15,  // averaged
		LeadTimeDays: 3,   // averaged
	}, records[0])
	assert.Equal(t, "P2", records[1].Product)
}

func TestParseInventorySchemaError(t *testing.T) {
	tbl := &Table{
		Name:    "inventario",
		Columns: []string{"producto", "bodega", "inventario_actual"},
	}

	_, err := ParseInventory(tbl)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "inventario", schemaErr.Table)
	assert.ElementsMatch(t, []string{"stock_seguridad", "lead_time"}, schemaErr.Missing)
}

func TestParseForecastAggregatesAndNormalizesDates(t *testing.T) {
	tbl := &Table{
		Name:    "pronostico",
		Columns: []string{"Fecha", "Producto", "Bodega", "Pronostico_Ventas"},
		Rows: [][]string{
			{"2025-03-02 09:30:00", "P1", "W1", "10"},
			{"2025-03-02", "P1", "W1", "5"},
			{"2025-03-01", "P1", "W1", "30"},
		},
	}

	records, err := ParseForecast(tbl)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Time-of-day discarded, same-day quantities summed.
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, 15.0, records[0].Quantity)
	assert.Equal(t, 30.0, records[1].Quantity)
}

func TestParseForecastSchemaError(t *testing.T) {
	tbl := &Table{
		Name:    "pronostico",
		Columns: []string{"fecha", "producto", "bodega"},
	}

	_, err := ParseForecast(tbl)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"pronostico_ventas"}, schemaErr.Missing)
}

func TestParseForecastBadDate(t *testing.T) {
	tbl := &Table{
		Name:    "pronostico",
		Columns: []string{"fecha", "producto", "bodega", "pronostico_ventas"},
		Rows:    [][]string{{"not-a-date", "P1", "W1", "10"}},
	}

	_, err := ParseForecast(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestBuildBaseSortsAndJoins(t *testing.T) {
	inventories := []domain.InventoryRecord{
		{Warehouse: "W1", Product: "P1", OnHand: 100, SafetyStock: 20, LeadTimeDays: 3},
		{Warehouse: "W1", Product: "P2", OnHand: 55, SafetyStock: 5, LeadTimeDays: 2},
	}
	forecasts := []domain.ForecastRecord{
		{Warehouse: "W1", Product: "P2", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 3},
		{Warehouse: "W1", Product: "P1", Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Quantity: 30},
		{Warehouse: "W1", Product: "P1", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 25},
	}

	rows, err := BuildBase(forecasts, inventories)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Ascending (warehouse, product, date).
	assert.Equal(t, "P1", rows[0].Product)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, "P1", rows[1].Product)
	assert.Equal(t, "P2", rows[2].Product)

	// Inventory fields carried onto each forecast row.
	assert.Equal(t, 100.0, rows[0].OnHand)
	assert.Equal(t, 20.0, rows[1].SafetyStock)
	assert.Equal(t, 2.0, rows[2].LeadTimeDays)
}

func TestBuildBaseRejectsOrphanForecast(t *testing.T) {
	forecasts := []domain.ForecastRecord{
		{Warehouse: "W9", Product: "P9", Date: time.Now(), Quantity: 1},
	}

	_, err := BuildBase(forecasts, nil)
	var unknown *domain.UnknownKeyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "W9", unknown.Warehouse)
}

func TestBuildBaseEmptyResult(t *testing.T) {
	_, err := BuildBase(nil, []domain.InventoryRecord{{Warehouse: "W1", Product: "P1"}})
	assert.True(t, errors.Is(err, domain.ErrEmptyResult))
}
