// backend-go/internal/ingest/normalizer.go
package ingest

import (
	"fmt"
	"sort"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
)

// Required input columns, matched case- and whitespace-insensitively.
var (
	inventoryColumns = []string{"producto", "bodega", "inventario_actual", "stock_seguridad", "lead_time"}
	forecastColumns  = []string{"fecha", "producto", "bodega", "pronostico_ventas"}
)

// ParseInventory validates and aggregates a raw inventory table into
// one InventoryRecord per (warehouse, product): on-hand quantities are
// summed, safety stock and lead time are averaged over duplicates.
func ParseInventory(t *Table) ([]domain.InventoryRecord, error) {
	idxProduct := t.ColumnIndex("producto")
	idxWarehouse := t.ColumnIndex("bodega")
	idxOnHand := t.ColumnIndex("inventario_actual")
	idxSafety := t.ColumnIndex("stock_seguridad")
	idxLead := t.ColumnIndex("lead_time")

	if err := requireColumns(t.Name, inventoryColumns, idxProduct, idxWarehouse, idxOnHand, idxSafety, idxLead); err != nil {
		return nil, err
	}

	type invAgg struct {
		onHand    float64
		safetySum float64
		leadSum   float64
		count     float64
	}

	order := make([]domain.Key, 0)
	groups := make(map[domain.Key]*invAgg)
	for _, record := range t.Rows {
		key := domain.Key{Warehouse: cell(record, idxWarehouse), Product: cell(record, idxProduct)}
		if key.Warehouse == "" && key.Product == "" {
			continue
		}
		agg, ok := groups[key]
		if !ok {
			agg = &invAgg{}
			groups[key] = agg
			order = append(order, key)
		}
		agg.onHand += parseFloat(record, idxOnHand)
		agg.safetySum += parseFloat(record, idxSafety)
		agg.leadSum += parseFloat(record, idxLead)
		agg.count++
	}

	records := make([]domain.InventoryRecord, 0, len(order))
	for _, key := range order {
		agg := groups[key]
		records = append(records, domain.InventoryRecord{
			Warehouse:    key.Warehouse,
			Product:      key.Product,
			OnHand:       agg.onHand,
			SafetyStock:  agg.safetySum / agg.count,
			LeadTimeDays: agg.leadSum / agg.count,
		})
	}
	return records, nil
}

// ParseForecast validates and aggregates a raw forecast table into one
// ForecastRecord per (warehouse, product, date), summing quantities.
// Dates are normalized to day granularity.
func ParseForecast(t *Table) ([]domain.ForecastRecord, error) {
	idxDate := t.ColumnIndex("fecha")
	idxProduct := t.ColumnIndex("producto")
	idxWarehouse := t.ColumnIndex("bodega")
	idxQty := t.ColumnIndex("pronostico_ventas")

	if err := requireColumns(t.Name, forecastColumns, idxDate, idxProduct, idxWarehouse, idxQty); err != nil {
		return nil, err
	}

	type fcKey struct {
		domain.Key
		date string
	}

	order := make([]fcKey, 0)
	dates := make(map[fcKey]domain.ForecastRecord)
	for i, record := range t.Rows {
		warehouse := cell(record, idxWarehouse)
		product := cell(record, idxProduct)
		if warehouse == "" && product == "" {
			continue
		}
		date, err := parseDate(record, idxDate)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Name, i+2, err)
		}
		date = domain.Day(date)

		key := fcKey{Key: domain.Key{Warehouse: warehouse, Product: product}, date: date.Format("2006-01-02")}
		rec, ok := dates[key]
		if !ok {
			rec = domain.ForecastRecord{Warehouse: warehouse, Product: product, Date: date}
			order = append(order, key)
		}
		rec.Quantity += parseFloat(record, idxQty)
		dates[key] = rec
	}

	records := make([]domain.ForecastRecord, 0, len(order))
	for _, key := range order {
		records = append(records, dates[key])
	}
	return records, nil
}

// IndexInventory builds the (warehouse, product) lookup used by the
// join and by the purchase ledger's lead-time resolution.
func IndexInventory(records []domain.InventoryRecord) map[domain.Key]domain.InventoryRecord {
	index := make(map[domain.Key]domain.InventoryRecord, len(records))
	for _, rec := range records {
		index[rec.Key()] = rec
	}
	return index
}

// BuildBase left-joins forecast records onto inventory records keyed by
// (warehouse, product). Forecast keys without an inventory match are
// rejected: without a lead time the projection has nothing sound to
// compute. The result is sorted by (warehouse, product, date), the
// ordering the projection engine's temporal replay depends on.
func BuildBase(forecasts []domain.ForecastRecord, inventories []domain.InventoryRecord) ([]domain.BaseRow, error) {
	index := IndexInventory(inventories)

	rows := make([]domain.BaseRow, 0, len(forecasts))
	for _, fc := range forecasts {
		inv, ok := index[fc.Key()]
		if !ok {
			return nil, &domain.UnknownKeyError{Warehouse: fc.Warehouse, Product: fc.Product}
		}
		rows = append(rows, domain.BaseRow{
			Warehouse:    fc.Warehouse,
			Product:      fc.Product,
			Date:         fc.Date,
			ForecastQty:  fc.Quantity,
			OnHand:       inv.OnHand,
			SafetyStock:  inv.SafetyStock,
			LeadTimeDays: inv.LeadTimeDays,
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("joining forecast with inventory: %w", domain.ErrEmptyResult)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Warehouse != rows[j].Warehouse {
			return rows[i].Warehouse < rows[j].Warehouse
		}
		if rows[i].Product != rows[j].Product {
			return rows[i].Product < rows[j].Product
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	return rows, nil
}

func requireColumns(table string, names []string, indexes ...int) error {
	var missing []string
	for i, idx := range indexes {
		if idx < 0 {
			missing = append(missing, names[i])
		}
	}
	if len(missing) > 0 {
		return &domain.SchemaError{Table: table, Missing: missing}
	}
	return nil
}
