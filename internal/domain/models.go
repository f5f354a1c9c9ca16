// backend-go/internal/domain/models.go
package domain

import "time"

// Key identifies a warehouse/product combination, the grain every table
// in the planning pipeline is grouped by.
type Key struct {
	Warehouse string
	Product   string
}

// InventoryRecord is one aggregated inventory row. After normalization
// there is exactly one record per (warehouse, product).
type InventoryRecord struct {
	Warehouse    string  `json:"bodega"`
	Product      string  `json:"producto"`
	OnHand       float64 `json:"inventario_actual"`
	SafetyStock  float64 `json:"stock_seguridad"`
	LeadTimeDays float64 `json:"lead_time"`
}

// Key returns the grouping key for the record.
func (r InventoryRecord) Key() Key {
	return Key{Warehouse: r.Warehouse, Product: r.Product}
}

// ForecastRecord is one aggregated forecast row. After normalization
// (warehouse, product, date) is unique and Date is day-granular.
type ForecastRecord struct {
	Warehouse string    `json:"bodega"`
	Product   string    `json:"producto"`
	Date      time.Time `json:"fecha"`
	Quantity  float64   `json:"pronostico_ventas"`
}

// Key returns the grouping key for the record.
func (r ForecastRecord) Key() Key {
	return Key{Warehouse: r.Warehouse, Product: r.Product}
}

// BaseRow is the left join of a forecast row with its inventory record.
// The base dataset is immutable once built; the projection engine
// re-derives everything from BaseRow plus the purchase ledger.
type BaseRow struct {
	Warehouse    string    `json:"bodega"`
	Product      string    `json:"producto"`
	Date         time.Time `json:"fecha"`
	ForecastQty  float64   `json:"pronostico_ventas"`
	OnHand       float64   `json:"inventario_actual"`
	SafetyStock  float64   `json:"stock_seguridad"`
	LeadTimeDays float64   `json:"lead_time"`
}

// Key returns the grouping key for the row.
func (r BaseRow) Key() Key {
	return Key{Warehouse: r.Warehouse, Product: r.Product}
}

// PurchaseEvent is one simulated purchase. Events are append-only and
// live for the operator session; DeliveryDate is OrderDate plus the
// product's lead time, normalized to day granularity.
type PurchaseEvent struct {
	Warehouse    string    `json:"bodega"`
	Product      string    `json:"producto"`
	OrderDate    time.Time `json:"fecha_compra"`
	DeliveryDate time.Time `json:"fecha_entrega"`
	Quantity     float64   `json:"cantidad"`
}

// Key returns the grouping key for the event.
func (e PurchaseEvent) Key() Key {
	return Key{Warehouse: e.Warehouse, Product: e.Product}
}

// ProjectedRow extends a BaseRow with the projected inventory level and
// the per-date reorder threshold.
type ProjectedRow struct {
	BaseRow
	Projected    float64 `json:"inventario_proyectado"`
	ReorderPoint float64 `json:"punto_reorden"`
	BelowReorder bool    `json:"alerta"`
}

// Summary status classifications.
const (
	StatusReorder = "Reorden"
	StatusNear    = "Cerca"
	StatusOK      = "OK"
)

// SummaryRow is the per-group reorder summary. NextReorderDate and
// DaysUntilReorder are nil when the group never breaches its reorder
// point within the forecast horizon.
type SummaryRow struct {
	Warehouse        string     `json:"bodega"`
	Product          string     `json:"producto"`
	OnHand           float64    `json:"inventario_actual"`
	SafetyStock      float64    `json:"stock_seguridad"`
	LeadTimeDays     float64    `json:"lead_time"`
	NextReorderDate  *time.Time `json:"fecha_siguiente_compra"`
	SuggestedQty     float64    `json:"cantidad_sugerida"`
	DaysUntilReorder *int       `json:"dias_hasta_reorden"`
	Status           string     `json:"estado"`
}

// Day truncates a timestamp to calendar-day granularity in UTC. All
// dates flowing through the pipeline (forecast dates, order dates,
// delivery dates) are normalized with it before comparison.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
