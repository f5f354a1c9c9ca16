// backend-go/internal/service/planner.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/cache"
	"github.com/dvalenciar/reorden-py/backend-go/internal/config"
	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/dvalenciar/reorden-py/backend-go/internal/export"
	"github.com/dvalenciar/reorden-py/backend-go/internal/ingest"
	"github.com/dvalenciar/reorden-py/backend-go/internal/ledger"
	"github.com/dvalenciar/reorden-py/backend-go/internal/projection"
	"github.com/dvalenciar/reorden-py/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoDataset is returned when an operation needs a loaded dataset
// and none has been uploaded yet this session.
var ErrNoDataset = errors.New("no dataset loaded; upload inventory and forecast files first")

// ErrStorageDisabled is returned by PublishExport when no object
// storage is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// ExportFilename is the artifact name used for downloads and as the
// basename of published objects.
const ExportFilename = "resumen_proyeccion_compras.xlsx"

// Filter narrows projection and summary output to selected warehouses
// and/or products. Empty slices select everything.
type Filter struct {
	Warehouses []string
	Products   []string
}

func (f Filter) matches(warehouse, product string) bool {
	return contains(f.Warehouses, warehouse) && contains(f.Products, product)
}

func contains(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// PurchaseRequest is the input of a purchase registration.
type PurchaseRequest struct {
	Warehouse string
	Product   string
	OrderDate time.Time
	Quantity  float64
}

// DatasetStats reports the outcome of a dataset load.
type DatasetStats struct {
	InventoryRecords int `json:"inventory_records"`
	ForecastRecords  int `json:"forecast_records"`
	BaseRows         int `json:"base_rows"`
}

// SeriesPoint is one date of a group's projected time series.
type SeriesPoint struct {
	Date         time.Time `json:"fecha"`
	Projected    float64   `json:"inventario_proyectado"`
	ReorderPoint float64   `json:"punto_reorden"`
	BelowReorder bool      `json:"alerta"`
}

// DeliveryMarker marks a purchase delivery on a group's chart.
type DeliveryMarker struct {
	Date     time.Time `json:"fecha_entrega"`
	Quantity float64   `json:"cantidad"`
}

// SeriesGroup is the chart feed for one warehouse/product: the
// projected series plus reorder and delivery markers.
type SeriesGroup struct {
	Warehouse   string           `json:"bodega"`
	Product     string           `json:"producto"`
	SafetyStock float64          `json:"stock_seguridad"`
	Points      []SeriesPoint    `json:"puntos"`
	FirstBreach *time.Time       `json:"fecha_reorden"`
	Deliveries  []DeliveryMarker `json:"entregas"`
}

// Planner owns one operator session: the immutable base dataset, the
// append-only purchase ledger and the derived projections. Every read
// recomputes the projection from base plus ledger, so there is no
// partially updated derived state to guard.
type Planner struct {
	policy projection.Policy
	opts   projection.Options
	cache  cache.SummaryCache
	store  storage.ObjectStorage
	now    func() time.Time

	mu        sync.RWMutex
	inventory []domain.InventoryRecord
	base      []domain.BaseRow
	purchases *ledger.Ledger
	version   int64
}

// NewPlanner wires a planner with the configured reorder policy. The
// storage client may be nil, which disables export publishing.
func NewPlanner(policyCfg config.PolicyConfig, summaryCache cache.SummaryCache, store storage.ObjectStorage) *Planner {
	if summaryCache == nil {
		summaryCache = cache.NewNoopSummaryCache()
	}
	return &Planner{
		policy: projection.Policy{
			ReorderWithinDays: policyCfg.ReorderWithinDays,
			NearWithinDays:    policyCfg.NearWithinDays,
		},
		opts:  projection.Options{CarryUnmatchedDeliveries: policyCfg.CarryUnmatchedDeliveries},
		cache: summaryCache,
		store: store,
		now:   time.Now,
	}
}

// LoadDataset reads, normalizes and joins the two input files,
// replacing the session's base dataset and resetting the ledger. The
// two files are parsed concurrently; the join runs once both finish.
func (p *Planner) LoadDataset(ctx context.Context, inventoryPath, forecastPath string) (DatasetStats, error) {
	var (
		inventories []domain.InventoryRecord
		forecasts   []domain.ForecastRecord
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		tbl, err := ingest.ReadTable("inventario", inventoryPath)
		if err != nil {
			return err
		}
		inventories, err = ingest.ParseInventory(tbl)
		return err
	})
	g.Go(func() error {
		tbl, err := ingest.ReadTable("pronostico", forecastPath)
		if err != nil {
			return err
		}
		forecasts, err = ingest.ParseForecast(tbl)
		return err
	})
	if err := g.Wait(); err != nil {
		return DatasetStats{}, err
	}

	base, err := ingest.BuildBase(forecasts, inventories)
	if err != nil {
		return DatasetStats{}, err
	}

	p.mu.Lock()
	p.inventory = inventories
	p.base = base
	p.purchases = ledger.New(ingest.IndexInventory(inventories))
	p.version++
	p.mu.Unlock()

	p.invalidateCache(ctx)

	log.Info().
		Int("inventory_records", len(inventories)).
		Int("forecast_records", len(forecasts)).
		Int("base_rows", len(base)).
		Msg("dataset loaded")

	return DatasetStats{
		InventoryRecords: len(inventories),
		ForecastRecords:  len(forecasts),
		BaseRows:         len(base),
	}, nil
}

// RegisterPurchase validates and appends a simulated purchase. The
// quantity must be a whole number of at least one unit. Prior ledger
// state is unaffected by a failed registration.
func (p *Planner) RegisterPurchase(ctx context.Context, req PurchaseRequest) (domain.PurchaseEvent, error) {
	if req.Quantity < 1 || req.Quantity != math.Trunc(req.Quantity) {
		return domain.PurchaseEvent{}, fmt.Errorf("purchase quantity must be a whole number of at least 1, got %v", req.Quantity)
	}

	p.mu.Lock()
	if p.base == nil {
		p.mu.Unlock()
		return domain.PurchaseEvent{}, ErrNoDataset
	}
	event, err := p.purchases.Record(req.Warehouse, req.Product, req.OrderDate, req.Quantity)
	if err == nil {
		p.version++
	}
	p.mu.Unlock()

	if err != nil {
		return domain.PurchaseEvent{}, err
	}

	p.invalidateCache(ctx)

	log.Info().
		Str("bodega", event.Warehouse).
		Str("producto", event.Product).
		Float64("cantidad", event.Quantity).
		Time("fecha_entrega", event.DeliveryDate).
		Msg("purchase registered")

	return event, nil
}

// Projection recomputes the full projected dataset and returns the
// rows matching the filter.
func (p *Planner) Projection(ctx context.Context, filter Filter) ([]domain.ProjectedRow, error) {
	rows, err := p.projectAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.ProjectedRow, 0, len(rows))
	for _, row := range rows {
		if filter.matches(row.Warehouse, row.Product) {
			filtered = append(filtered, row)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("projection: %w", domain.ErrEmptyResult)
	}
	return filtered, nil
}

// Summary recomputes the reorder summary for the groups matching the
// filter, consulting the summary cache first.
func (p *Planner) Summary(ctx context.Context, filter Filter) ([]domain.SummaryRow, error) {
	p.mu.RLock()
	version := p.version
	p.mu.RUnlock()

	key := cache.SummaryKey(version, filter.Warehouses, filter.Products)
	if rows, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		return rows, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("summary cache get failed")
	}

	projected, err := p.Projection(ctx, filter)
	if err != nil {
		return nil, err
	}
	summary := projection.Summarize(projected, p.now(), p.policy)

	if err := p.cache.Set(ctx, key, summary); err != nil {
		log.Warn().Err(err).Msg("summary cache set failed")
	}
	return summary, nil
}

// Purchases returns the session's recorded purchases in order.
func (p *Planner) Purchases() ([]domain.PurchaseEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.base == nil {
		return nil, ErrNoDataset
	}
	return p.purchases.Events(), nil
}

// Catalog returns the distinct warehouses and products of the loaded
// dataset, sorted, for filter widgets.
func (p *Planner) Catalog() (warehouses, products []string, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.base == nil {
		return nil, nil, ErrNoDataset
	}

	seenW := make(map[string]struct{})
	seenP := make(map[string]struct{})
	for _, row := range p.base {
		if _, ok := seenW[row.Warehouse]; !ok {
			seenW[row.Warehouse] = struct{}{}
			warehouses = append(warehouses, row.Warehouse)
		}
		if _, ok := seenP[row.Product]; !ok {
			seenP[row.Product] = struct{}{}
			products = append(products, row.Product)
		}
	}
	sort.Strings(warehouses)
	sort.Strings(products)
	return warehouses, products, nil
}

// ChartSeries builds the per-group chart feed: projected series with
// reorder and delivery markers, for the groups matching the filter.
func (p *Planner) ChartSeries(ctx context.Context, filter Filter) ([]SeriesGroup, error) {
	rows, err := p.Projection(ctx, filter)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	deliveriesFor := p.purchases
	p.mu.RUnlock()

	groups := make([]SeriesGroup, 0)
	for start := 0; start < len(rows); {
		end := start
		key := rows[start].Key()
		for end < len(rows) && rows[end].Key() == key {
			end++
		}

		group := SeriesGroup{
			Warehouse:   key.Warehouse,
			Product:     key.Product,
			SafetyStock: rows[start].SafetyStock,
			Points:      make([]SeriesPoint, 0, end-start),
			Deliveries:  make([]DeliveryMarker, 0),
		}
		for _, row := range rows[start:end] {
			group.Points = append(group.Points, SeriesPoint{
				Date:         row.Date,
				Projected:    row.Projected,
				ReorderPoint: row.ReorderPoint,
				BelowReorder: row.BelowReorder,
			})
			if row.BelowReorder && group.FirstBreach == nil {
				breach := row.Date
				group.FirstBreach = &breach
			}
		}

		delivered := deliveriesFor.DeliveriesFor(key)
		dates := make([]time.Time, 0, len(delivered))
		for d := range delivered {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		for _, d := range dates {
			group.Deliveries = append(group.Deliveries, DeliveryMarker{Date: d, Quantity: delivered[d]})
		}

		groups = append(groups, group)
		start = end
	}

	return groups, nil
}

// ExportWorkbook builds the multi-sheet export artifact for the whole
// session (unfiltered).
func (p *Planner) ExportWorkbook(ctx context.Context) ([]byte, error) {
	rows, err := p.projectAll()
	if err != nil {
		return nil, err
	}
	summary := projection.Summarize(rows, p.now(), p.policy)

	p.mu.RLock()
	events := p.purchases.Events()
	p.mu.RUnlock()

	buf, err := export.BuildWorkbook(summary, rows, events)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PublishExport uploads the export artifact to object storage and
// returns the object key.
func (p *Planner) PublishExport(ctx context.Context) (string, error) {
	if p.store == nil {
		return "", ErrStorageDisabled
	}

	payload, err := p.ExportWorkbook(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%s_%s", p.now().UTC().Format("20060102T150405Z"), ExportFilename)
	const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if err := p.store.UploadObject(ctx, key, payload, xlsxContentType); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("bytes", len(payload)).Msg("export published")
	return key, nil
}

func (p *Planner) projectAll() ([]domain.ProjectedRow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.base == nil {
		return nil, ErrNoDataset
	}
	return projection.Project(p.base, p.purchases, p.opts), nil
}

func (p *Planner) invalidateCache(ctx context.Context) {
	if err := p.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("summary cache invalidation failed")
	}
}
