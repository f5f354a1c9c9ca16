// backend-go/internal/projection/engine.go
package projection

import (
	"sort"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
)

// DeliverySource supplies scheduled deliveries per warehouse/product
// group, keyed by day-normalized delivery date. The purchase ledger is
// the production implementation.
type DeliverySource interface {
	DeliveriesFor(key domain.Key) map[time.Time]float64
}

// Options tunes engine behavior that is policy rather than math.
type Options struct {
	// CarryUnmatchedDeliveries applies a delivery whose date has no
	// forecast row at the group's next forecast date instead of
	// dropping the quantity. Deliveries past the forecast horizon
	// never affect the projection either way.
	CarryUnmatchedDeliveries bool
}

// Project replays the forecast timeline per (warehouse, product) group
// and derives the projected inventory series. Rows must already be
// sorted by (warehouse, product, date) ascending, which BuildBase
// guarantees. The computation is pure and total: calling it again with
// the same base rows and ledger state yields identical output.
//
// Per group, a running level starts at the group's on-hand quantity;
// each date first absorbs any quantity delivered that day, then
// subtracts the forecasted sales. The reorder point is recomputed per
// row as safety_stock + forecast_qty * lead_time, an instantaneous
// threshold independent of purchase history.
func Project(base []domain.BaseRow, deliveries DeliverySource, opts Options) []domain.ProjectedRow {
	out := make([]domain.ProjectedRow, 0, len(base))

	for start := 0; start < len(base); {
		end := start
		key := base[start].Key()
		for end < len(base) && base[end].Key() == key {
			end++
		}
		group := base[start:end]

		arrivals := alignDeliveries(group, deliveries.DeliveriesFor(key), opts)

		level := group[0].OnHand
		for i, row := range group {
			level += arrivals[i]
			level -= row.ForecastQty

			reorderPoint := row.SafetyStock + row.ForecastQty*row.LeadTimeDays
			out = append(out, domain.ProjectedRow{
				BaseRow:      row,
				Projected:    level,
				ReorderPoint: reorderPoint,
				BelowReorder: level <= reorderPoint,
			})
		}

		start = end
	}

	return out
}

// alignDeliveries maps delivered quantities onto group row positions.
// A delivery on an exact forecast date lands on that row; with
// carry-forward enabled, a delivery between forecast dates lands on the
// first later row.
func alignDeliveries(group []domain.BaseRow, byDate map[time.Time]float64, opts Options) []float64 {
	arrivals := make([]float64, len(group))
	if len(byDate) == 0 {
		return arrivals
	}

	position := make(map[time.Time]int, len(group))
	for i, row := range group {
		position[row.Date] = i
	}

	// Iterate dates in order so carried quantities land deterministically.
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		if i, ok := position[d]; ok {
			arrivals[i] += byDate[d]
			continue
		}
		if !opts.CarryUnmatchedDeliveries {
			continue
		}
		// First forecast row strictly after the delivery date.
		i := sort.Search(len(group), func(i int) bool { return group[i].Date.After(d) })
		if i < len(group) {
			arrivals[i] += byDate[d]
		}
	}

	return arrivals
}
