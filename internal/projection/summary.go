// backend-go/internal/projection/summary.go
package projection

import (
	"math"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
)

// Policy holds the status-classification thresholds. They encode a
// business rule, not an invariant of the projection math, so they come
// from configuration rather than constants.
type Policy struct {
	// ReorderWithinDays classifies a group as "Reorden" when the days
	// until its first breach are at or below this value.
	ReorderWithinDays int
	// NearWithinDays classifies a group as "Cerca" when the days until
	// its first breach are at or below this value.
	NearWithinDays int
}

// DefaultPolicy mirrors the policy the planning team has run with so
// far: reorder when the breach is due or overdue, warn within 5 days.
func DefaultPolicy() Policy {
	return Policy{ReorderWithinDays: 0, NearWithinDays: 5}
}

// Summarize derives one SummaryRow per (warehouse, product) group from
// a projected dataset. Rows must be in the engine's output order
// (grouped, dates ascending).
//
// The first row with a breached reorder point yields the next reorder
// date; the suggested quantity tops the projected level at that date
// back up to twice the safety stock. Groups that never breach get a
// nil reorder date, zero suggestion and "OK" status.
func Summarize(rows []domain.ProjectedRow, now time.Time, policy Policy) []domain.SummaryRow {
	today := domain.Day(now)
	out := make([]domain.SummaryRow, 0)

	for start := 0; start < len(rows); {
		end := start
		key := rows[start].Key()
		for end < len(rows) && rows[end].Key() == key {
			end++
		}
		group := rows[start:end]
		out = append(out, summarizeGroup(group, today, policy))
		start = end
	}

	return out
}

func summarizeGroup(group []domain.ProjectedRow, today time.Time, policy Policy) domain.SummaryRow {
	first := group[0]
	row := domain.SummaryRow{
		Warehouse:    first.Warehouse,
		Product:      first.Product,
		OnHand:       first.OnHand,
		SafetyStock:  first.SafetyStock,
		LeadTimeDays: first.LeadTimeDays,
		Status:       domain.StatusOK,
	}

	for _, r := range group {
		if !r.BelowReorder {
			continue
		}
		breach := r.Date
		row.NextReorderDate = &breach
		row.SuggestedQty = math.Max(r.SafetyStock*2-r.Projected, 0)

		days := daysBetween(today, breach)
		row.DaysUntilReorder = &days

		switch {
		case days <= policy.ReorderWithinDays:
			row.Status = domain.StatusReorder
		case days <= policy.NearWithinDays:
			row.Status = domain.StatusNear
		}
		break
	}

	return row
}

// daysBetween counts whole calendar days from a to b; negative when b
// is in the past. Both arguments are expected day-normalized.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
