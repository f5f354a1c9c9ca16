// backend-go/internal/projection/summary_test.go
package projection

import (
	"testing"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeFirstBreach(t *testing.T) {
	rows := Project(fiveDayBase(), staticDeliveries{}, Options{})

	summary := Summarize(rows, day(1), DefaultPolicy())
	require.Len(t, summary, 1)

	s := summary[0]
	assert.Equal(t, "W1", s.Warehouse)
	assert.Equal(t, "P1", s.Product)
	assert.Equal(t, 100.0, s.OnHand)
	require.NotNil(t, s.NextReorderDate)
	assert.Equal(t, day(1), *s.NextReorderDate)
	// 2*20 - 70 is negative, clamped to zero.
	assert.Equal(t, 0.0, s.SuggestedQty)
	require.NotNil(t, s.DaysUntilReorder)
	assert.Equal(t, 0, *s.DaysUntilReorder)
	assert.Equal(t, domain.StatusReorder, s.Status)
}

func TestSummarizeSuggestedQuantity(t *testing.T) {
	rows := []domain.ProjectedRow{
		{
			BaseRow:      domain.BaseRow{Warehouse: "W1", Product: "P1", Date: day(3), SafetyStock: 50},
			Projected:    30,
			ReorderPoint: 60,
			BelowReorder: true,
		},
	}

	summary := Summarize(rows, day(1), DefaultPolicy())
	require.Len(t, summary, 1)
	// 2*50 - 30 = 70 units to restore twice the safety buffer.
	assert.Equal(t, 70.0, summary[0].SuggestedQty)
	assert.Equal(t, 2, *summary[0].DaysUntilReorder)
	assert.Equal(t, domain.StatusNear, summary[0].Status)
}

func TestSummarizeNoBreach(t *testing.T) {
	base := fiveDayBase()
	for i := range base {
		base[i].OnHand = 10000
	}
	rows := Project(base, staticDeliveries{}, Options{})
	for _, r := range rows {
		require.False(t, r.BelowReorder)
	}

	summary := Summarize(rows, day(1), DefaultPolicy())
	require.Len(t, summary, 1)

	s := summary[0]
	assert.Nil(t, s.NextReorderDate)
	assert.Nil(t, s.DaysUntilReorder)
	assert.Equal(t, 0.0, s.SuggestedQty)
	assert.Equal(t, domain.StatusOK, s.Status)
}

func TestSummarizeStatusThresholds(t *testing.T) {
	mkRows := func(breach time.Time) []domain.ProjectedRow {
		return []domain.ProjectedRow{{
			BaseRow:      domain.BaseRow{Warehouse: "W1", Product: "P1", Date: breach, SafetyStock: 10},
			Projected:    0,
			ReorderPoint: 10,
			BelowReorder: true,
		}}
	}

	cases := []struct {
		name   string
		now    time.Time
		breach time.Time
		want   string
	}{
		{"past breach is overdue", day(10), day(4), domain.StatusReorder},
		{"breach today", day(4), day(4), domain.StatusReorder},
		{"breach within five days", day(4), day(8), domain.StatusNear},
		{"breach at the near boundary", day(4), day(9), domain.StatusNear},
		{"breach beyond the near window", day(4), day(10), domain.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := Summarize(mkRows(tc.breach), tc.now, DefaultPolicy())
			require.Len(t, summary, 1)
			assert.Equal(t, tc.want, summary[0].Status)
			require.NotNil(t, summary[0].DaysUntilReorder)
		})
	}
}

func TestSummarizeNegativeDays(t *testing.T) {
	rows := Project(fiveDayBase(), staticDeliveries{}, Options{})
	summary := Summarize(rows, day(6), DefaultPolicy())
	require.Len(t, summary, 1)
	require.NotNil(t, summary[0].DaysUntilReorder)
	assert.Equal(t, -5, *summary[0].DaysUntilReorder)
}

func TestSummarizeCustomPolicy(t *testing.T) {
	rows := []domain.ProjectedRow{{
		BaseRow:      domain.BaseRow{Warehouse: "W1", Product: "P1", Date: day(12), SafetyStock: 10},
		Projected:    0,
		ReorderPoint: 10,
		BelowReorder: true,
	}}

	policy := Policy{ReorderWithinDays: 3, NearWithinDays: 14}
	summary := Summarize(rows, day(1), policy)
	require.Len(t, summary, 1)
	assert.Equal(t, domain.StatusNear, summary[0].Status)
}

func TestSummarizeOneRowPerGroup(t *testing.T) {
	base := append(fiveDayBase(),
		domain.BaseRow{Warehouse: "W2", Product: "P9", Date: day(1), ForecastQty: 1, OnHand: 500, SafetyStock: 5, LeadTimeDays: 1},
		domain.BaseRow{Warehouse: "W2", Product: "P9", Date: day(2), ForecastQty: 1, OnHand: 500, SafetyStock: 5, LeadTimeDays: 1},
	)
	rows := Project(base, staticDeliveries{}, Options{})

	summary := Summarize(rows, day(1), DefaultPolicy())
	require.Len(t, summary, 2)
	assert.Equal(t, domain.StatusReorder, summary[0].Status)
	assert.Equal(t, domain.StatusOK, summary[1].Status)
}
