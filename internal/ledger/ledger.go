// backend-go/internal/ledger/ledger.go
package ledger

import (
	"sync"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/domain"
)

// Ledger is the append-only store of simulated purchases for one
// operator session. Events are never mutated or removed once recorded;
// every reader recomputes the projection from the full event list.
type Ledger struct {
	mu        sync.Mutex
	inventory map[domain.Key]domain.InventoryRecord
	events    []domain.PurchaseEvent
}

// New creates a ledger bound to the inventory index of the loaded
// dataset. The index supplies lead times for delivery-date derivation.
func New(inventory map[domain.Key]domain.InventoryRecord) *Ledger {
	return &Ledger{inventory: inventory}
}

// Record appends a purchase for the given warehouse/product. The
// delivery date is the order date plus the product's lead time, both
// normalized to day granularity. Registering against a combination
// with no inventory record fails with UnknownKeyError and leaves the
// ledger untouched.
func (l *Ledger) Record(warehouse, product string, orderDate time.Time, quantity float64) (domain.PurchaseEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.inventory[domain.Key{Warehouse: warehouse, Product: product}]
	if !ok {
		return domain.PurchaseEvent{}, &domain.UnknownKeyError{Warehouse: warehouse, Product: product}
	}

	ordered := domain.Day(orderDate)
	event := domain.PurchaseEvent{
		Warehouse:    warehouse,
		Product:      product,
		OrderDate:    ordered,
		DeliveryDate: domain.Day(ordered.AddDate(0, 0, int(inv.LeadTimeDays))),
		Quantity:     quantity,
	}
	l.events = append(l.events, event)
	return event, nil
}

// DeliveriesFor returns total delivered quantity per delivery date for
// one warehouse/product group. Events landing on the same date are
// summed. The returned map is owned by the caller.
func (l *Ledger) DeliveriesFor(key domain.Key) map[time.Time]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	deliveries := make(map[time.Time]float64)
	for _, e := range l.events {
		if e.Key() == key {
			deliveries[e.DeliveryDate] += e.Quantity
		}
	}
	return deliveries
}

// Events returns a copy of the recorded purchases in insertion order.
func (l *Ledger) Events() []domain.PurchaseEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.PurchaseEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len reports the number of recorded purchases.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
