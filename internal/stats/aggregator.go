package stats

import (
	"github.com/lambalia/eats/internal/lifecycle"
	"github.com/lambalia/eats/internal/store"
)

// Snapshot holds the platform counters shown on the dashboard.
type Snapshot struct {
	ActiveOffers   int `json:"active_offers"`
	ActiveRequests int `json:"active_requests"`
	OpenOrders     int `json:"open_orders"`
	CooksOnline    int `json:"cooks_online"`
}

// Aggregator is pure read-side derivation over the listing store and the
// order lifecycle. It holds no state of its own and is never a source of
// entity truth; eventual consistency with the stores is acceptable.
type Aggregator struct {
	listings *store.ListingStore
	orders   *lifecycle.Manager
}

func NewAggregator(listings *store.ListingStore, orders *lifecycle.Manager) *Aggregator {
	return &Aggregator{listings: listings, orders: orders}
}

func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		ActiveOffers:   len(a.listings.ActiveOffers()),
		ActiveRequests: len(a.listings.ActiveRequests()),
		OpenOrders:     a.orders.CountOpen(),
		CooksOnline:    a.listings.ActiveCookCount(),
	}
}
