package models

const (
	EventOrderCreated   = "order.created"
	EventOrderUpdated   = "order.updated"
	EventOrderCancelled = "order.cancelled"
	EventMatchFound     = "match.found"
)

// Event is a lifecycle or match notification pushed to the live channels of
// the involved parties. The push channel is a convenience signal; order state
// itself stays authoritative in the lifecycle manager.
type Event struct {
	Type      string `json:"eventType"`
	OrderID   string `json:"orderId,omitempty"`
	ListingID string `json:"listingId,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
