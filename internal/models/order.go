package models

import "time"

const (
	OrderStatusCreated        = "created"
	OrderStatusPreparing      = "preparing"
	OrderStatusReadyForPickup = "ready_for_pickup"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusDisputed       = "disputed"
)

// Order is the binding contract created when an offer and an eater (or a
// request and a cook) are matched. Exactly one of OfferID/RequestID is set.
type Order struct {
	ID               string               `json:"id"`
	OfferID          string               `json:"offer_id,omitempty"`
	RequestID        string               `json:"request_id,omitempty"`
	CookID           string               `json:"cook_id"`
	EaterID          string               `json:"eater_id"`
	DishName         string               `json:"dish_name"`
	ServiceType      ServiceType          `json:"service_type"`
	Servings         int                  `json:"servings"`
	AgreedPrice      float64              `json:"agreed_price"`
	DeliveryFee      float64              `json:"delivery_fee"`
	TotalAmount      float64              `json:"total_amount"`
	CommissionRate   float64              `json:"commission_rate"`
	CookEarnings     float64              `json:"cook_earnings"`
	TrackingCode     string               `json:"tracking_code"`
	Status           string               `json:"status"`
	OrderedAt        time.Time            `json:"ordered_at"`
	EstimatedReadyAt time.Time            `json:"estimated_ready_at,omitempty"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	StatusTimestamps map[string]time.Time `json:"status_timestamps"`
}

// IsTerminal reports whether no further forward transition is possible.
// Disputed is recorded but not processed further, so it counts as terminal.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed:
		return true
	}
	return false
}

// IsParty reports whether the given user is the cook or the eater on the order.
func (o *Order) IsParty(userID string) bool {
	return o.CookID == userID || o.EaterID == userID
}
