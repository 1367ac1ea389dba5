package models

import "time"

type ServiceType string

const (
	ServicePickup   ServiceType = "pickup"
	ServiceDelivery ServiceType = "delivery"
	ServiceDineIn   ServiceType = "dine_in"
)

const (
	OfferStatusActive    = "active"
	OfferStatusExpired   = "expired"
	OfferStatusWithdrawn = "withdrawn"
	OfferStatusExhausted = "exhausted"

	RequestStatusActive    = "active"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusExpired   = "expired"
	RequestStatusWithdrawn = "withdrawn"
)

// Offer is a cook's time-boxed willingness to sell a number of servings of a dish.
type Offer struct {
	ID                string        `json:"id"`
	CookID            string        `json:"cook_id"`
	DishName          string        `json:"dish_name"`
	Cuisine           string        `json:"cuisine"`
	PricePerServing   float64       `json:"price_per_serving"`
	QuantityRemaining int           `json:"quantity_remaining"`
	ServiceTypes      []ServiceType `json:"service_types"`
	DeliveryFee       float64       `json:"delivery_fee"`
	DeliveryRadiusKm  float64       `json:"delivery_radius_km"`
	Ingredients       []string      `json:"ingredients"`
	CookRating        float64       `json:"cook_rating"`
	ReadyAt           time.Time     `json:"ready_at"`
	AvailableUntil    time.Time     `json:"available_until"`
	Location          Location      `json:"location"`
	Status            string        `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// AllowsService reports whether the cook offers the given service type.
func (o *Offer) AllowsService(st ServiceType) bool {
	for _, allowed := range o.ServiceTypes {
		if allowed == st {
			return true
		}
	}
	return false
}

// IsExpired reports whether the offer's availability window has passed,
// irrespective of remaining quantity.
func (o *Offer) IsExpired(now time.Time) bool {
	return !now.Before(o.AvailableUntil)
}

// Request is an eater's time-boxed ask for a dish within a price ceiling.
type Request struct {
	ID                  string        `json:"id"`
	EaterID             string        `json:"eater_id"`
	DishName            string        `json:"dish_name"`
	Cuisine             string        `json:"cuisine"`
	MaxPrice            float64       `json:"max_price"`
	MaxDeliveryFee      float64       `json:"max_delivery_fee"`
	ServiceTypes        []ServiceType `json:"service_types"`
	DietaryRestrictions []string      `json:"dietary_restrictions"`
	Servings            int           `json:"servings"`
	ExpiresAt           time.Time     `json:"expires_at"`
	Location            Location      `json:"location"`
	Status              string        `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
}

func (r *Request) AllowsService(st ServiceType) bool {
	for _, allowed := range r.ServiceTypes {
		if allowed == st {
			return true
		}
	}
	return false
}

func (r *Request) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// OfferInput carries the cook-supplied fields for a new offer. The verified
// cook id comes from the auth collaborator, never from the client payload.
type OfferInput struct {
	CookID           string
	DishName         string
	Cuisine          string
	PricePerServing  float64
	Quantity         int
	ServiceTypes     []ServiceType
	DeliveryFee      float64
	DeliveryRadiusKm float64
	Ingredients      []string
	CookRating       float64
	ReadyAt          time.Time
	AvailableUntil   time.Time
	Location         Location
}

// RequestInput carries the eater-supplied fields for a new request.
type RequestInput struct {
	EaterID             string
	DishName            string
	Cuisine             string
	MaxPrice            float64
	MaxDeliveryFee      float64
	ServiceTypes        []ServiceType
	DietaryRestrictions []string
	Servings            int
	ExpiresAt           time.Time
	Location            Location
}
