package repositories

import (
	"context"
	"time"

	"github.com/lambalia/eats/internal/models"
)

// The engine keeps authoritative state in memory; repositories provide the
// durable write-through. Implementations must support atomic read-modify-write
// on a single record and point lookups by id.

type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	UpdateQuantity(ctx context.Context, id string, quantity int, status string) error
	UpdateStatus(ctx context.Context, id string, status string) error
	GetByID(ctx context.Context, id string) (*models.Offer, error)
	FindNearby(ctx context.Context, location models.Location, radiusMeters float64) ([]*models.Offer, error)
	Count(ctx context.Context) (int, error)
}

type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	UpdateStatus(ctx context.Context, id string, status string) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	Count(ctx context.Context) (int, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id string, status string, at time.Time) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
}
