package postgres

import (
	"context"
	"errors"

	"github.com/lambalia/eats/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	query := `
        INSERT INTO offers (
            id, cook_id, dish_name, cuisine, price_per_serving, quantity_remaining,
            service_types, delivery_fee, delivery_radius_km, ingredients, cook_rating,
            ready_at, available_until, location, status, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
            ST_SetSRID(ST_MakePoint($14, $15), 4326)::geography,
            $16, $17
        )
    `

	_, err := r.pool.Exec(ctx, query,
		offer.ID,
		offer.CookID,
		offer.DishName,
		offer.Cuisine,
		offer.PricePerServing,
		offer.QuantityRemaining,
		serviceTypesToStrings(offer.ServiceTypes),
		offer.DeliveryFee,
		offer.DeliveryRadiusKm,
		offer.Ingredients,
		offer.CookRating,
		offer.ReadyAt,
		offer.AvailableUntil,
		offer.Location.Lon,
		offer.Location.Lat,
		offer.Status,
		offer.CreatedAt,
	)
	return err
}

func (r *OfferRepository) UpdateQuantity(ctx context.Context, id string, quantity int, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET quantity_remaining = $2, status = $3 WHERE id = $1`,
		id, quantity, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*models.Offer, error) {
	query := offerSelectColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return offer, err
}

func (r *OfferRepository) FindNearby(ctx context.Context, location models.Location, radiusMeters float64) ([]*models.Offer, error) {
	query := offerSelectColumns + `,
            ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
        FROM offers
        WHERE status = 'active'
          AND available_until > now()
          AND ST_DWithin(
            location,
            ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
            $3
        )
        ORDER BY distance, created_at DESC
    `

	rows, err := r.pool.Query(ctx, query, location.Lon, location.Lat, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		offer, err := scanOfferWithDistance(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func (r *OfferRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM offers").Scan(&count)
	return count, err
}

const offerSelectColumns = `
        SELECT
            id, cook_id, dish_name, cuisine, price_per_serving, quantity_remaining,
            service_types, delivery_fee, delivery_radius_km, ingredients, cook_rating,
            ready_at, available_until,
            ST_X(location::geometry) as longitude, ST_Y(location::geometry) as latitude,
            status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*models.Offer, error) {
	var lon, lat float64
	var serviceTypes []string
	offer := &models.Offer{}
	err := row.Scan(
		&offer.ID,
		&offer.CookID,
		&offer.DishName,
		&offer.Cuisine,
		&offer.PricePerServing,
		&offer.QuantityRemaining,
		&serviceTypes,
		&offer.DeliveryFee,
		&offer.DeliveryRadiusKm,
		&offer.Ingredients,
		&offer.CookRating,
		&offer.ReadyAt,
		&offer.AvailableUntil,
		&lon,
		&lat,
		&offer.Status,
		&offer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	offer.Location = models.Location{Lon: lon, Lat: lat}
	offer.ServiceTypes = stringsToServiceTypes(serviceTypes)
	return offer, nil
}

func scanOfferWithDistance(row rowScanner) (*models.Offer, error) {
	var lon, lat, distance float64
	var serviceTypes []string
	offer := &models.Offer{}
	err := row.Scan(
		&offer.ID,
		&offer.CookID,
		&offer.DishName,
		&offer.Cuisine,
		&offer.PricePerServing,
		&offer.QuantityRemaining,
		&serviceTypes,
		&offer.DeliveryFee,
		&offer.DeliveryRadiusKm,
		&offer.Ingredients,
		&offer.CookRating,
		&offer.ReadyAt,
		&offer.AvailableUntil,
		&lon,
		&lat,
		&offer.Status,
		&offer.CreatedAt,
		&distance,
	)
	if err != nil {
		return nil, err
	}
	offer.Location = models.Location{Lon: lon, Lat: lat}
	offer.ServiceTypes = stringsToServiceTypes(serviceTypes)
	return offer, nil
}

func serviceTypesToStrings(types []models.ServiceType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func stringsToServiceTypes(values []string) []models.ServiceType {
	out := make([]models.ServiceType, len(values))
	for i, v := range values {
		out[i] = models.ServiceType(v)
	}
	return out
}
