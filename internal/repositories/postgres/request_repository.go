package postgres

import (
	"context"
	"errors"

	"github.com/lambalia/eats/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	query := `
        INSERT INTO requests (
            id, eater_id, dish_name, cuisine, max_price, max_delivery_fee,
            service_types, dietary_restrictions, servings, expires_at,
            location, status, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
            ST_SetSRID(ST_MakePoint($11, $12), 4326)::geography,
            $13, $14
        )
    `

	_, err := r.pool.Exec(ctx, query,
		request.ID,
		request.EaterID,
		request.DishName,
		request.Cuisine,
		request.MaxPrice,
		request.MaxDeliveryFee,
		serviceTypesToStrings(request.ServiceTypes),
		request.DietaryRestrictions,
		request.Servings,
		request.ExpiresAt,
		request.Location.Lon,
		request.Location.Lat,
		request.Status,
		request.CreatedAt,
	)
	return err
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE requests SET status = $2 WHERE id = $1`,
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

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `
        SELECT
            id, eater_id, dish_name, cuisine, max_price, max_delivery_fee,
            service_types, dietary_restrictions, servings, expires_at,
            ST_X(location::geometry) as longitude, ST_Y(location::geometry) as latitude,
            status, created_at
        FROM requests WHERE id = $1
    `

	var lon, lat float64
	var serviceTypes []string
	request := &models.Request{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.EaterID,
		&request.DishName,
		&request.Cuisine,
		&request.MaxPrice,
		&request.MaxDeliveryFee,
		&serviceTypes,
		&request.DietaryRestrictions,
		&request.Servings,
		&request.ExpiresAt,
		&lon,
		&lat,
		&request.Status,
		&request.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	request.Location = models.Location{Lon: lon, Lat: lat}
	request.ServiceTypes = stringsToServiceTypes(serviceTypes)
	return request, nil
}

func (r *RequestRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM requests").Scan(&count)
	return count, err
}
