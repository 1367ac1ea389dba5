package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lambalia/eats/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO orders (
            id, offer_id, request_id, cook_id, eater_id, dish_name, service_type,
            servings, agreed_price, delivery_fee, total_amount, commission_rate,
            cook_earnings, tracking_code, status, ordered_at, estimated_ready_at
        ) VALUES (
            $1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10,
            $11, $12, $13, $14, $15, $16, $17
        )
    `

	_, err = tx.Exec(ctx, query,
		order.ID,
		order.OfferID,
		order.RequestID,
		order.CookID,
		order.EaterID,
		order.DishName,
		string(order.ServiceType),
		order.Servings,
		order.AgreedPrice,
		order.DeliveryFee,
		order.TotalAmount,
		order.CommissionRate,
		order.CookEarnings,
		order.TrackingCode,
		order.Status,
		order.OrderedAt,
		order.EstimatedReadyAt,
	)
	if err != nil {
		return err
	}

	if err := insertTransition(ctx, tx, order.ID, order.Status, order.OrderedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	if err := insertTransition(ctx, tx, id, status, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.scanOne(ctx, orderSelectColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Order, error) {
	order, err := r.scanOne(ctx, orderSelectColumns+` FROM orders WHERE tracking_code = $1`, code)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	query := orderSelectColumns + ` FROM orders WHERE cook_id = $1 OR eater_id = $1 ORDER BY ordered_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&count)
	return count, err
}

const orderSelectColumns = `
        SELECT
            id, COALESCE(offer_id, ''), COALESCE(request_id, ''), cook_id, eater_id,
            dish_name, service_type, servings, agreed_price, delivery_fee,
            total_amount, commission_rate, cook_earnings, tracking_code, status,
            ordered_at, estimated_ready_at`

func (r *OrderRepository) scanOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return order, err
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var serviceType string
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OfferID,
		&order.RequestID,
		&order.CookID,
		&order.EaterID,
		&order.DishName,
		&serviceType,
		&order.Servings,
		&order.AgreedPrice,
		&order.DeliveryFee,
		&order.TotalAmount,
		&order.CommissionRate,
		&order.CookEarnings,
		&order.TrackingCode,
		&order.Status,
		&order.OrderedAt,
		&order.EstimatedReadyAt,
	)
	if err != nil {
		return nil, err
	}
	order.ServiceType = models.ServiceType(serviceType)
	return order, nil
}

func insertTransition(ctx context.Context, tx pgx.Tx, orderID, status string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO order_transitions (order_id, status, occurred_at) VALUES ($1, $2, $3)`,
		orderID, status, at,
	)
	return err
}
