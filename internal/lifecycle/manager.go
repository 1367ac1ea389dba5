package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/lambalia/eats/internal/hub"
	"github.com/lambalia/eats/internal/match"
	"github.com/lambalia/eats/internal/models"
	"github.com/lambalia/eats/internal/repositories"
	"github.com/lambalia/eats/internal/store"

	"github.com/lucsky/cuid"
)

// CommissionProvider supplies the caller's current commission rate, used only
// to annotate order totals for earnings reporting. Tier eligibility is
// computed elsewhere.
type CommissionProvider interface {
	CommissionRate(ctx context.Context, cookID string) float64
}

// FixedCommission is the default provider when no tier service is wired in.
type FixedCommission float64

func (f FixedCommission) CommissionRate(ctx context.Context, cookID string) float64 {
	return float64(f)
}

// Manager owns the order state machine from creation through completion or
// cancellation. Orders, once created, are independent of their origin
// listing's later expiry: nothing but Advance and Cancel moves them.
type Manager struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	byCode map[string]string // tracking code -> order id

	listings   *store.ListingStore
	matcher    *match.Engine
	hub        *hub.Hub
	repo       repositories.OrderRepository
	commission CommissionProvider
}

func NewManager(listings *store.ListingStore, matcher *match.Engine, notifications *hub.Hub, repo repositories.OrderRepository, commission CommissionProvider) *Manager {
	if commission == nil {
		commission = FixedCommission(0)
	}
	return &Manager{
		orders:     make(map[string]*models.Order),
		byCode:     make(map[string]string),
		listings:   listings,
		matcher:    matcher,
		hub:        notifications,
		repo:       repo,
		commission: commission,
	}
}

// PlaceOrder creates an order against an offer. The decrement and the order
// creation form one atomic unit: if creation fails after the decrement, the
// servings go back.
func (m *Manager) PlaceOrder(ctx context.Context, eaterID, offerID string, serviceType models.ServiceType, servings int) (*models.Order, error) {
	offer, err := m.matcher.ValidateOffer(offerID, serviceType, servings)
	if err != nil {
		return nil, err
	}

	if _, err := m.listings.DecrementOffer(ctx, offerID, servings); err != nil {
		return nil, err
	}

	deliveryFee := 0.0
	if serviceType == models.ServiceDelivery {
		deliveryFee = offer.DeliveryFee
	}

	now := time.Now()
	order := &models.Order{
		ID:               cuid.New(),
		OfferID:          offerID,
		CookID:           offer.CookID,
		EaterID:          eaterID,
		DishName:         offer.DishName,
		ServiceType:      serviceType,
		Servings:         servings,
		AgreedPrice:      offer.PricePerServing,
		DeliveryFee:      deliveryFee,
		Status:           models.OrderStatusCreated,
		OrderedAt:        now,
		EstimatedReadyAt: offer.ReadyAt,
		StatusTimestamps: map[string]time.Time{models.OrderStatusCreated: now},
	}
	m.finalizeAmounts(ctx, order)

	if err := m.commit(ctx, order); err != nil {
		if _, restoreErr := m.listings.RestoreOffer(ctx, offerID, servings); restoreErr != nil {
			log.Printf("could not restore offer %s after failed order: %v", offerID, restoreErr)
		}
		return nil, err
	}

	m.hub.Publish(models.Event{
		Type:      models.EventOrderCreated,
		OrderID:   order.ID,
		ListingID: offerID,
		Status:    order.Status,
		Message:   fmt.Sprintf("Order %s placed: %d serving(s) of %s", order.TrackingCode, servings, order.DishName),
		Timestamp: now.Unix(),
	}, order.CookID, order.EaterID)

	return cloneOrder(order), nil
}

// AcceptRequest is the cook-initiated path. Fulfilment is exclusive: the
// first accepted bid wins and every later attempt gets ErrConflict.
func (m *Manager) AcceptRequest(ctx context.Context, cookID, requestID string, serviceType models.ServiceType, price float64, prepTimeMinutes int) (*models.Order, error) {
	request, err := m.matcher.ValidateRequest(requestID, serviceType, price)
	if err != nil {
		return nil, err
	}

	if _, err := m.listings.MarkRequestFulfilled(ctx, requestID); err != nil {
		return nil, err
	}

	deliveryFee := 0.0
	if serviceType == models.ServiceDelivery {
		deliveryFee = request.MaxDeliveryFee
	}

	now := time.Now()
	order := &models.Order{
		ID:               cuid.New(),
		RequestID:        requestID,
		CookID:           cookID,
		EaterID:          request.EaterID,
		DishName:         request.DishName,
		ServiceType:      serviceType,
		Servings:         request.Servings,
		AgreedPrice:      price,
		DeliveryFee:      deliveryFee,
		Status:           models.OrderStatusCreated,
		OrderedAt:        now,
		EstimatedReadyAt: now.Add(time.Duration(prepTimeMinutes) * time.Minute),
		StatusTimestamps: map[string]time.Time{models.OrderStatusCreated: now},
	}
	m.finalizeAmounts(ctx, order)

	if err := m.commit(ctx, order); err != nil {
		if reopenErr := m.listings.ReopenRequest(ctx, requestID); reopenErr != nil {
			log.Printf("could not reopen request %s after failed order: %v", requestID, reopenErr)
		}
		return nil, err
	}

	m.hub.Publish(models.Event{
		Type:      models.EventOrderCreated,
		OrderID:   order.ID,
		ListingID: requestID,
		Status:    order.Status,
		Message:   fmt.Sprintf("Order %s accepted: %s, ready in about %d minutes", order.TrackingCode, order.DishName, prepTimeMinutes),
		Timestamp: now.Unix(),
	}, order.CookID, order.EaterID)

	return cloneOrder(order), nil
}

// Advance moves an order along the forward edges of the state machine. Any
// other move fails with ErrInvalidTransition.
func (m *Manager) Advance(ctx context.Context, actorID, orderID, nextStatus string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !order.IsParty(actorID) {
		return nil, models.ErrUnauthorized
	}
	if !transitionAllowed(order, nextStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, nextStatus)
	}

	now := time.Now()
	prevStatus := order.Status
	order.Status = nextStatus
	order.StatusTimestamps[nextStatus] = now

	if m.repo != nil {
		if err := m.repo.UpdateStatus(ctx, orderID, nextStatus, now); err != nil {
			order.Status = prevStatus
			delete(order.StatusTimestamps, nextStatus)
			return nil, fmt.Errorf("persisting order status: %w", err)
		}
	}

	m.hub.Publish(models.Event{
		Type:      models.EventOrderUpdated,
		OrderID:   order.ID,
		Status:    nextStatus,
		Message:   fmt.Sprintf("Order %s is now %s", order.TrackingCode, nextStatus),
		Timestamp: now.Unix(),
	}, order.CookID, order.EaterID)

	return cloneOrder(order), nil
}

// Cancel aborts an order from created or preparing. If the order originated
// from an offer, the decremented servings are restored.
func (m *Manager) Cancel(ctx context.Context, actorID, orderID, reason string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !order.IsParty(actorID) {
		return nil, models.ErrUnauthorized
	}
	switch order.Status {
	case models.OrderStatusCreated, models.OrderStatusPreparing:
	default:
		return nil, fmt.Errorf("%w: cannot cancel %s order", models.ErrInvalidTransition, order.Status)
	}

	now := time.Now()
	prevStatus := order.Status
	order.Status = models.OrderStatusCancelled
	order.CancelReason = reason
	order.StatusTimestamps[models.OrderStatusCancelled] = now

	if m.repo != nil {
		if err := m.repo.UpdateStatus(ctx, orderID, order.Status, now); err != nil {
			order.Status = prevStatus
			order.CancelReason = ""
			delete(order.StatusTimestamps, models.OrderStatusCancelled)
			return nil, fmt.Errorf("persisting order cancellation: %w", err)
		}
	}

	if order.OfferID != "" {
		if _, err := m.listings.RestoreOffer(ctx, order.OfferID, order.Servings); err != nil {
			log.Printf("could not restore offer %s after cancellation: %v", order.OfferID, err)
		}
	}

	m.hub.Publish(models.Event{
		Type:      models.EventOrderCancelled,
		OrderID:   order.ID,
		Status:    order.Status,
		Message:   fmt.Sprintf("Order %s cancelled: %s", order.TrackingCode, reason),
		Timestamp: now.Unix(),
	}, order.CookID, order.EaterID)

	return cloneOrder(order), nil
}

// Get returns a copy of the order.
func (m *Manager) Get(orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneOrder(order), nil
}

// GetByTrackingCode resolves the human-shareable code to its order.
func (m *Manager) GetByTrackingCode(code string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneOrder(m.orders[id]), nil
}

// MyOrders is the pull query clients run after reconnecting, newest first.
func (m *Manager) MyOrders(userID string) []*models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*models.Order
	for _, order := range m.orders {
		if order.IsParty(userID) {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderedAt.After(orders[j].OrderedAt)
	})
	return orders
}

// CountOpen returns the number of orders with a non-terminal status.
func (m *Manager) CountOpen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, order := range m.orders {
		if !order.IsTerminal() {
			count++
		}
	}
	return count
}

// finalizeAmounts fixes the money fields at creation; they are never
// recomputed afterwards.
func (m *Manager) finalizeAmounts(ctx context.Context, order *models.Order) {
	order.TotalAmount = order.AgreedPrice*float64(order.Servings) + order.DeliveryFee
	order.CommissionRate = m.commission.CommissionRate(ctx, order.CookID)
	order.CookEarnings = order.TotalAmount * (1 - order.CommissionRate)
}

// commit issues the tracking code, persists the order and makes it visible.
func (m *Manager) commit(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	order.TrackingCode = m.issueTrackingCodeLocked()
	if m.repo != nil {
		if err := m.repo.Create(ctx, order); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("persisting order: %w", err)
		}
	}
	m.orders[order.ID] = order
	m.byCode[order.TrackingCode] = order.ID
	m.mu.Unlock()
	return nil
}

// transitionAllowed encodes the forward edges of the state machine. The
// preparing stage forks on service type: delivery orders go out for delivery,
// everything else becomes ready for pickup.
func transitionAllowed(order *models.Order, next string) bool {
	switch order.Status {
	case models.OrderStatusCreated:
		return next == models.OrderStatusPreparing
	case models.OrderStatusPreparing:
		if order.ServiceType == models.ServiceDelivery {
			return next == models.OrderStatusOutForDelivery
		}
		return next == models.OrderStatusReadyForPickup
	case models.OrderStatusReadyForPickup, models.OrderStatusOutForDelivery:
		return next == models.OrderStatusCompleted
	case models.OrderStatusCompleted:
		// Disputes are recorded against completed orders but not processed here.
		return next == models.OrderStatusDisputed
	}
	return false
}

func cloneOrder(order *models.Order) *models.Order {
	copied := *order
	copied.StatusTimestamps = make(map[string]time.Time, len(order.StatusTimestamps))
	for status, at := range order.StatusTimestamps {
		copied.StatusTimestamps[status] = at
	}
	return &copied
}
