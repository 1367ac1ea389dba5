package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lambalia/eats/internal/geo"
	"github.com/lambalia/eats/internal/models"
	"github.com/lambalia/eats/internal/repositories"

	"github.com/lucsky/cuid"
)

// ListingStore owns the lifecycle of Offer and Request entities. It is the
// only component (together with the order lifecycle, which goes through it)
// allowed to mutate listing state. All mutations on a single listing are
// serialized under the store lock, so capacity can never be oversold.
//
// State is authoritative in memory; the repositories, when configured, are a
// durable write-through. Repository failures on the background expiry path
// are kept in an unsynced set and flushed on the next sweep.
type ListingStore struct {
	mu       sync.RWMutex
	offers   map[string]*models.Offer
	requests map[string]*models.Request

	geoIndex    *geo.Index
	offerRepo   repositories.OfferRepository
	requestRepo repositories.RequestRepository

	// listing id -> last status whose repository write failed
	unsyncedOffers   map[string]string
	unsyncedRequests map[string]string
}

func NewListingStore(geoIndex *geo.Index, offerRepo repositories.OfferRepository, requestRepo repositories.RequestRepository) *ListingStore {
	return &ListingStore{
		offers:           make(map[string]*models.Offer),
		requests:         make(map[string]*models.Request),
		geoIndex:         geoIndex,
		offerRepo:        offerRepo,
		requestRepo:      requestRepo,
		unsyncedOffers:   make(map[string]string),
		unsyncedRequests: make(map[string]string),
	}
}

// CreateOffer validates the input, assigns an id and registers the offer as
// active in the geo index.
func (s *ListingStore) CreateOffer(ctx context.Context, input models.OfferInput) (*models.Offer, error) {
	now := time.Now()
	if input.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidListing)
	}
	if input.PricePerServing <= 0 {
		return nil, fmt.Errorf("%w: price per serving must be positive", models.ErrInvalidListing)
	}
	if len(input.ServiceTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one service type is required", models.ErrInvalidListing)
	}
	if !input.ReadyAt.After(now) {
		return nil, fmt.Errorf("%w: ready-at must be in the future", models.ErrInvalidListing)
	}
	if !input.AvailableUntil.After(input.ReadyAt) {
		return nil, fmt.Errorf("%w: available-until must be after ready-at", models.ErrInvalidListing)
	}

	offer := &models.Offer{
		ID:                cuid.New(),
		CookID:            input.CookID,
		DishName:          input.DishName,
		Cuisine:           input.Cuisine,
		PricePerServing:   input.PricePerServing,
		QuantityRemaining: input.Quantity,
		ServiceTypes:      input.ServiceTypes,
		DeliveryFee:       input.DeliveryFee,
		DeliveryRadiusKm:  input.DeliveryRadiusKm,
		Ingredients:       input.Ingredients,
		CookRating:        input.CookRating,
		ReadyAt:           input.ReadyAt,
		AvailableUntil:    input.AvailableUntil,
		Location:          input.Location,
		Status:            models.OfferStatusActive,
		CreatedAt:         now,
	}

	if s.offerRepo != nil {
		if err := s.offerRepo.Create(ctx, offer); err != nil {
			return nil, fmt.Errorf("persisting offer: %w", err)
		}
	}

	s.mu.Lock()
	s.offers[offer.ID] = offer
	s.mu.Unlock()
	s.geoIndex.Add(geo.KindOffer, offer.ID, offer.Location, offer.CreatedAt)

	return cloneOffer(offer), nil
}

// CreateRequest validates the input and registers the request as active.
func (s *ListingStore) CreateRequest(ctx context.Context, input models.RequestInput) (*models.Request, error) {
	now := time.Now()
	if input.MaxPrice <= 0 {
		return nil, fmt.Errorf("%w: max price must be positive", models.ErrInvalidListing)
	}
	if input.Servings < 1 {
		return nil, fmt.Errorf("%w: servings must be at least 1", models.ErrInvalidListing)
	}
	if len(input.ServiceTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one service type is required", models.ErrInvalidListing)
	}
	if !input.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires-at must be in the future", models.ErrInvalidListing)
	}

	request := &models.Request{
		ID:                  cuid.New(),
		EaterID:             input.EaterID,
		DishName:            input.DishName,
		Cuisine:             input.Cuisine,
		MaxPrice:            input.MaxPrice,
		MaxDeliveryFee:      input.MaxDeliveryFee,
		ServiceTypes:        input.ServiceTypes,
		DietaryRestrictions: input.DietaryRestrictions,
		Servings:            input.Servings,
		ExpiresAt:           input.ExpiresAt,
		Location:            input.Location,
		Status:              models.RequestStatusActive,
		CreatedAt:           now,
	}

	if s.requestRepo != nil {
		if err := s.requestRepo.Create(ctx, request); err != nil {
			return nil, fmt.Errorf("persisting request: %w", err)
		}
	}

	s.mu.Lock()
	s.requests[request.ID] = request
	s.mu.Unlock()
	s.geoIndex.Add(geo.KindRequest, request.ID, request.Location, request.CreatedAt)

	return cloneRequest(request), nil
}

// GetOffer returns a copy of the offer, recomputing expiry on the way out.
func (s *ListingStore) GetOffer(id string) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.expireOfferLocked(offer, time.Now())
	return cloneOffer(offer), nil
}

func (s *ListingStore) GetRequest(id string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.expireRequestLocked(request, time.Now())
	return cloneRequest(request), nil
}

// DecrementOffer atomically reduces the offer's remaining quantity. The offer
// flips to exhausted when quantity reaches zero.
func (s *ListingStore) DecrementOffer(ctx context.Context, id string, servings int) (*models.Offer, error) {
	if servings < 1 {
		return nil, fmt.Errorf("%w: servings must be at least 1", models.ErrInvalidListing)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.expireOfferLocked(offer, time.Now())
	switch offer.Status {
	case models.OfferStatusActive, models.OfferStatusExhausted:
		// An exhausted offer reports insufficient capacity below, so a racer
		// that lost the last serving sees the right error.
	default:
		return nil, models.ErrConflict
	}
	if servings > offer.QuantityRemaining {
		return nil, models.ErrInsufficientCapacity
	}

	prevQuantity := offer.QuantityRemaining
	prevStatus := offer.Status
	offer.QuantityRemaining -= servings
	if offer.QuantityRemaining == 0 {
		offer.Status = models.OfferStatusExhausted
	}

	if s.offerRepo != nil {
		if err := s.offerRepo.UpdateQuantity(ctx, id, offer.QuantityRemaining, offer.Status); err != nil {
			offer.QuantityRemaining = prevQuantity
			offer.Status = prevStatus
			return nil, fmt.Errorf("persisting offer decrement: %w", err)
		}
	}

	if offer.Status == models.OfferStatusExhausted {
		s.geoIndex.Remove(geo.KindOffer, id)
	}
	return cloneOffer(offer), nil
}

// RestoreOffer gives servings back after an order cancellation. An exhausted
// offer becomes active again if its availability window has not passed.
func (s *ListingStore) RestoreOffer(ctx context.Context, id string, servings int) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	offer.QuantityRemaining += servings
	if offer.Status == models.OfferStatusExhausted {
		if offer.IsExpired(time.Now()) {
			offer.Status = models.OfferStatusExpired
		} else {
			offer.Status = models.OfferStatusActive
			s.geoIndex.Add(geo.KindOffer, id, offer.Location, offer.CreatedAt)
		}
	}

	if s.offerRepo != nil {
		if err := s.offerRepo.UpdateQuantity(ctx, id, offer.QuantityRemaining, offer.Status); err != nil {
			// The restore itself must not be lost; leave it for the sweep to flush.
			log.Printf("offer %s restore not persisted: %v", id, err)
			s.unsyncedOffers[id] = offer.Status
		}
	}
	return cloneOffer(offer), nil
}

// MarkRequestFulfilled is the exclusivity guard for accepting a request: the
// first caller wins, every later caller gets ErrConflict.
func (s *ListingStore) MarkRequestFulfilled(ctx context.Context, id string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.expireRequestLocked(request, time.Now())
	if request.Status != models.RequestStatusActive {
		return nil, models.ErrConflict
	}

	request.Status = models.RequestStatusFulfilled
	if s.requestRepo != nil {
		if err := s.requestRepo.UpdateStatus(ctx, id, request.Status); err != nil {
			request.Status = models.RequestStatusActive
			return nil, fmt.Errorf("persisting request fulfilment: %w", err)
		}
	}

	s.geoIndex.Remove(geo.KindRequest, id)
	return cloneRequest(request), nil
}

// ReopenRequest reverts a fulfilment when order creation fails afterwards.
func (s *ListingStore) ReopenRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return models.ErrNotFound
	}
	if request.Status != models.RequestStatusFulfilled {
		return models.ErrConflict
	}

	if request.IsExpired(time.Now()) {
		request.Status = models.RequestStatusExpired
	} else {
		request.Status = models.RequestStatusActive
		s.geoIndex.Add(geo.KindRequest, id, request.Location, request.CreatedAt)
	}

	if s.requestRepo != nil {
		if err := s.requestRepo.UpdateStatus(ctx, id, request.Status); err != nil {
			log.Printf("request %s reopen not persisted: %v", id, err)
			s.unsyncedRequests[id] = request.Status
		}
	}
	return nil
}

// Withdraw cancels a listing on behalf of its owner. The listing id may name
// an offer or a request.
func (s *ListingStore) Withdraw(ctx context.Context, listingID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if offer, ok := s.offers[listingID]; ok {
		if offer.CookID != actorID {
			return models.ErrUnauthorized
		}
		s.expireOfferLocked(offer, now)
		if offer.Status != models.OfferStatusActive {
			return models.ErrAlreadyTerminal
		}
		offer.Status = models.OfferStatusWithdrawn
		if s.offerRepo != nil {
			if err := s.offerRepo.UpdateStatus(ctx, listingID, offer.Status); err != nil {
				offer.Status = models.OfferStatusActive
				return fmt.Errorf("persisting offer withdrawal: %w", err)
			}
		}
		s.geoIndex.Remove(geo.KindOffer, listingID)
		return nil
	}

	if request, ok := s.requests[listingID]; ok {
		if request.EaterID != actorID {
			return models.ErrUnauthorized
		}
		s.expireRequestLocked(request, now)
		if request.Status != models.RequestStatusActive {
			return models.ErrAlreadyTerminal
		}
		request.Status = models.RequestStatusWithdrawn
		if s.requestRepo != nil {
			if err := s.requestRepo.UpdateStatus(ctx, listingID, request.Status); err != nil {
				request.Status = models.RequestStatusActive
				return fmt.Errorf("persisting request withdrawal: %w", err)
			}
		}
		s.geoIndex.Remove(geo.KindRequest, listingID)
		return nil
	}

	return models.ErrNotFound
}

// SweepExpired transitions every active listing whose expiry has passed and
// flushes previously unsynced repository writes. Idempotent; safe to run on
// a periodic tick or on any read path.
func (s *ListingStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept int
	for _, offer := range s.offers {
		if s.expireOfferLocked(offer, now) {
			swept++
		}
	}
	for _, request := range s.requests {
		if s.expireRequestLocked(request, now) {
			swept++
		}
	}

	var lastErr error
	if s.offerRepo != nil {
		for id := range s.unsyncedOffers {
			offer := s.offers[id]
			if err := s.offerRepo.UpdateQuantity(ctx, id, offer.QuantityRemaining, offer.Status); err != nil {
				lastErr = err
				continue
			}
			delete(s.unsyncedOffers, id)
		}
	}
	if s.requestRepo != nil {
		for id := range s.unsyncedRequests {
			request := s.requests[id]
			if err := s.requestRepo.UpdateStatus(ctx, id, request.Status); err != nil {
				lastErr = err
				continue
			}
			delete(s.unsyncedRequests, id)
		}
	}

	return swept, lastErr
}

// ActiveOffers returns copies of all currently active offers.
func (s *ListingStore) ActiveOffers() []*models.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var active []*models.Offer
	for _, offer := range s.offers {
		s.expireOfferLocked(offer, now)
		if offer.Status == models.OfferStatusActive {
			active = append(active, cloneOffer(offer))
		}
	}
	return active
}

// ActiveRequests returns copies of all currently active requests.
func (s *ListingStore) ActiveRequests() []*models.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var active []*models.Request
	for _, request := range s.requests {
		s.expireRequestLocked(request, now)
		if request.Status == models.RequestStatusActive {
			active = append(active, cloneRequest(request))
		}
	}
	return active
}

// ActiveCookCount returns the number of distinct cooks with at least one
// active offer.
func (s *ListingStore) ActiveCookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cooks := make(map[string]struct{})
	for _, offer := range s.offers {
		s.expireOfferLocked(offer, now)
		if offer.Status == models.OfferStatusActive {
			cooks[offer.CookID] = struct{}{}
		}
	}
	return len(cooks)
}

// expireOfferLocked flips an active offer to expired once its window has
// passed. Returns true when a transition happened. Caller holds the lock.
func (s *ListingStore) expireOfferLocked(offer *models.Offer, now time.Time) bool {
	if offer.Status != models.OfferStatusActive || !offer.IsExpired(now) {
		return false
	}
	offer.Status = models.OfferStatusExpired
	s.geoIndex.Remove(geo.KindOffer, offer.ID)
	if s.offerRepo != nil {
		s.unsyncedOffers[offer.ID] = offer.Status
	}
	return true
}

func (s *ListingStore) expireRequestLocked(request *models.Request, now time.Time) bool {
	if request.Status != models.RequestStatusActive || !request.IsExpired(now) {
		return false
	}
	request.Status = models.RequestStatusExpired
	s.geoIndex.Remove(geo.KindRequest, request.ID)
	if s.requestRepo != nil {
		s.unsyncedRequests[request.ID] = request.Status
	}
	return true
}

func cloneOffer(offer *models.Offer) *models.Offer {
	copied := *offer
	return &copied
}

func cloneRequest(request *models.Request) *models.Request {
	copied := *request
	return &copied
}
