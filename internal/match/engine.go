package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lambalia/eats/internal/geo"
	"github.com/lambalia/eats/internal/models"
	"github.com/lambalia/eats/internal/store"
)

// Engine finds compatible counter-listings for browsing queries and validates
// a specific pairing immediately before order creation. It never mutates
// listing state; the store stays the single source of truth.
type Engine struct {
	store    *store.ListingStore
	geoIndex *geo.Index
}

func NewEngine(listings *store.ListingStore, geoIndex *geo.Index) *Engine {
	return &Engine{store: listings, geoIndex: geoIndex}
}

// RejectionError explains why a proposed pairing cannot become an order.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("match rejected: %s", e.Reason)
}

// OfferFilters narrows a browsing query. Zero values mean "no constraint".
type OfferFilters struct {
	Cuisine             string
	MaxPrice            float64
	DietaryRestrictions []string
	ServiceTypes        []models.ServiceType
}

// OfferMatch pairs an offer with its distance from the eater.
type OfferMatch struct {
	Offer      *models.Offer
	DistanceKm float64
}

// RequestMatch pairs a request with its distance from the cook.
type RequestMatch struct {
	Request    *models.Request
	DistanceKm float64
}

// FindOffersFor returns active offers within radiusKm of the eater that pass
// the filters, sorted by distance ascending, then cook rating descending.
// An empty result is a valid answer, not an error.
func (e *Engine) FindOffersFor(eaterLocation models.Location, radiusKm float64, filters OfferFilters) []OfferMatch {
	hits := e.geoIndex.Nearby(eaterLocation, radiusKm, geo.KindOffer)

	matches := make([]OfferMatch, 0, len(hits))
	for _, hit := range hits {
		// Browsing results may be stale; the store recomputes status here.
		offer, err := e.store.GetOffer(hit.ID)
		if err != nil || offer.Status != models.OfferStatusActive {
			continue
		}
		if !e.offerPasses(offer, hit.DistanceKm, filters) {
			continue
		}
		matches = append(matches, OfferMatch{Offer: offer, DistanceKm: hit.DistanceKm})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Offer.CookRating > matches[j].Offer.CookRating
	})

	return matches
}

// FindRequestsFor returns active requests within radiusKm of the cook,
// sorted by distance ascending.
func (e *Engine) FindRequestsFor(cookLocation models.Location, radiusKm float64) []RequestMatch {
	hits := e.geoIndex.Nearby(cookLocation, radiusKm, geo.KindRequest)

	matches := make([]RequestMatch, 0, len(hits))
	for _, hit := range hits {
		request, err := e.store.GetRequest(hit.ID)
		if err != nil || request.Status != models.RequestStatusActive {
			continue
		}
		matches = append(matches, RequestMatch{Request: request, DistanceKm: hit.DistanceKm})
	}
	return matches
}

// ValidateOffer re-checks an offer at the validation instant for a proposed
// order. Offers are fixed-price, so the agreed price is always the offer's
// own price. Returns ErrConflict when the offer went inactive since browsing.
func (e *Engine) ValidateOffer(offerID string, serviceType models.ServiceType, servings int) (*models.Offer, error) {
	offer, err := e.store.GetOffer(offerID)
	if err != nil {
		return nil, err
	}
	switch offer.Status {
	case models.OfferStatusActive:
	case models.OfferStatusExhausted:
		return nil, models.ErrInsufficientCapacity
	default:
		return nil, models.ErrConflict
	}
	if !offer.AllowsService(serviceType) {
		return nil, &RejectionError{Reason: fmt.Sprintf("offer does not allow %s", serviceType)}
	}
	if servings < 1 {
		return nil, &RejectionError{Reason: "servings must be at least 1"}
	}
	if servings > offer.QuantityRemaining {
		return nil, models.ErrInsufficientCapacity
	}
	return offer, nil
}

// ValidateRequest re-checks a request for a cook's proposed acceptance. The
// proposed price must stay within the eater's ceiling.
func (e *Engine) ValidateRequest(requestID string, serviceType models.ServiceType, proposedPrice float64) (*models.Request, error) {
	request, err := e.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusActive {
		return nil, models.ErrConflict
	}
	if !request.AllowsService(serviceType) {
		return nil, &RejectionError{Reason: fmt.Sprintf("request does not accept %s", serviceType)}
	}
	if proposedPrice <= 0 {
		return nil, &RejectionError{Reason: "proposed price must be positive"}
	}
	if proposedPrice > request.MaxPrice {
		return nil, &RejectionError{Reason: fmt.Sprintf("proposed price %.2f exceeds ceiling %.2f", proposedPrice, request.MaxPrice)}
	}
	return request, nil
}

func (e *Engine) offerPasses(offer *models.Offer, distanceKm float64, filters OfferFilters) bool {
	if filters.Cuisine != "" && !strings.EqualFold(offer.Cuisine, filters.Cuisine) {
		return false
	}
	if filters.MaxPrice > 0 && offer.PricePerServing > filters.MaxPrice {
		return false
	}
	if hasConflictingIngredients(offer.Ingredients, filters.DietaryRestrictions) {
		return false
	}
	if len(filters.ServiceTypes) > 0 {
		serviceOK := false
		for _, wanted := range filters.ServiceTypes {
			if offer.AllowsService(wanted) {
				// Delivery only counts if the eater sits inside the cook's radius.
				if wanted == models.ServiceDelivery && distanceKm > offer.DeliveryRadiusKm {
					continue
				}
				serviceOK = true
				break
			}
		}
		if !serviceOK {
			return false
		}
	}
	return true
}

// hasConflictingIngredients is a conservative "must not conflict" check: an
// offer is excluded only when one of its declared ingredients matches a
// restricted tag, not held to enumerated compliance.
func hasConflictingIngredients(ingredients, restrictions []string) bool {
	for _, ingredient := range ingredients {
		for _, restriction := range restrictions {
			if strings.EqualFold(ingredient, restriction) {
				return true
			}
		}
	}
	return false
}
