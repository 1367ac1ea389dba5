package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lambalia/eats/internal/geo"
	"github.com/lambalia/eats/internal/models"
	"github.com/lambalia/eats/internal/store"
)

var (
	downtown = models.Location{Lat: 40.7128, Lon: -74.0060}
	uptown   = models.Location{Lat: 40.8000, Lon: -73.9600}
	faraway  = models.Location{Lat: 42.3601, Lon: -71.0589}
)

func newTestEngine() (*Engine, *store.ListingStore) {
	idx := geo.NewIndex()
	listings := store.NewListingStore(idx, nil, nil)
	return NewEngine(listings, idx), listings
}

func offerInput(loc models.Location) models.OfferInput {
	now := time.Now()
	return models.OfferInput{
		CookID:           "cook-1",
		DishName:         "Miso Ramen",
		Cuisine:          "Japanese",
		PricePerServing:  12,
		Quantity:         4,
		ServiceTypes:     []models.ServiceType{models.ServicePickup, models.ServiceDelivery},
		DeliveryFee:      3,
		DeliveryRadiusKm: 8,
		Ingredients:      []string{"wheat noodles", "pork", "egg"},
		CookRating:       4.2,
		ReadyAt:          now.Add(30 * time.Minute),
		AvailableUntil:   now.Add(4 * time.Hour),
		Location:         loc,
	}
}

func requestInput(loc models.Location) models.RequestInput {
	return models.RequestInput{
		EaterID:      "eater-1",
		DishName:     "Anything homemade",
		MaxPrice:     18,
		ServiceTypes: []models.ServiceType{models.ServicePickup},
		Servings:     1,
		ExpiresAt:    time.Now().Add(2 * time.Hour),
		Location:     loc,
	}
}

func TestFindOffersForReturnsNearbyActive(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()
	listings.CreateOffer(ctx, offerInput(downtown))
	listings.CreateOffer(ctx, offerInput(faraway))

	matches := e.FindOffersFor(downtown, 10, OfferFilters{})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].DistanceKm > 10 {
		t.Errorf("match distance %.2f exceeds radius", matches[0].DistanceKm)
	}
}

func TestFindOffersForEmptyIsNotAnError(t *testing.T) {
	e, _ := newTestEngine()
	matches := e.FindOffersFor(downtown, 10, OfferFilters{})
	if matches == nil || len(matches) != 0 {
		t.Errorf("want empty non-nil result, got %v", matches)
	}
}

func TestFindOffersForExcludesExpired(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()

	input := offerInput(downtown)
	input.ReadyAt = time.Now().Add(10 * time.Millisecond)
	input.AvailableUntil = time.Now().Add(40 * time.Millisecond)
	offer, err := listings.CreateOffer(ctx, input)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	matches := e.FindOffersFor(downtown, 10, OfferFilters{})
	if len(matches) != 0 {
		t.Errorf("expired offer with quantity %d still browsable", offer.QuantityRemaining)
	}
}

func TestFindOffersForFilters(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()
	listings.CreateOffer(ctx, offerInput(downtown))

	t.Run("cuisine mismatch", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{Cuisine: "Mexican"}); len(got) != 0 {
			t.Errorf("got %d matches, want 0", len(got))
		}
	})
	t.Run("cuisine match is case-insensitive", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{Cuisine: "japanese"}); len(got) != 1 {
			t.Errorf("got %d matches, want 1", len(got))
		}
	})
	t.Run("price ceiling", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{MaxPrice: 10}); len(got) != 0 {
			t.Errorf("got %d matches, want 0", len(got))
		}
	})
	t.Run("dietary conflict", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{DietaryRestrictions: []string{"Pork"}}); len(got) != 0 {
			t.Errorf("restricted ingredient should exclude the offer")
		}
	})
	t.Run("dietary no conflict", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{DietaryRestrictions: []string{"peanuts"}}); len(got) != 1 {
			t.Errorf("non-conflicting restriction should keep the offer")
		}
	})
	t.Run("service type", func(t *testing.T) {
		if got := e.FindOffersFor(downtown, 10, OfferFilters{ServiceTypes: []models.ServiceType{models.ServiceDineIn}}); len(got) != 0 {
			t.Errorf("offer without dine-in should be excluded")
		}
	})
}

func TestFindOffersForDeliveryRadius(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()

	input := offerInput(downtown)
	input.DeliveryRadiusKm = 2 // uptown is ~10 km away
	listings.CreateOffer(ctx, input)

	delivery := OfferFilters{ServiceTypes: []models.ServiceType{models.ServiceDelivery}}
	if got := e.FindOffersFor(uptown, 15, delivery); len(got) != 0 {
		t.Errorf("eater outside the cook's delivery radius should see no delivery match")
	}

	pickup := OfferFilters{ServiceTypes: []models.ServiceType{models.ServicePickup}}
	if got := e.FindOffersFor(uptown, 15, pickup); len(got) != 1 {
		t.Errorf("pickup is not constrained by the delivery radius")
	}
}

func TestFindOffersForSortsByDistanceThenRating(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()

	near := offerInput(models.Location{Lat: downtown.Lat + 0.02, Lon: downtown.Lon})
	near.CookID = "near-cook"
	near.CookRating = 3.0
	far := offerInput(models.Location{Lat: downtown.Lat + 0.06, Lon: downtown.Lon})
	far.CookID = "far-cook"
	far.CookRating = 5.0
	colocatedLow := offerInput(uptown)
	colocatedLow.CookID = "low-rated"
	colocatedLow.CookRating = 2.0
	colocatedHigh := offerInput(uptown)
	colocatedHigh.CookID = "high-rated"
	colocatedHigh.CookRating = 4.9

	for _, in := range []models.OfferInput{far, near, colocatedLow, colocatedHigh} {
		if _, err := listings.CreateOffer(ctx, in); err != nil {
			t.Fatalf("CreateOffer: %v", err)
		}
	}

	matches := e.FindOffersFor(downtown, 50, OfferFilters{})
	if len(matches) != 4 {
		t.Fatalf("got %d matches, want 4", len(matches))
	}
	if matches[0].Offer.CookID != "near-cook" {
		t.Errorf("nearest offer should sort first despite lower rating, got %q", matches[0].Offer.CookID)
	}
	// The two colocated uptown offers tie on distance; rating breaks the tie.
	var uptownCooks []string
	for _, m := range matches {
		if m.Offer.CookID == "low-rated" || m.Offer.CookID == "high-rated" {
			uptownCooks = append(uptownCooks, m.Offer.CookID)
		}
	}
	if len(uptownCooks) != 2 || uptownCooks[0] != "high-rated" {
		t.Errorf("colocated offers should order by rating desc, got %v", uptownCooks)
	}
}

func TestFindRequestsFor(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()
	listings.CreateRequest(ctx, requestInput(downtown))
	listings.CreateRequest(ctx, requestInput(faraway))

	matches := e.FindRequestsFor(downtown, 10)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestValidateOffer(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()
	offer, _ := listings.CreateOffer(ctx, offerInput(downtown))

	if _, err := e.ValidateOffer(offer.ID, models.ServicePickup, 1); err != nil {
		t.Errorf("valid pairing rejected: %v", err)
	}

	if _, err := e.ValidateOffer("missing", models.ServicePickup, 1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	var rejection *RejectionError
	if _, err := e.ValidateOffer(offer.ID, models.ServiceDineIn, 1); !errors.As(err, &rejection) {
		t.Errorf("disallowed service type: got %v, want RejectionError", err)
	}

	listings.Withdraw(ctx, offer.ID, offer.CookID)
	if _, err := e.ValidateOffer(offer.ID, models.ServicePickup, 1); !errors.Is(err, models.ErrConflict) {
		t.Errorf("withdrawn offer: got %v, want ErrConflict", err)
	}
}

func TestValidateRequest(t *testing.T) {
	e, listings := newTestEngine()
	ctx := context.Background()
	request, _ := listings.CreateRequest(ctx, requestInput(downtown))

	if _, err := e.ValidateRequest(request.ID, models.ServicePickup, 15); err != nil {
		t.Errorf("valid pairing rejected: %v", err)
	}

	var rejection *RejectionError
	if _, err := e.ValidateRequest(request.ID, models.ServicePickup, 25); !errors.As(err, &rejection) {
		t.Errorf("price above ceiling: got %v, want RejectionError", err)
	}
	if _, err := e.ValidateRequest(request.ID, models.ServiceDelivery, 15); !errors.As(err, &rejection) {
		t.Errorf("disallowed service type: got %v, want RejectionError", err)
	}

	listings.MarkRequestFulfilled(ctx, request.ID)
	if _, err := e.ValidateRequest(request.ID, models.ServicePickup, 15); !errors.Is(err, models.ErrConflict) {
		t.Errorf("fulfilled request: got %v, want ErrConflict", err)
	}
}
