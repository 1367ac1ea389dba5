package geo

import (
	"testing"
	"time"

	"github.com/lambalia/eats/internal/models"
)

var (
	manhattan = models.Location{Lat: 40.7831, Lon: -73.9712}
	brooklyn  = models.Location{Lat: 40.6782, Lon: -73.9442}
	boston    = models.Location{Lat: 42.3601, Lon: -71.0589}
)

func TestDistance(t *testing.T) {
	d := Distance(manhattan, brooklyn)
	if d < 11 || d > 14 {
		t.Errorf("Manhattan-Brooklyn distance = %.2f km, want roughly 12 km", d)
	}

	if Distance(manhattan, manhattan) != 0 {
		t.Errorf("distance to self should be zero")
	}
}

func TestNearbyRespectsRadius(t *testing.T) {
	idx := NewIndex()
	now := time.Now()
	idx.Add(KindOffer, "close", brooklyn, now)
	idx.Add(KindOffer, "far", boston, now)

	hits := idx.Nearby(manhattan, 20, KindOffer)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].ID != "close" {
		t.Errorf("got hit %q, want %q", hits[0].ID, "close")
	}
	if hits[0].DistanceKm > 20 {
		t.Errorf("hit distance %.2f exceeds radius", hits[0].DistanceKm)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	idx := NewIndex()
	now := time.Now()
	nearer := models.Location{Lat: manhattan.Lat + 0.01, Lon: manhattan.Lon}
	farther := models.Location{Lat: manhattan.Lat + 0.05, Lon: manhattan.Lon}
	idx.Add(KindOffer, "farther", farther, now)
	idx.Add(KindOffer, "nearer", nearer, now)

	hits := idx.Nearby(manhattan, 50, KindOffer)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "nearer" || hits[1].ID != "farther" {
		t.Errorf("hits out of order: %q, %q", hits[0].ID, hits[1].ID)
	}
}

func TestNearbyBreaksTiesByRecency(t *testing.T) {
	idx := NewIndex()
	now := time.Now()
	idx.Add(KindOffer, "older", brooklyn, now.Add(-time.Hour))
	idx.Add(KindOffer, "newer", brooklyn, now)

	hits := idx.Nearby(manhattan, 50, KindOffer)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "newer" {
		t.Errorf("tie should go to the most recently created listing, got %q first", hits[0].ID)
	}
}

func TestRemove(t *testing.T) {
	idx := NewIndex()
	idx.Add(KindRequest, "r1", brooklyn, time.Now())
	idx.Remove(KindRequest, "r1")

	if hits := idx.Nearby(manhattan, 50, KindRequest); len(hits) != 0 {
		t.Errorf("removed listing still returned: %v", hits)
	}
	if idx.Len(KindRequest) != 0 {
		t.Errorf("index should be empty after removal")
	}
}

func TestKindsAreSeparate(t *testing.T) {
	idx := NewIndex()
	idx.Add(KindOffer, "o1", brooklyn, time.Now())

	if hits := idx.Nearby(manhattan, 50, KindRequest); len(hits) != 0 {
		t.Errorf("offer leaked into request query: %v", hits)
	}
}
