package geo

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lambalia/eats/internal/models"
)

const earthRadiusKm = 6371.0 // Earth's radius in kilometers

type Kind string

const (
	KindOffer   Kind = "offer"
	KindRequest Kind = "request"
)

type entry struct {
	id        string
	location  models.Location
	createdAt time.Time
}

// Hit is a listing id paired with its distance from the query point.
type Hit struct {
	ID         string
	DistanceKm float64
}

// Index keeps active listings keyed by location and answers radius queries.
// It is derived state: the listing store registers and removes entries as
// listings move between active and inactive, and readers must still confirm
// status against the store.
type Index struct {
	mu       sync.RWMutex
	listings map[Kind]map[string]entry
}

func NewIndex() *Index {
	return &Index{
		listings: map[Kind]map[string]entry{
			KindOffer:   make(map[string]entry),
			KindRequest: make(map[string]entry),
		},
	}
}

func (idx *Index) Add(kind Kind, id string, location models.Location, createdAt time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.listings[kind][id] = entry{id: id, location: location, createdAt: createdAt}
}

func (idx *Index) Remove(kind Kind, id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.listings[kind], id)
}

func (idx *Index) Len(kind Kind) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.listings[kind])
}

// Nearby returns all indexed listings of the given kind within radiusKm of
// the point, ordered by distance ascending with ties broken by most recent
// creation.
func (idx *Index) Nearby(point models.Location, radiusKm float64, kind Kind) []Hit {
	idx.mu.RLock()
	candidates := make([]entry, 0, len(idx.listings[kind]))
	for _, e := range idx.listings[kind] {
		candidates = append(candidates, e)
	}
	idx.mu.RUnlock()

	hits := make([]Hit, 0)
	created := make(map[string]time.Time, len(candidates))
	for _, e := range candidates {
		if distance := Distance(point, e.location); distance <= radiusKm {
			hits = append(hits, Hit{ID: e.id, DistanceKm: distance})
			created[e.id] = e.createdAt
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceKm != hits[j].DistanceKm {
			return hits[i].DistanceKm < hits[j].DistanceKm
		}
		return created[hits[i].ID].After(created[hits[j].ID])
	})

	return hits
}

// Distance computes the great-circle distance between two points in
// kilometres using the haversine formula.
func Distance(loc1, loc2 models.Location) float64 {
	lat1 := degreesToRadians(loc1.Lat)
	lon1 := degreesToRadians(loc1.Lon)
	lat2 := degreesToRadians(loc2.Lat)
	lon2 := degreesToRadians(loc2.Lon)

	dlat := lat2 - lat1
	dlon := lon2 - lon1
	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
