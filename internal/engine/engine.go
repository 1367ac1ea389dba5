package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lambalia/eats/internal/factories"
	"github.com/lambalia/eats/internal/geo"
	"github.com/lambalia/eats/internal/hub"
	"github.com/lambalia/eats/internal/lifecycle"
	"github.com/lambalia/eats/internal/match"
	"github.com/lambalia/eats/internal/models"
	"github.com/lambalia/eats/internal/repositories/postgres"
	"github.com/lambalia/eats/internal/stats"
	"github.com/lambalia/eats/internal/store"
)

// Engine wires the matching core together and runs background maintenance.
// The web layer talks to it; it owns no entity state of its own.
type Engine struct {
	Config   *models.Config
	Geo      *geo.Index
	Listings *store.ListingStore
	Match    *match.Engine
	Orders   *lifecycle.Manager
	Hub      *hub.Hub
	Stats    *stats.Aggregator

	pool *pgxpool.Pool
}

func New(cfg *models.Config) (*Engine, error) {
	sink, err := determineSink(cfg)
	if err != nil {
		return nil, err
	}

	eng := &Engine{Config: cfg}

	var offerRepo *postgres.OfferRepository
	var requestRepo *postgres.RequestRepository
	var orderRepo *postgres.OrderRepository
	if cfg.PostgresEnabled {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		eng.pool = pool
		offerRepo = postgres.NewOfferRepository(pool)
		requestRepo = postgres.NewRequestRepository(pool)
		orderRepo = postgres.NewOrderRepository(pool)
	}

	eng.Geo = geo.NewIndex()
	eng.Hub = hub.NewHub(cfg.NotificationBufferSize, sink)
	if cfg.PostgresEnabled {
		eng.Listings = store.NewListingStore(eng.Geo, offerRepo, requestRepo)
	} else {
		eng.Listings = store.NewListingStore(eng.Geo, nil, nil)
	}
	eng.Match = match.NewEngine(eng.Listings, eng.Geo)
	commission := lifecycle.FixedCommission(cfg.DefaultCommissionRate)
	if cfg.PostgresEnabled {
		eng.Orders = lifecycle.NewManager(eng.Listings, eng.Match, eng.Hub, orderRepo, commission)
	} else {
		eng.Orders = lifecycle.NewManager(eng.Listings, eng.Match, eng.Hub, nil, commission)
	}
	eng.Stats = stats.NewAggregator(eng.Listings, eng.Orders)

	return eng, nil
}

// CreateOffer publishes a cook's offer and notifies eaters whose active
// requests it could satisfy.
func (e *Engine) CreateOffer(ctx context.Context, input models.OfferInput) (*models.Offer, error) {
	offer, err := e.Listings.CreateOffer(ctx, input)
	if err != nil {
		return nil, err
	}

	radius := e.searchRadius()
	for _, m := range e.Match.FindRequestsFor(offer.Location, radius) {
		e.Hub.Publish(models.Event{
			Type:      models.EventMatchFound,
			ListingID: offer.ID,
			Message:   fmt.Sprintf("A cook %.1f km away is offering %s", m.DistanceKm, offer.DishName),
			Timestamp: time.Now().Unix(),
		}, m.Request.EaterID)
	}

	return offer, nil
}

// CreateRequest publishes an eater's request and notifies the cooks of
// nearby compatible offers.
func (e *Engine) CreateRequest(ctx context.Context, input models.RequestInput) (*models.Request, error) {
	request, err := e.Listings.CreateRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	filters := match.OfferFilters{
		Cuisine:             request.Cuisine,
		MaxPrice:            request.MaxPrice,
		DietaryRestrictions: request.DietaryRestrictions,
		ServiceTypes:        request.ServiceTypes,
	}
	for _, m := range e.Match.FindOffersFor(request.Location, e.searchRadius(), filters) {
		e.Hub.Publish(models.Event{
			Type:      models.EventMatchFound,
			ListingID: request.ID,
			Message:   fmt.Sprintf("An eater %.1f km away is looking for %s", m.DistanceKm, request.DishName),
			Timestamp: time.Now().Unix(),
		}, m.Offer.CookID)
	}

	return request, nil
}

// Run drives the periodic expiry sweep until the context is cancelled. Sweep
// failures are background maintenance: logged and retried with backoff, never
// surfaced to users.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Config.SweepInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	backoff := e.Config.SweepRetryBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	log.Printf("Engine running, sweeping expired listings every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Engine shutting down")
			return
		case <-ticker.C:
			swept, err := e.Listings.SweepExpired(ctx, time.Now())
			if err != nil {
				log.Printf("Expiry sweep incomplete, retrying in %s: %v", backoff, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				continue
			}
			if swept > 0 {
				log.Printf("Expired %d listing(s)", swept)
			}
		}
	}
}

// SeedDemo fills the engine with faker-built offers and requests around the
// configured city centre.
func (e *Engine) SeedDemo() {
	offerFactory := &factories.OfferFactory{}
	requestFactory := &factories.RequestFactory{}

	ctx := context.Background()
	for i := 0; i < e.Config.DemoOffers; i++ {
		if _, err := e.CreateOffer(ctx, offerFactory.CreateOffer(e.Config)); err != nil {
			log.Printf("Error seeding demo offer: %v", err)
		}
	}
	for i := 0; i < e.Config.DemoRequests; i++ {
		if _, err := e.CreateRequest(ctx, requestFactory.CreateRequest(e.Config)); err != nil {
			log.Printf("Error seeding demo request: %v", err)
		}
	}

	snapshot := e.Stats.Snapshot()
	log.Printf("Seeded demo data: %d active offers, %d active requests, %d cooks online",
		snapshot.ActiveOffers, snapshot.ActiveRequests, snapshot.CooksOnline)
}

func (e *Engine) Close() {
	if err := e.Hub.Close(); err != nil {
		log.Printf("Error closing notification hub: %v", err)
	}
	if e.pool != nil {
		e.pool.Close()
	}
}

func (e *Engine) searchRadius() float64 {
	if e.Config.DefaultSearchRadiusKm > 0 {
		return e.Config.DefaultSearchRadiusKm
	}
	return 10.0
}

func determineSink(cfg *models.Config) (hub.Sink, error) {
	if cfg.KafkaEnabled {
		return hub.NewKafkaSink(cfg)
	}
	if cfg.OutputFile != "" {
		return hub.NewFileSink(cfg.OutputFile), nil
	}
	return &hub.ConsoleSink{}, nil
}
