package factories

import (
	"math"
	"math/rand"
	"time"

	"github.com/lambalia/eats/internal/models"

	"github.com/jaswdr/faker"
)

var fake = faker.New()

var demoDishes = []struct {
	name        string
	cuisine     string
	ingredients []string
}{
	{"Jollof Rice with Chicken", "West African", []string{"rice", "chicken", "tomato", "pepper"}},
	{"Beef Pierogi", "Polish", []string{"wheat", "beef", "onion", "butter"}},
	{"Chicken Biryani", "Indian", []string{"rice", "chicken", "yogurt", "saffron"}},
	{"Vegetable Pad Thai", "Thai", []string{"rice noodles", "peanuts", "egg", "tofu"}},
	{"Lamb Tagine", "Moroccan", []string{"lamb", "apricot", "almonds", "couscous"}},
	{"Homemade Lasagna", "Italian", []string{"wheat", "beef", "cheese", "tomato"}},
	{"Pork Tamales", "Mexican", []string{"corn", "pork", "chili"}},
	{"Miso Ramen", "Japanese", []string{"wheat noodles", "pork", "egg", "miso"}},
	{"Stuffed Grape Leaves", "Greek", []string{"rice", "grape leaves", "lemon", "herbs"}},
	{"Chicken Adobo", "Filipino", []string{"chicken", "soy", "vinegar", "garlic"}},
}

var serviceTypeSets = [][]models.ServiceType{
	{models.ServicePickup},
	{models.ServicePickup, models.ServiceDelivery},
	{models.ServicePickup, models.ServiceDineIn},
	{models.ServicePickup, models.ServiceDelivery, models.ServiceDineIn},
}

type OfferFactory struct{}

// CreateOffer builds a plausible demo offer scattered around the configured
// city centre.
func (of *OfferFactory) CreateOffer(config *models.Config) models.OfferInput {
	dish := demoDishes[rand.Intn(len(demoDishes))]
	readyIn := time.Duration(fake.IntBetween(20, 90)) * time.Minute

	return models.OfferInput{
		CookID:           fake.UUID().V4(),
		DishName:         dish.name,
		Cuisine:          dish.cuisine,
		PricePerServing:  fake.Float64(2, 8, 25),
		Quantity:         fake.IntBetween(2, 12),
		ServiceTypes:     serviceTypeSets[rand.Intn(len(serviceTypeSets))],
		DeliveryFee:      fake.Float64(2, 2, 6),
		DeliveryRadiusKm: fake.Float64(1, 3, 12),
		Ingredients:      dish.ingredients,
		CookRating:       fake.Float64(1, 3, 5),
		ReadyAt:          time.Now().Add(readyIn),
		AvailableUntil:   time.Now().Add(readyIn + time.Duration(fake.IntBetween(2, 6))*time.Hour),
		Location:         randomCityLocation(config),
	}
}

type RequestFactory struct{}

// CreateRequest builds a plausible demo request.
func (rf *RequestFactory) CreateRequest(config *models.Config) models.RequestInput {
	dish := demoDishes[rand.Intn(len(demoDishes))]

	var restrictions []string
	if rand.Float64() < 0.3 {
		restrictions = []string{[]string{"peanuts", "pork", "cheese", "wheat"}[rand.Intn(4)]}
	}

	return models.RequestInput{
		EaterID:             fake.UUID().V4(),
		DishName:            dish.name,
		Cuisine:             dish.cuisine,
		MaxPrice:            fake.Float64(2, 10, 30),
		MaxDeliveryFee:      fake.Float64(2, 2, 8),
		ServiceTypes:        serviceTypeSets[rand.Intn(len(serviceTypeSets))],
		DietaryRestrictions: restrictions,
		Servings:            fake.IntBetween(1, 4),
		ExpiresAt:           time.Now().Add(time.Duration(fake.IntBetween(1, 5)) * time.Hour),
		Location:            randomCityLocation(config),
	}
}

func randomCityLocation(config *models.Config) models.Location {
	latRange := config.CityRadiusKm / 111.0
	lonRange := latRange / math.Cos(config.CityLat*math.Pi/180.0)

	latOffset := (rand.Float64()*2 - 1) * latRange
	lonOffset := (rand.Float64()*2 - 1) * lonRange

	return models.Location{
		Lat: config.CityLat + latOffset,
		Lon: config.CityLon + lonOffset,
	}
}
