package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-offers/internal/offer"
	"github.com/noah-isme/toko-offers/internal/queue"
	"github.com/noah-isme/toko-offers/internal/repo"
)

// seedNamespace keeps seeded ids stable so reruns skip existing offers.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://toko.local/offers/seed"))

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := repo.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	offers := repo.OffersRepo{DB: pool}
	created := 0
	for _, o := range demoOffers(time.Now().UTC()) {
		for _, w := range offer.Lint(o) {
			log.Printf("warning: %s", w)
		}
		if err := offers.Create(ctx, o); err != nil {
			if errors.Is(err, repo.ErrOfferExists) {
				log.Printf("Offer %q already seeded, skipping", o.Title)
				continue
			}
			log.Fatalf("Failed to seed offer %q: %v", o.Title, err)
		}
		created++
	}
	log.Printf("Seeded %d offers", created)

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		enqueueRefresh(ctx, redisURL)
	}

	log.Println("Seeding completed successfully!")
}

func enqueueRefresh(ctx context.Context, redisURL string) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		log.Printf("Skipping refresh, bad REDIS_URL: %v", err)
		return
	}
	client := asynq.NewClient(opt)
	defer client.Close()

	if err := (queue.Enqueuer{Client: client}).EnqueueRefresh(ctx, "seed"); err != nil {
		log.Printf("Failed to enqueue offer refresh: %v", err)
		return
	}
	log.Println("Offer refresh enqueued")
}

func demoOffers(now time.Time) []offer.Offer {
	from := now.Add(-time.Hour)
	till := now.AddDate(0, 1, 0)
	offers := []offer.Offer{
		{
			ID:              seedID("category-electronics-10"),
			Title:           "Electronics 10% off",
			Type:            offer.TypeCategory,
			CategoryIDs:     []string{"electronics"},
			DiscountPercent: money("10"),
			Priority:        20,
		},
		{
			ID:             seedID("product-headphones-50k"),
			Title:          "Headphones Rp50.000 off",
			Type:           offer.TypeProduct,
			ProductIDs:     []string{"sku-headphones-01", "sku-headphones-02"},
			DiscountAmount: money("50000"),
			Priority:       30,
		},
		{
			ID:              seedID("store-payday-5"),
			Title:           "Payday 5% storewide",
			Type:            offer.TypeStore,
			DiscountPercent: money("5"),
			Priority:        10,
		},
		{
			ID:             seedID("cart-over-1m"),
			Title:          "Rp100.000 off orders above Rp1.000.000",
			Type:           offer.TypeConditional,
			DiscountAmount: money("100000"),
			Condition:      &offer.Condition{CartValueGreaterThan: money("1000000")},
			Priority:       5,
		},
	}
	for i := range offers {
		offers[i].ValidFrom = from
		offers[i].ValidTill = till
		offers[i].Enabled = true
	}
	return offers
}

func seedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

func money(v string) *offer.Money {
	d := decimal.RequireFromString(v)
	return &d
}
