// Command seed generates demo transactions against a running Sentinel
// server and scores them, so the dashboard and review queue have data.
//
// Usage:
//
//	SENTINEL_URL=http://localhost:8080 go run ./cmd/seed
//	SEED_COUNT=200 go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sentinelai/sentinel/pkg/client"
)

type merchantProfile struct {
	name     string
	category string
	zone     string
	minAmt   float64
	maxAmt   float64
}

var merchants = []merchantProfile{
	{"Carrefour City", "grocery", "paris 11e", 5, 120},
	{"Monoprix", "grocery", "paris 15e", 8, 90},
	{"Boulangerie Martin", "restaurant", "paris 18e", 2, 25},
	{"Le Petit Zinc", "restaurant", "paris 9e", 15, 180},
	{"TotalEnergies", "fuel", "pantin", 30, 110},
	{"RATP", "transport", "paris 1e", 2, 75},
	{"Amazon FR", "ecommerce", "", 10, 900},
	{"Cdiscount", "ecommerce", "", 15, 600},
	{"TechWorld", "electronics", "saint-denis", 50, 2800},
	{"Fnac", "electronics", "paris 8e", 20, 1500},
	{"Pharmacie Centrale", "pharmacy", "montreuil", 4, 60},
	{"Zara", "fashion", "paris 10e", 20, 250},
	{"Hotel Lutetia", "hotel", "paris 20e", 120, 1400},
	{"Netflix", "subscription", "", 8, 20},
}

var channels = []string{"card", "contactless", "mobile", "online", "wire"}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("SENTINEL_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	count := 100
	if v := os.Getenv("SEED_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("SEED_COUNT must be a positive integer, got %q", v)
		}
		count = n
	}

	c := client.New(baseURL, client.WithAPIKey(os.Getenv("API_KEY")))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	alerts := 0
	for i := 0; i < count; i++ {
		m := merchants[rng.Intn(len(merchants))]
		channel := channels[rng.Intn(len(channels))]
		if m.category == "ecommerce" || m.category == "subscription" {
			channel = "online"
		}

		// Mostly daytime, with a night-owl tail.
		hour := 8 + rng.Intn(14)
		if rng.Float64() < 0.12 {
			hour = rng.Intn(6)
		}
		occurred := time.Now().UTC().
			AddDate(0, 0, -rng.Intn(7)).
			Truncate(24 * time.Hour).
			Add(time.Duration(hour)*time.Hour + time.Duration(rng.Intn(60))*time.Minute)

		tx, err := c.CreateTransaction(ctx, client.TransactionRequest{
			OccurredAt:       occurred,
			Amount:           round2(m.minAmt + rng.Float64()*(m.maxAmt-m.minAmt)),
			Currency:         "EUR",
			MerchantName:     m.name,
			MerchantCategory: m.category,
			Arrondissement:   m.zone,
			Channel:          channel,
		})
		if err != nil {
			log.Fatalf("transaction %d failed: %v", i, err)
		}

		res, err := c.Score(ctx, tx.ID)
		if err != nil {
			log.Fatalf("scoring %s failed: %v", tx.ID, err)
		}
		if res.AlertRequired {
			alerts++
		}
	}

	fmt.Printf("seeded %d transactions, %d alerts opened\n", count, alerts)
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}
