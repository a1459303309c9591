// Command score scores one transaction by id against a running Sentinel
// server and prints the result.
//
// Usage:
//
//	SENTINEL_URL=http://localhost:8080 go run ./cmd/score txn_abc123
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/sentinelai/sentinel/pkg/client"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: score <transaction-id>")
		os.Exit(1)
	}
	txID := os.Args[1]

	baseURL := os.Getenv("SENTINEL_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c := client.New(baseURL, client.WithAPIKey(os.Getenv("API_KEY")))

	res, err := c.Score(context.Background(), txID)
	if err != nil {
		log.Fatalf("scoring failed: %v", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}
