package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"pulse-tracker-report/internal/config"
	"pulse-tracker-report/internal/database"
	"pulse-tracker-report/internal/models"
)

// cache-check derives the cache key for a report request and inspects both
// cache namespaces for it. Useful when diagnosing why a request regenerated
// instead of hitting the cache.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if len(os.Args) < 6 {
		fmt.Println("Usage: cache-check <org> <orgID> <users> <startDate> <endDate>")
		fmt.Println("  users is a comma-separated list of id:name pairs")
		fmt.Println("Example: cache-check Turbo 3 1:ben,2:ana 2025-11-17 2025-11-23")
		os.Exit(1)
	}

	org := os.Args[1]
	orgID, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("Invalid org ID: %v", err)
	}
	users, err := parseUsers(os.Args[3])
	if err != nil {
		log.Fatalf("Invalid users: %v", err)
	}
	startDate := os.Args[4]
	endDate := os.Args[5]

	key := database.CacheKey(org, orgID, users, startDate, endDate)
	fmt.Printf("Cache key: %s\n\n", key)

	client, err := database.NewMongoClient(cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	inspect(ctx, "ad hoc", client.AdhocReportCache(), key)
	inspect(ctx, "weekly", client.WeeklyReportCache(), key)
}

func inspect(ctx context.Context, name string, cache *database.ReportCache, key string) {
	fmt.Printf("=== %s cache ===\n", name)
	cached, err := cache.Get(ctx, key)
	if err != nil {
		fmt.Printf("read error: %v\n\n", err)
		return
	}
	if cached == nil {
		fmt.Printf("miss\n\n")
		return
	}
	fmt.Printf("hit: created %s, last accessed %s, period %s to %s\n\n",
		cached.CreatedAt.Format(time.RFC3339), cached.LastAccessed.Format(time.RFC3339),
		cached.StartDate, cached.EndDate)
}

func parseUsers(arg string) ([]models.UserRef, error) {
	var users []models.UserRef
	for _, pair := range strings.Split(arg, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected id:name, got %q", pair)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", parts[0])
		}
		users = append(users, models.UserRef{ID: id, Name: parts[1]})
	}
	return users, nil
}
