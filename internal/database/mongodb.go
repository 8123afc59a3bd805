package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pulse-tracker-report/internal/config"
)

// Collection names for the three logical stores this service owns.
const (
	adhocReportsCollection  = "report_cache"
	weeklyReportsCollection = "weekly_report_cache"
	optedAccountsCollection = "opted_accounts"
)

// MongoClient wraps the MongoDB connection and hands out the collection-bound
// stores (two report caches, one opted-accounts store).
type MongoClient struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoClient connects to MongoDB and prepares the indexes the stores rely
// on. The connection attempt is bounded; callers treat failure as "caching
// and weekly scheduling disabled", not as fatal.
func NewMongoClient(cfg config.MongoDBConfig) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uri := cfg.URI
	if uri == "" {
		if cfg.Username != "" && cfg.Password != "" {
			userInfo := url.UserPassword(cfg.Username, cfg.Password)
			uri = fmt.Sprintf("mongodb://%s@%s:%s/%s?authSource=%s",
				userInfo.String(), cfg.Host, cfg.Port, cfg.Database, url.QueryEscape(cfg.AuthSource))
		} else {
			uri = fmt.Sprintf("mongodb://%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)
		}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	// One record per (accountId, orgId) pair; opt-in upserts against this.
	accountIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "accountId", Value: 1}, {Key: "orgId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(optedAccountsCollection).Indexes().CreateOne(ctx, accountIndex); err != nil {
		// Index may already exist; not fatal.
		log.Printf("Note: opted-accounts index creation: %v", err)
	}

	return &MongoClient{client: client, database: db}, nil
}

// Close disconnects from MongoDB.
func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// AdhocReportCache returns the cache bound to the ad hoc report collection.
func (c *MongoClient) AdhocReportCache() *ReportCache {
	return &ReportCache{collection: c.database.Collection(adhocReportsCollection)}
}

// WeeklyReportCache returns the cache bound to the weekly report collection.
// The two caches share a contract but never share storage, so structurally
// identical parameters for different report kinds cannot collide.
func (c *MongoClient) WeeklyReportCache() *ReportCache {
	return &ReportCache{collection: c.database.Collection(weeklyReportsCollection)}
}

// OptedAccounts returns the opted-in accounts store.
func (c *MongoClient) OptedAccounts() *OptedAccountStore {
	return &OptedAccountStore{collection: c.database.Collection(optedAccountsCollection)}
}
