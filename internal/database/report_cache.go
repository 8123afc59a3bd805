package database

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pulse-tracker-report/internal/models"
)

// CachedReport is one stored report document, keyed by the deterministic
// parameter hash.
type CachedReport struct {
	CacheKey     string           `bson:"cacheKey" json:"cacheKey"`
	Organization string           `bson:"organization" json:"organization"`
	OrgID        int              `bson:"orgId" json:"orgId"`
	Users        []models.UserRef `bson:"users" json:"users"`
	StartDate    string           `bson:"startDate" json:"startDate"`
	EndDate      string           `bson:"endDate" json:"endDate"`
	Report       *models.Report   `bson:"report" json:"report"`
	CreatedAt    time.Time        `bson:"createdAt" json:"createdAt"`
	LastAccessed time.Time        `bson:"lastAccessed" json:"lastAccessed"`
}

// CacheKey derives the deterministic lookup key for a report request. Users
// are sorted by ID before hashing so any permutation of the same user set
// yields the same key. The hash input is
// "org|orgId|id1:name1,id2:name2,...|startDate|endDate".
func CacheKey(organization string, orgID int, users []models.UserRef, startDate, endDate string) string {
	sorted := make([]models.UserRef, len(users))
	copy(sorted, users)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	parts := make([]string, len(sorted))
	for i, u := range sorted {
		parts[i] = fmt.Sprintf("%d:%s", u.ID, u.Name)
	}

	input := fmt.Sprintf("%s|%d|%s|%s|%s", organization, orgID, strings.Join(parts, ","), startDate, endDate)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)
}

// ReportCache is a report store bound to a single collection. Ad hoc and
// weekly reports get separate instances so their keyspaces never mix.
type ReportCache struct {
	collection *mongo.Collection
}

// Get looks up a cached report by key. A miss returns (nil, nil); only
// transport-level failures return an error. On a hit, lastAccessed is bumped
// best-effort: a failed touch never fails the read.
func (rc *ReportCache) Get(ctx context.Context, cacheKey string) (*CachedReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cached CachedReport
	err := rc.collection.FindOne(ctx, bson.M{"cacheKey": cacheKey}).Decode(&cached)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report cache: %w", err)
	}

	_, err = rc.collection.UpdateOne(ctx,
		bson.M{"cacheKey": cacheKey},
		bson.M{"$set": bson.M{"lastAccessed": time.Now()}})
	if err != nil {
		// The caller already has the report; losing the touch is acceptable.
		log.Printf("WARNING: failed to update lastAccessed for %s: %v", cacheKey, err)
	}

	return &cached, nil
}

// Put stores a report under its key, replacing any existing document.
func (rc *ReportCache) Put(ctx context.Context, cached *CachedReport) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	cached.CreatedAt = now
	cached.LastAccessed = now

	opts := options.Replace().SetUpsert(true)
	_, err := rc.collection.ReplaceOne(ctx, bson.M{"cacheKey": cached.CacheKey}, cached, opts)
	if err != nil {
		return fmt.Errorf("failed to store cached report: %w", err)
	}
	return nil
}

// Delete removes a cached report. Deleting a missing key is not an error.
func (rc *ReportCache) Delete(ctx context.Context, cacheKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := rc.collection.DeleteOne(ctx, bson.M{"cacheKey": cacheKey})
	if err != nil {
		return fmt.Errorf("failed to delete cached report: %w", err)
	}
	return nil
}
