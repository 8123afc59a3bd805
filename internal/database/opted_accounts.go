package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pulse-tracker-report/internal/models"
)

// OptedAccountStore persists weekly-report subscriptions.
type OptedAccountStore struct {
	collection *mongo.Collection
}

// Upsert stores the subscription for (accountId, orgId), replacing any
// existing record for the pair. Opting in again refreshes the recipient
// email, user roster and trigger time instead of accumulating duplicates.
func (s *OptedAccountStore) Upsert(ctx context.Context, account *models.OptedAccount) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"accountId": account.AccountID, "orgId": account.OrgID}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, filter, account, opts)
	if err != nil {
		return fmt.Errorf("failed to store opted account: %w", err)
	}
	return nil
}

// Remove deletes the subscription for (accountId, orgId). Returns the number
// of records removed so callers can tell opt-out of a non-subscriber apart.
func (s *OptedAccountStore) Remove(ctx context.Context, accountID, orgID int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"accountId": accountID, "orgId": orgID})
	if err != nil {
		return 0, fmt.Errorf("failed to remove opted account: %w", err)
	}
	return result.DeletedCount, nil
}

// Get returns the subscription for (accountId, orgId), or (nil, nil) if none
// exists.
func (s *OptedAccountStore) Get(ctx context.Context, accountID, orgID int) (*models.OptedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var account models.OptedAccount
	err := s.collection.FindOne(ctx, bson.M{"accountId": accountID, "orgId": orgID}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read opted account: %w", err)
	}
	return &account, nil
}

// List returns every stored subscription. Used at startup to rebuild the
// scheduler's job set.
func (s *OptedAccountStore) List(ctx context.Context) ([]models.OptedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list opted accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.OptedAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode opted accounts: %w", err)
	}
	return accounts, nil
}

// ListByAccount returns every org subscription held by one account.
func (s *OptedAccountStore) ListByAccount(ctx context.Context, accountID int) ([]models.OptedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.M{"accountId": accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to list opted accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.OptedAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode opted accounts: %w", err)
	}
	return accounts, nil
}
