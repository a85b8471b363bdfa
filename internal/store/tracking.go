package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pointage-service/internal/model"
	"pointage-service/internal/service"
)

// TrackingStore persists monthly tracking documents. The unique index on
// (user_id, month_key) is what guarantees at most one document per user and
// month: a concurrent first-time creation fails fast on the loser with a
// duplicate-key error instead of producing two documents.
type TrackingStore struct {
	tracking *mongo.Collection
}

func NewTrackingStore(ctx context.Context, db *MongoDB) (*TrackingStore, error) {
	tracking := db.Collection("monthly_tracking")

	if _, err := tracking.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "month_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "month_key", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create monthly_tracking indexes: %w", err)
	}

	return &TrackingStore{tracking: tracking}, nil
}

// GetMonthly returns the document for a user and YYYY-MM key, or nil if not found.
func (s *TrackingStore) GetMonthly(ctx context.Context, userID, monthKey string) (*model.MonthlyTracking, error) {
	var mt model.MonthlyTracking
	err := s.tracking.FindOne(ctx, bson.M{
		"user_id":   userID,
		"month_key": monthKey,
	}).Decode(&mt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find monthly tracking: %w", err)
	}
	return &mt, nil
}

// CreateMonthly inserts a new monthly document and sets the ID on the struct.
func (s *TrackingStore) CreateMonthly(ctx context.Context, mt *model.MonthlyTracking) error {
	mt.CreatedAt = time.Now()
	mt.UpdatedAt = time.Now()
	res, err := s.tracking.InsertOne(ctx, mt)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert monthly tracking %s/%s: %w", mt.UserID, mt.MonthKey, service.ErrDuplicateMonth)
	}
	if err != nil {
		return fmt.Errorf("insert monthly tracking: %w", err)
	}
	mt.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// UpdateMonthly replaces the whole document.
func (s *TrackingStore) UpdateMonthly(ctx context.Context, mt *model.MonthlyTracking) error {
	mt.UpdatedAt = time.Now()
	_, err := s.tracking.ReplaceOne(ctx, bson.M{"_id": mt.ID}, mt)
	return err
}

// GetMonthlyRange returns a user's documents with month_key in [fromKey, toKey], ascending.
func (s *TrackingStore) GetMonthlyRange(ctx context.Context, userID, fromKey, toKey string) ([]*model.MonthlyTracking, error) {
	cursor, err := s.tracking.Find(ctx,
		bson.M{"user_id": userID, "month_key": bson.M{"$gte": fromKey, "$lte": toKey}},
		options.Find().SetSort(bson.D{{Key: "month_key", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find monthly tracking range: %w", err)
	}
	var results []*model.MonthlyTracking
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode monthly tracking range: %w", err)
	}
	return results, nil
}
