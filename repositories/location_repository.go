package repositories

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aegis/models"
	"aegis/utils"
)

// LocationRepository persists the uploaded location trail.
type LocationRepository struct {
	collection *mongo.Collection
}

func NewLocationRepository(database *mongo.Database) *LocationRepository {
	return &LocationRepository{
		collection: database.Collection("location_trail"),
	}
}

// CreateBatch uploads a batch of trail entries in one write.
func (lr *LocationRepository) CreateBatch(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	if len(samples) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(samples))
	for _, sample := range samples {
		docs = append(docs, models.TrailEntry{
			ID:        utils.GenerateUUID(),
			UserID:    userID,
			AlertID:   alertID,
			Sample:    sample,
			CreatedAt: now,
		})
	}

	_, err := lr.collection.InsertMany(ctx, docs)
	if err != nil {
		logrus.Errorf("Failed to upload location trail batch: %v", err)
		return utils.NewDatabaseError("upload trail", err)
	}
	return nil
}

// GetTrail reads trail entries for a user, optionally scoped to one alert.
func (lr *LocationRepository) GetTrail(ctx context.Context, req models.LocationTrailRequest) ([]models.TrailEntry, error) {
	filter := bson.M{"userId": req.UserID}
	if req.AlertID != "" {
		filter["alertId"] = req.AlertID
	}
	if !req.StartDate.IsZero() || !req.EndDate.IsZero() {
		timeRange := bson.M{}
		if !req.StartDate.IsZero() {
			timeRange["$gte"] = req.StartDate
		}
		if !req.EndDate.IsZero() {
			timeRange["$lte"] = req.EndDate
		}
		filter["sample.timestamp"] = timeRange
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	opts := options.Find().SetSort(bson.M{"sample.timestamp": -1}).SetLimit(int64(limit))
	cursor, err := lr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("read trail", err)
	}
	defer cursor.Close(ctx)

	var entries []models.TrailEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, utils.NewDatabaseError("decode trail", err)
	}
	return entries, nil
}

// DeleteOlderThan prunes trail entries past the retention window.
func (lr *LocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := lr.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, utils.NewDatabaseError("prune trail", err)
	}
	return result.DeletedCount, nil
}
