package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aegis/models"
	"aegis/utils"
)

// AlertRepository persists SafetyAlert records in the remote store. Every
// read and write is scoped to the owning user; row-level rules on the
// collaborator enforce the rest.
type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(database *mongo.Database) *AlertRepository {
	return &AlertRepository{
		collection: database.Collection("safety_alerts"),
	}
}

func (ar *AlertRepository) Create(ctx context.Context, alert *models.SafetyAlert) error {
	if alert.ID == "" {
		alert.ID = utils.GenerateUUID()
	}
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = time.Now()
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}

	_, err := ar.collection.InsertOne(ctx, alert)
	if err != nil {
		logrus.Errorf("Failed to create safety alert: %v", err)
		return utils.NewDatabaseError("create alert", err)
	}
	return nil
}

func (ar *AlertRepository) GetByID(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	var alert models.SafetyAlert
	err := ar.collection.FindOne(ctx, bson.M{"_id": alertID, "userId": userID}).Decode(&alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewAlertNotFoundError()
	}
	if err != nil {
		return nil, utils.NewDatabaseError("get alert", err)
	}
	return &alert, nil
}

// GetActive returns the user's open alerts, newest first.
func (ar *AlertRepository) GetActive(ctx context.Context, userID string) ([]models.SafetyAlert, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := ar.collection.Find(ctx, bson.M{
		"userId": userID,
		"status": bson.M{"$in": []string{models.AlertStatusActive, models.AlertStatusEscalated}},
	}, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("list active alerts", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.SafetyAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, utils.NewDatabaseError("decode alerts", err)
	}
	return alerts, nil
}

func (ar *AlertRepository) Update(ctx context.Context, userID, alertID string, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	result, err := ar.collection.UpdateOne(ctx,
		bson.M{"_id": alertID, "userId": userID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return utils.NewDatabaseError("update alert", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAlertNotFoundError()
	}
	return nil
}

// MarkEscalated records the escalation transition on the alert. The prior
// status is part of the update filter, so a concurrent resolve cannot be
// overwritten; losing that race is a no-op, not an error.
func (ar *AlertRepository) MarkEscalated(ctx context.Context, userID, alertID string, at time.Time) error {
	result, err := ar.collection.UpdateOne(ctx,
		bson.M{
			"_id":    alertID,
			"userId": userID,
			"status": models.AlertStatusActive,
		},
		bson.M{"$set": bson.M{
			"status":      models.AlertStatusEscalated,
			"escalated":   true,
			"escalatedAt": at,
			"updatedAt":   time.Now(),
		}},
	)
	if err != nil {
		return utils.NewDatabaseError("escalate alert", err)
	}
	if result.MatchedCount == 0 {
		logrus.WithField("alertId", alertID).Debug("Escalation skipped, alert no longer active")
	}
	return nil
}

// MarkResolved closes the alert with the given outcome. Only an open alert
// matches the filter; resolving an already-closed alert changes nothing.
func (ar *AlertRepository) MarkResolved(ctx context.Context, userID, alertID, outcome, note string, at time.Time) error {
	fields := bson.M{
		"status":     outcome,
		"resolvedAt": at,
		"updatedAt":  time.Now(),
	}
	if note != "" {
		fields["resolution"] = note
	}
	result, err := ar.collection.UpdateOne(ctx,
		bson.M{
			"_id":    alertID,
			"userId": userID,
			"status": bson.M{"$in": []string{models.AlertStatusActive, models.AlertStatusEscalated}},
		},
		bson.M{"$set": fields},
	)
	if err != nil {
		return utils.NewDatabaseError("resolve alert", err)
	}
	if result.MatchedCount == 0 {
		logrus.WithField("alertId", alertID).Debug("Resolve skipped, alert already closed")
	}
	return nil
}

// AppendHistory attaches a location sample batch to the alert record.
func (ar *AlertRepository) AppendHistory(ctx context.Context, userID, alertID string, samples []models.LocationSample) error {
	if len(samples) == 0 {
		return nil
	}
	_, err := ar.collection.UpdateOne(ctx,
		bson.M{"_id": alertID, "userId": userID},
		bson.M{
			"$push": bson.M{"locationHistory": bson.M{"$each": samples}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return utils.NewDatabaseError("append alert history", err)
	}
	return nil
}

func (ar *AlertRepository) GetHistory(ctx context.Context, userID string, limit int) ([]models.SafetyAlert, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(int64(limit))
	cursor, err := ar.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("list alerts", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.SafetyAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, utils.NewDatabaseError("decode alerts", err)
	}
	return alerts, nil
}
