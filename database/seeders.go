package database

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"aegis/models"
	"aegis/utils"
)

// RunSeeders populates development data. Each seeder is idempotent: it
// checks for existing documents before inserting.
func RunSeeders(db *mongo.Database) error {
	logrus.Info("🌱 Running development seeders...")

	if err := seedTrustedContacts(db); err != nil {
		return err
	}

	logrus.Info("✅ Seeders completed")
	return nil
}

// seedTrustedContacts inserts a sample contact so alert dispatch has a
// target in development.
func seedTrustedContacts(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("trusted_contacts")

	userID := os.Getenv("AEGIS_USER_ID")
	if userID == "" {
		userID = "local-user"
	}

	count, err := col.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	contact := models.TrustedContact{
		ID:           utils.GenerateUUID(),
		UserID:       userID,
		Name:         "Dev Contact",
		Phone:        "+15550100000",
		Relationship: "friend",
		NotifyBySMS:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := col.InsertOne(ctx, contact); err != nil {
		return err
	}

	logrus.Infof("🌱 Seeded trusted contact for user %s", userID)
	return nil
}
