package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
	Down        func(*mongo.Database) error
}

// migrationRecord tracks applied migrations
type migrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create safety alerts collection with indexes",
		Up:          createSafetyAlertsCollection,
	},
	{
		Version:     2,
		Description: "Create location trail collection with indexes",
		Up:          createLocationTrailCollection,
	},
	{
		Version:     3,
		Description: "Create trusted contacts collection with indexes",
		Up:          createTrustedContactsCollection,
	},
	{
		Version:     4,
		Description: "Create linking codes collection with indexes",
		Up:          createLinkingCodesCollection,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrationsCol := db.Collection("migrations")

	currentVersion := getCurrentMigrationVersion(ctx, migrationsCol)
	logrus.Infof("📋 Current migration version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.Infof("🔄 Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err := migrationsCol.InsertOne(ctx, migrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		logrus.Infof("✅ Migration %d completed", migration.Version)
	}

	return nil
}

// getCurrentMigrationVersion returns the current migration version
func getCurrentMigrationVersion(ctx context.Context, col *mongo.Collection) int {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var record migrationRecord
	err := col.FindOne(ctx, bson.D{}, opts).Decode(&record)
	if err != nil {
		return 0 // No migrations applied yet
	}
	return record.Version
}

// Individual migration functions

func createSafetyAlertsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("safety_alerts")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createLocationTrailCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("location_trail")

	// Trail entries expire server-side after the retention window.
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "alertId", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 3600),
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createTrustedContactsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("trusted_contacts")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "linkedUserId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "phone", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createLinkingCodesCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("linking_codes")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "contactId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "usedAt", Value: 1}, {Key: "expiresAt", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}
