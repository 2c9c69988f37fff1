package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aegis/models"
	"aegis/utils"
)

// ContactRepository persists trusted-contact relations and linking codes.
type ContactRepository struct {
	contactsCollection *mongo.Collection
	codesCollection    *mongo.Collection
}

func NewContactRepository(database *mongo.Database) *ContactRepository {
	return &ContactRepository{
		contactsCollection: database.Collection("trusted_contacts"),
		codesCollection:    database.Collection("linking_codes"),
	}
}

func (cr *ContactRepository) Create(ctx context.Context, contact *models.TrustedContact) error {
	if contact.ID == "" {
		contact.ID = utils.GenerateUUID()
	}
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()

	_, err := cr.contactsCollection.InsertOne(ctx, contact)
	if err != nil {
		return utils.NewDatabaseError("create contact", err)
	}
	return nil
}

func (cr *ContactRepository) GetByID(ctx context.Context, userID, contactID string) (*models.TrustedContact, error) {
	var contact models.TrustedContact
	err := cr.contactsCollection.FindOne(ctx, bson.M{"_id": contactID, "userId": userID}).Decode(&contact)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewContactNotFoundError()
	}
	if err != nil {
		return nil, utils.NewDatabaseError("get contact", err)
	}
	return &contact, nil
}

func (cr *ContactRepository) GetUserContacts(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := cr.contactsCollection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, utils.NewDatabaseError("list contacts", err)
	}
	defer cursor.Close(ctx)

	var contacts []models.TrustedContact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, utils.NewDatabaseError("decode contacts", err)
	}
	return contacts, nil
}

func (cr *ContactRepository) Update(ctx context.Context, userID, contactID string, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	result, err := cr.contactsCollection.UpdateOne(ctx,
		bson.M{"_id": contactID, "userId": userID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return utils.NewDatabaseError("update contact", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewContactNotFoundError()
	}
	return nil
}

func (cr *ContactRepository) Delete(ctx context.Context, userID, contactID string) error {
	result, err := cr.contactsCollection.DeleteOne(ctx, bson.M{"_id": contactID, "userId": userID})
	if err != nil {
		return utils.NewDatabaseError("delete contact", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewContactNotFoundError()
	}
	return nil
}

// =================== LINKING CODES ===================

func (cr *ContactRepository) CreateLinkingCode(ctx context.Context, code *models.LinkingCode) error {
	if code.ID == "" {
		code.ID = utils.GenerateUUID()
	}
	code.CreatedAt = time.Now()

	_, err := cr.codesCollection.InsertOne(ctx, code)
	if err != nil {
		return utils.NewDatabaseError("create linking code", err)
	}
	return nil
}

// GetOpenLinkingCodes returns unredeemed, unexpired codes across all users;
// redeeming matches the presented code against each hash.
func (cr *ContactRepository) GetOpenLinkingCodes(ctx context.Context, now time.Time) ([]models.LinkingCode, error) {
	cursor, err := cr.codesCollection.Find(ctx, bson.M{
		"expiresAt": bson.M{"$gt": now},
		"usedAt":    bson.M{"$in": []interface{}{nil, time.Time{}}},
	})
	if err != nil {
		return nil, utils.NewDatabaseError("list linking codes", err)
	}
	defer cursor.Close(ctx)

	var codes []models.LinkingCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, utils.NewDatabaseError("decode linking codes", err)
	}
	return codes, nil
}

func (cr *ContactRepository) MarkLinkingCodeUsed(ctx context.Context, codeID string, usedAt time.Time) error {
	_, err := cr.codesCollection.UpdateOne(ctx,
		bson.M{"_id": codeID},
		bson.M{"$set": bson.M{"usedAt": usedAt}},
	)
	if err != nil {
		return utils.NewDatabaseError("redeem linking code", err)
	}
	return nil
}
