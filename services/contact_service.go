package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"aegis/models"
	"aegis/repositories"
	"aegis/utils"
)

const linkingCodeTTL = 24 * time.Hour

// ContactService manages trusted-contact relations and the linking codes
// that join a contact's own account to the relation.
type ContactService struct {
	contactRepo *repositories.ContactRepository
	validator   *utils.ValidationService
}

func NewContactService(contactRepo *repositories.ContactRepository) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		validator:   utils.NewValidationService(),
	}
}

func (cs *ContactService) GetContacts(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	return cs.contactRepo.GetUserContacts(ctx, userID)
}

func (cs *ContactService) AddContact(ctx context.Context, userID string, req models.AddContactRequest) (*models.TrustedContact, error) {
	if validationErrors := cs.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewBadRequestError("invalid contact")
	}

	contact := &models.TrustedContact{
		UserID:       userID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Relationship: req.Relationship,
		NotifyBySMS:  req.NotifyBySMS,
		NotifyByPush: req.NotifyByPush,
	}
	if !contact.NotifyBySMS && !contact.NotifyByPush {
		contact.NotifyBySMS = true
	}

	if err := cs.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (cs *ContactService) DeleteContact(ctx context.Context, userID, contactID string) error {
	return cs.contactRepo.Delete(ctx, userID, contactID)
}

// GenerateLinkingCode issues a short code the trusted contact redeems from
// their own device. Only the bcrypt hash is stored.
func (cs *ContactService) GenerateLinkingCode(ctx context.Context, userID, contactID string) (string, error) {
	if _, err := cs.contactRepo.GetByID(ctx, userID, contactID); err != nil {
		return "", err
	}

	code := utils.GenerateLinkingCode()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", utils.NewInternalError("failed to hash linking code")
	}

	record := &models.LinkingCode{
		UserID:    userID,
		ContactID: contactID,
		CodeHash:  hash,
		ExpiresAt: time.Now().Add(linkingCodeTTL),
	}
	if err := cs.contactRepo.CreateLinkingCode(ctx, record); err != nil {
		return "", err
	}

	logrus.WithField("contactId", contactID).Info("Linking code issued")
	return code, nil
}

// RedeemLinkingCode links the redeeming user's account to the relation the
// code was issued for.
func (cs *ContactService) RedeemLinkingCode(ctx context.Context, redeemerUserID string, req models.RedeemLinkingCodeRequest) (*models.TrustedContact, error) {
	if validationErrors := cs.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewBadRequestError("invalid linking code")
	}

	now := time.Now()
	codes, err := cs.contactRepo.GetOpenLinkingCodes(ctx, now)
	if err != nil {
		return nil, err
	}

	for _, candidate := range codes {
		if candidate.Expired(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword(candidate.CodeHash, []byte(req.Code)) != nil {
			continue
		}

		if err := cs.contactRepo.MarkLinkingCodeUsed(ctx, candidate.ID, now); err != nil {
			return nil, err
		}
		if err := cs.contactRepo.Update(ctx, candidate.UserID, candidate.ContactID, bson.M{
			"linkedUserId": redeemerUserID,
		}); err != nil {
			return nil, err
		}

		logrus.WithField("contactId", candidate.ContactID).Info("Linking code redeemed")
		return cs.contactRepo.GetByID(ctx, candidate.UserID, candidate.ContactID)
	}

	return nil, utils.NewNotFoundError("Linking code")
}
