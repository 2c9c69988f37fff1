package models

import (
	"time"
)

// TrustedContact is a profile granted alert and location visibility over
// the owning user via an explicit relation record.
type TrustedContact struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	UserID       string    `json:"userId" bson:"userId"` // owner
	Name         string    `json:"name" bson:"name"`
	Phone        string    `json:"phone" bson:"phone"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	DeviceToken  string    `json:"deviceToken,omitempty" bson:"deviceToken,omitempty"`
	Relationship string    `json:"relationship,omitempty" bson:"relationship,omitempty"`
	LinkedUserID string    `json:"linkedUserId,omitempty" bson:"linkedUserId,omitempty"`
	NotifyBySMS  bool      `json:"notifyBySms" bson:"notifyBySms"`
	NotifyByPush bool      `json:"notifyByPush" bson:"notifyByPush"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// LinkingCode joins a trusted contact's own account to the relation record.
// Only the bcrypt hash of the code is stored.
type LinkingCode struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"userId" bson:"userId"`
	ContactID string    `json:"contactId" bson:"contactId"`
	CodeHash  []byte    `json:"-" bson:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
	UsedAt    time.Time `json:"usedAt,omitempty" bson:"usedAt,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Expired reports whether the code can no longer be redeemed.
func (lc *LinkingCode) Expired(now time.Time) bool {
	return now.After(lc.ExpiresAt) || !lc.UsedAt.IsZero()
}

type AddContactRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty" validate:"max=50"`
	NotifyBySMS  bool   `json:"notifyBySms"`
	NotifyByPush bool   `json:"notifyByPush"`
}

type RedeemLinkingCodeRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}
