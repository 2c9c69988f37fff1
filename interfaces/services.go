package interfaces

import (
	"context"
	"time"

	"aegis/models"
)

// Store interfaces the services depend on; the mongo repositories satisfy
// them in production.

type AlertStore interface {
	Create(ctx context.Context, alert *models.SafetyAlert) error
	GetByID(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error)
	GetActive(ctx context.Context, userID string) ([]models.SafetyAlert, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]models.SafetyAlert, error)
	MarkEscalated(ctx context.Context, userID, alertID string, at time.Time) error
	MarkResolved(ctx context.Context, userID, alertID, outcome, note string, at time.Time) error
	AppendHistory(ctx context.Context, userID, alertID string, samples []models.LocationSample) error
}

type ContactStore interface {
	GetUserContacts(ctx context.Context, userID string) ([]models.TrustedContact, error)
}

type TrailStore interface {
	CreateBatch(ctx context.Context, userID, alertID string, samples []models.LocationSample) error
	GetTrail(ctx context.Context, req models.LocationTrailRequest) ([]models.TrailEntry, error)
}

// FlagStore is the cross-process control flag mailbox.
type FlagStore interface {
	Set(ctx context.Context, userID, flag, value string) error
	SetTimestamp(ctx context.Context, userID, flag string, t time.Time) error
	Consume(ctx context.Context, userID, flag string) (string, bool, error)
	Peek(ctx context.Context, userID, flag string) (string, bool, error)
	Clear(ctx context.Context, userID, flag string) error
}

// Notifier is the out-of-band delivery collaborator. Errors are opaque and
// never retried by callers.
type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// ActivityPublisher renders content-state updates on the lock-screen
// presentation surface.
type ActivityPublisher interface {
	PublishActivity(userID string, state models.LiveActivityState)
}
