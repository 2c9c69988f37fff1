package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/interfaces"
	"aegis/models"
	"aegis/platform"
	"aegis/utils"
)

// AlertService creates SafetyAlert records and coordinates delivery to
// trusted contacts. Dispatch is fire-and-forget: failures are logged, never
// retried synchronously.
type AlertService struct {
	alertStore   interfaces.AlertStore
	contactStore interfaces.ContactStore
	notifier     interfaces.Notifier
	battery      platform.BatteryMonitor
	validator    *utils.ValidationService
}

func NewAlertService(
	alertStore interfaces.AlertStore,
	contactStore interfaces.ContactStore,
	notifier interfaces.Notifier,
	battery platform.BatteryMonitor,
) *AlertService {
	return &AlertService{
		alertStore:   alertStore,
		contactStore: contactStore,
		notifier:     notifier,
		battery:      battery,
		validator:    utils.NewValidationService(),
	}
}

// CreateAlertRecord creates exactly one SafetyAlert for a panic activation.
// Callers are responsible for not invoking it again for the same session;
// re-activation while armed is a no-op upstream.
func (as *AlertService) CreateAlertRecord(ctx context.Context, userID, alertType, message string, location *models.LocationSample) (*models.SafetyAlert, error) {
	alert := &models.SafetyAlert{
		UserID:       userID,
		Type:         alertType,
		Status:       models.AlertStatusActive,
		Message:      message,
		Location:     location,
		BatteryLevel: as.battery.Level(),
	}

	if err := as.alertStore.Create(ctx, alert); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"alertId": alert.ID,
		"type":    alertType,
	}).Info("Safety alert created")
	return alert, nil
}

// Dispatch fans the alert out to the user's trusted contacts. It returns
// the number of contacts targeted; delivery outcomes are logged only.
func (as *AlertService) Dispatch(ctx context.Context, alert *models.SafetyAlert, message string) int {
	contacts, err := as.contactStore.GetUserContacts(ctx, alert.UserID)
	if err != nil {
		logrus.WithError(err).Error("Failed to load trusted contacts for dispatch")
		return 0
	}
	if len(contacts) == 0 {
		logrus.Warn("Alert dispatched with no trusted contacts configured")
		return 0
	}

	body := as.composeMessage(alert, message)

	for _, contact := range contacts {
		contact := contact
		if contact.NotifyBySMS && contact.Phone != "" {
			go func() {
				if err := as.notifier.SendSMS(context.Background(), contact.Phone, body); err != nil {
					logrus.WithError(utils.NewDeliveryFailureError(err)).
						WithField("contact", contact.ID).Error("SMS delivery failed")
				}
			}()
		}
		if contact.NotifyByPush && contact.DeviceToken != "" {
			go func() {
				data := map[string]string{
					"type":    "safety_alert",
					"alertId": alert.ID,
				}
				if alert.Location != nil {
					data["latitude"] = fmt.Sprintf("%.6f", alert.Location.Latitude)
					data["longitude"] = fmt.Sprintf("%.6f", alert.Location.Longitude)
				}
				if err := as.notifier.SendPush(context.Background(), contact.DeviceToken, "Emergency Alert", body, data); err != nil {
					logrus.WithError(utils.NewDeliveryFailureError(err)).
						WithField("contact", contact.ID).Error("Push delivery failed")
				}
			}()
		}
	}

	return len(contacts)
}

func (as *AlertService) composeMessage(alert *models.SafetyAlert, message string) string {
	body := "Emergency alert"
	switch alert.Type {
	case models.AlertTypePanic:
		body = "PANIC ALERT: immediate help may be needed"
	case models.AlertTypeDeadManSwitch:
		body = "ALERT: scheduled check-in was missed"
	case models.AlertTypeCheckInMissed:
		body = "ALERT: check-in overdue"
	}
	if message != "" {
		body += " - " + message
	}
	if alert.Location != nil {
		body += fmt.Sprintf(" - last seen %s", alert.Location.Describe())
	}
	body += fmt.Sprintf(" - battery %d%%", alert.BatteryLevel)
	return utils.TruncateString(body, 300)
}

// Escalate marks the alert escalated and notifies contacts. Idempotent:
// escalating an alert that is already escalated or closed is a no-op, so
// out-of-order commands from the lock-screen surface are harmless.
func (as *AlertService) Escalate(ctx context.Context, userID, alertID string) error {
	alert, err := as.alertStore.GetByID(ctx, userID, alertID)
	if err != nil {
		return err
	}
	if alert.Status != models.AlertStatusActive {
		logrus.WithFields(logrus.Fields{
			"alertId": alertID,
			"status":  alert.Status,
		}).Debug("Escalate ignored, alert not active")
		return nil
	}

	if err := as.alertStore.MarkEscalated(ctx, userID, alertID, time.Now()); err != nil {
		return err
	}

	alert.Status = models.AlertStatusEscalated
	alert.Escalated = true
	go as.Dispatch(context.Background(), alert, "No check-in received, escalating")

	logrus.WithField("alertId", alertID).Warn("Safety alert escalated")
	return nil
}

// Resolve closes the alert with the given outcome. Resolving a closed alert
// is a no-op.
func (as *AlertService) Resolve(ctx context.Context, userID, alertID string, req models.ResolveAlertRequest) error {
	if validationErrors := as.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return utils.NewBadRequestError("invalid resolution outcome")
	}

	alert, err := as.alertStore.GetByID(ctx, userID, alertID)
	if err != nil {
		return err
	}
	if alert.Closed() {
		return nil
	}

	if err := as.alertStore.MarkResolved(ctx, userID, alertID, req.Outcome, req.Note, time.Now()); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"alertId": alertID,
		"outcome": req.Outcome,
	}).Info("Safety alert resolved")
	return nil
}

// GetAlert returns a single alert scoped to the user.
func (as *AlertService) GetAlert(ctx context.Context, userID, alertID string) (*models.SafetyAlert, error) {
	return as.alertStore.GetByID(ctx, userID, alertID)
}

// GetActiveAlerts returns the user's open alerts, newest first.
func (as *AlertService) GetActiveAlerts(ctx context.Context, userID string) ([]models.SafetyAlert, error) {
	return as.alertStore.GetActive(ctx, userID)
}

// GetAlertHistory returns past alerts, newest first.
func (as *AlertService) GetAlertHistory(ctx context.Context, userID string, limit int) ([]models.SafetyAlert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return as.alertStore.GetHistory(ctx, userID, limit)
}

// AttachHistory persists the session's location history onto the alert.
func (as *AlertService) AttachHistory(ctx context.Context, userID, alertID string, samples []models.LocationSample) {
	if err := as.alertStore.AppendHistory(ctx, userID, alertID, samples); err != nil {
		logrus.WithError(err).Warn("Failed to persist alert location history")
	}
}
