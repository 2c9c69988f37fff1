package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"google.golang.org/api/option"

	"aegis/utils"
)

// DeliveryService is the client to the out-of-band delivery collaborator:
// Twilio for SMS, FCM for push. Errors are returned opaque; the dispatch
// layer decides what to do with them (log, never retry).
type DeliveryService struct {
	fcmClient    *messaging.Client
	twilioClient *twilio.RestClient
	twilioNumber string
}

func NewDeliveryService(firebaseCredentials, twilioSID, twilioToken, twilioNumber string) (*DeliveryService, error) {
	ds := &DeliveryService{
		twilioNumber: twilioNumber,
	}

	if firebaseCredentials != "" {
		opt := option.WithCredentialsFile(firebaseCredentials)
		app, err := firebase.NewApp(context.Background(), nil, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
		}
		fcmClient, err := app.Messaging(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
		}
		ds.fcmClient = fcmClient
	}

	if twilioSID != "" {
		ds.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioSID,
			Password: twilioToken,
		})
	}

	return ds, nil
}

func (ds *DeliveryService) SendSMS(ctx context.Context, phone, message string) error {
	if ds.twilioClient == nil {
		logrus.Warn("Twilio not configured, skipping SMS send")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(ds.twilioNumber)
	params.SetBody(message)

	resp, err := ds.twilioClient.Api.CreateMessage(params)
	if err != nil {
		return utils.NewDeliveryFailureError(err)
	}

	logrus.WithField("sid", *resp.Sid).Info("SMS delivered to provider")
	return nil
}

func (ds *DeliveryService) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if ds.fcmClient == nil {
		logrus.Warn("FCM not configured, skipping push send")
		return nil
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "emergency",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "emergency",
				},
			},
		},
	}

	messageID, err := ds.fcmClient.Send(ctx, message)
	if err != nil {
		return utils.NewDeliveryFailureError(err)
	}

	logrus.WithField("messageId", messageID).Info("Push delivered to provider")
	return nil
}
