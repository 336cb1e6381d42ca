package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	notification := &apns2.Notification{
		DeviceToken: request.Token,
		Topic:       a.topic,
		Payload:     a.buildPayload(request),
	}

	response, err := a.client.PushWithContext(ctx, notification)
	if err != nil {
		return &NotificationResponse{
			Success: false,
			Error:   err.Error(),
			Token:   request.Token,
		}, err
	}

	if response.Sent() {
		return &NotificationResponse{
			MessageID: response.ApnsID,
			Success:   true,
			Token:     request.Token,
		}, nil
	}

	return &NotificationResponse{
		Success: false,
		Error:   response.Reason,
		Token:   request.Token,
	}, fmt.Errorf("APNS error: %s", response.Reason)
}

func (a *APNSProvider) SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error) {
	responses := make([]*NotificationResponse, len(requests))

	for i, req := range requests {
		response, err := a.SendNotification(ctx, req)
		if err != nil {
			response = &NotificationResponse{
				Success: false,
				Error:   err.Error(),
				Token:   req.Token,
			}
		}
		responses[i] = response
	}

	return responses, nil
}

func (a *APNSProvider) buildPayload(request *NotificationRequest) *payload.Payload {
	p := payload.NewPayload().
		AlertTitle(request.Title).
		AlertBody(request.Body)

	if request.Sound != "" {
		p = p.Sound(request.Sound)
	}
	if request.Badge > 0 {
		p = p.Badge(request.Badge)
	}

	for k, v := range request.Data {
		p = p.Custom(k, v)
	}

	return p
}
