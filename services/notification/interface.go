package notification

import (
	"context"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"rentathing/models"
)

// Messenger is the part of the FCM client used here; *messaging.Client
// satisfies it.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// PushService fans negotiation events out to every device subscribed to a
// conversation's topic.
type PushService struct {
	client Messenger
	logger *zap.Logger
}

func NewPushService(client Messenger, logger *zap.Logger) (*PushService, error) {
	if client == nil {
		return nil, fmt.Errorf("notification service initialization error: messaging client is nil")
	}
	return &PushService{client: client, logger: logger}, nil
}

// TopicFor is the FCM topic of a conversation.
func TopicFor(conversationID string) string {
	return "conversation-" + conversationID
}

// Notify sends n to the conversation topic.
func (s *PushService) Notify(ctx context.Context, n models.Notification) error {
	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data["conversationId"] = n.ConversationID

	msg := &messaging.Message{
		Topic: TopicFor(n.ConversationID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "negotiation",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify conversation %s: %w", n.ConversationID, err)
	}
	s.logger.Debug("push sent", zap.String("conversationID", n.ConversationID), zap.String("messageID", id))
	return nil
}

// SubscribeDevice registers a device token for a conversation's pushes.
func (s *PushService) SubscribeDevice(ctx context.Context, conversationID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token", "is required")
	}
	resp, err := s.client.SubscribeToTopic(ctx, []string{token}, TopicFor(conversationID))
	if err != nil {
		return fmt.Errorf("subscribe device to conversation %s: %w", conversationID, err)
	}
	if resp != nil && resp.FailureCount > 0 {
		reason := "rejected"
		if len(resp.Errors) > 0 && resp.Errors[0] != nil {
			reason = resp.Errors[0].Reason
		}
		return &models.RequestError{Op: "subscribe device", StatusCode: 400, Message: reason}
	}
	return nil
}
