package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentathing/services/negotiation"
	"rentathing/utils"
)

// DeviceSubscriber registers a device for a conversation's push topic.
type DeviceSubscriber interface {
	SubscribeDevice(ctx context.Context, conversationID, token string) error
}

// ChatHandler serves conversations and plain chat messages.
type ChatHandler struct {
	Service NegotiationService
	Devices DeviceSubscriber
}

// NewChatHandler builds the chat endpoints. devices may be nil when push
// notifications are not configured.
func NewChatHandler(svc NegotiationService, devices DeviceSubscriber) *ChatHandler {
	return &ChatHandler{Service: svc, Devices: devices}
}

// ListConversationsHandler lists the caller's conversations, most recent first.
func (h *ChatHandler) ListConversationsHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	convs, err := h.Service.Conversations(c.Request.Context(), sess)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// StartConversationHandler creates, or returns the existing, conversation
// between the caller and a listing's owner.
func (h *ChatHandler) StartConversationHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.StartInput
	if !bindJSON(c, &in) {
		return
	}
	conv, err := h.Service.StartConversation(c.Request.Context(), sess, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *ChatHandler) GetMessagesHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	msgs, err := h.Service.Messages(c.Request.Context(), sess, c.Param("chatId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) SendMessageHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var in negotiation.MessageInput
	if !bindJSON(c, &in) {
		return
	}
	msg, err := h.Service.SendMessage(c.Request.Context(), sess, c.Param("chatId"), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// SubscribeDeviceHandler subscribes an FCM token to the conversation topic.
func (h *ChatHandler) SubscribeDeviceHandler(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if h.Devices == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Push notifications are not configured", "")
		return
	}
	var body struct {
		Token string `json:"fcmToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Missing or invalid fcmToken", err.Error())
		return
	}

	convID := c.Param("chatId")
	if _, err := h.Service.Conversation(c.Request.Context(), sess, convID); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Devices.SubscribeDevice(c.Request.Context(), convID, body.Token); err != nil {
		utils.GetLogger().Error("Failed to subscribe device", zap.String("conversationID", convID), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Failed to subscribe device", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device subscribed"})
}
