// File: rentathing/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Conversation endpoints
	ListConversationsHandler gin.HandlerFunc
	StartConversationHandler gin.HandlerFunc
	GetMessagesHandler       gin.HandlerFunc
	SendMessageHandler       gin.HandlerFunc
	SubscribeDeviceHandler   gin.HandlerFunc

	// Negotiation endpoints
	GetNegotiationHandler    gin.HandlerFunc
	StreamNegotiationHandler gin.HandlerFunc
	GetActivityHandler       gin.HandlerFunc
	MakeOfferHandler         gin.HandlerFunc
	GetOfferHandler          gin.HandlerFunc
	EditOfferHandler         gin.HandlerFunc
	CancelOfferHandler       gin.HandlerFunc
	AcceptOfferHandler       gin.HandlerFunc
	PayHandler               gin.HandlerFunc
	CompleteHandler          gin.HandlerFunc
	ReviewHandler            gin.HandlerFunc

	// Listing endpoints
	GetAvailabilityHandler gin.HandlerFunc

	// Health
	HealthHandler gin.HandlerFunc
}
