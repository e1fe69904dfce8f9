package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rentathing/handlers"
	"rentathing/middleware"
)

// RegisterChatRoutes registers conversation and negotiation endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chats")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.ListConversationsHandler)
		api.POST("", hb.StartConversationHandler)
		api.GET("/:chatId/messages", hb.GetMessagesHandler)
		api.POST("/:chatId/messages", hb.SendMessageHandler)
		api.POST("/:chatId/devices", hb.SubscribeDeviceHandler)

		api.GET("/:chatId/negotiation", hb.GetNegotiationHandler)
		api.GET("/:chatId/negotiation/stream", hb.StreamNegotiationHandler)
		api.GET("/:chatId/activity", hb.GetActivityHandler)

		offers := api.Group("/:chatId/offers")
		offers.POST("", hb.MakeOfferHandler)
		offers.GET("/:bookingId", hb.GetOfferHandler)
		offers.PUT("/:bookingId", hb.EditOfferHandler)
		offers.POST("/:bookingId/cancel", hb.CancelOfferHandler)
		offers.POST("/:bookingId/accept", hb.AcceptOfferHandler)
		offers.POST("/:bookingId/pay", hb.PayHandler)
		offers.POST("/:bookingId/complete", hb.CompleteHandler)
		offers.POST("/:bookingId/review", hb.ReviewHandler)
	}
}

// RegisterListingRoutes registers listing lookups used by the offer dialog.
func RegisterListingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/listings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/:listingId/availability", hb.GetAvailabilityHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterListingRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
