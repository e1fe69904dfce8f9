// File: rentathing/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"rentathing/config"
	"rentathing/cron"
	"rentathing/database"
	recordsRepo "rentathing/database/repository/records"
	"rentathing/handlers"
	"rentathing/middleware"
	"rentathing/routes"
	"rentathing/services/availability"
	"rentathing/services/booking"
	"rentathing/services/chat"
	"rentathing/services/listing"
	"rentathing/services/negotiation"
	"rentathing/services/notification"
	"rentathing/services/payment"
	"rentathing/services/review"
	"rentathing/services/tasks"
	"rentathing/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Message feed.
	var store chat.Store
	if config.AppConfig.FeedBackend == "memory" {
		logger.Warn("main: using in-memory message feed; conversations are lost on restart")
		store = chat.NewMemoryStore()
	} else {
		utils.FirebaseInit()
		store = chat.NewFirestoreStore(utils.FirestoreClient, logger)
	}

	// Backend API clients.
	baseURL, timeout := config.AppConfig.BackendAPI, config.HTTPTimeout()
	bookingClient := booking.NewHTTPClient(baseURL, timeout, logger)
	listingClient := listing.NewClient(baseURL, timeout, listing.RedisCache{Client: utils.GetCacheClient()}, config.ListingCacheTTL(), logger)
	paymentAPI := payment.NewAPIClient(baseURL, timeout, logger)
	var payments negotiation.Payments = paymentAPI
	if config.AppConfig.PaymentProvider == "stripe" {
		payments = payment.NewStripeGateway(paymentAPI, config.AppConfig.PaymentCurrency, logger)
	}
	reviewClient := review.NewClient(baseURL, timeout, logger)

	// repositories.
	ledger, err := recordsRepo.NewMongoRecordRepo()
	if err != nil {
		logger.Fatal("main: failed to initialize negotiation records", zap.Error(err))
	}

	// Redelivery queue and worker.
	queueClient := asynq.NewClient(cron.QueueRedisOpt())
	worker := cron.InitRedeliveryWorker(store, logger)

	calendars := availability.NewService(bookingClient, logger)
	deps := negotiation.Deps{
		Bookings:  bookingClient,
		Chats:     store,
		Listings:  listingClient,
		Calendars: calendars,
		Payments:  payments,
		Reviews:   reviewClient,
		Ledger:    ledger,
		Redeliver: tasks.NewQueue(queueClient),
	}

	// Push notifications ride on the Firebase app, so they are only wired with it.
	var devices handlers.DeviceSubscriber
	if utils.FCMClient != nil {
		push, err := notification.NewPushService(utils.FCMClient, logger)
		if err != nil {
			logger.Fatal("main: failed to initialize push notifications", zap.Error(err))
		}
		deps.Notifier = push
		devices = push
	}
	negotiationService := negotiation.NewService(deps, logger)

	chatHandler := handlers.NewChatHandler(negotiationService, devices)
	negotiationHandler := handlers.NewNegotiationHandler(negotiationService)
	availabilityHandler := handlers.NewAvailabilityHandler(listingClient, calendars)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Conversation endpoints.
		ListConversationsHandler: chatHandler.ListConversationsHandler,
		StartConversationHandler: chatHandler.StartConversationHandler,
		GetMessagesHandler:       chatHandler.GetMessagesHandler,
		SendMessageHandler:       chatHandler.SendMessageHandler,
		SubscribeDeviceHandler:   chatHandler.SubscribeDeviceHandler,

		// Negotiation endpoints.
		GetNegotiationHandler:    negotiationHandler.GetNegotiationHandler,
		StreamNegotiationHandler: negotiationHandler.StreamNegotiationHandler,
		GetActivityHandler:       negotiationHandler.GetActivityHandler,
		MakeOfferHandler:         negotiationHandler.MakeOfferHandler,
		GetOfferHandler:          negotiationHandler.GetOfferHandler,
		EditOfferHandler:         negotiationHandler.EditOfferHandler,
		CancelOfferHandler:       negotiationHandler.CancelOfferHandler,
		AcceptOfferHandler:       negotiationHandler.AcceptOfferHandler,
		PayHandler:               negotiationHandler.PayHandler,
		CompleteHandler:          negotiationHandler.CompleteHandler,
		ReviewHandler:            negotiationHandler.ReviewHandler,

		// Listing endpoints.
		GetAvailabilityHandler: availabilityHandler.GetAvailabilityHandler,

		HealthHandler: handlers.HealthHandler,
	}

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	utils.StartHealthMonitor(healthCtx, []*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	worker.Shutdown()
	if err := queueClient.Close(); err != nil {
		logger.Warn("main: failed to close task queue client", zap.Error(err))
	}
	if utils.FirestoreClient != nil {
		if err := utils.FirestoreClient.Close(); err != nil {
			logger.Warn("main: failed to close Firestore client", zap.Error(err))
		}
	}
	if err := database.Disconnect(ctx); err != nil {
		logger.Warn("main: failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
