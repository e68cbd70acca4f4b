package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slothold/config"
	"slothold/cron"
	"slothold/database"
	bookingRepo "slothold/database/repository/booking"
	"slothold/handlers"
	"slothold/middleware"
	"slothold/routes"
	"slothold/services/availability"
	"slothold/services/conflict"
	"slothold/services/notification"
	"slothold/services/realtime"
	"slothold/services/reservation"
	"slothold/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitStore()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	storeClient := utils.GetStoreClient()

	// Collaborators.
	broadcaster := &realtime.RedisBroadcaster{Client: storeClient}
	dispatcher := notification.NewAsynqDispatcher(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer dispatcher.Close()

	// The reservation engine and conflict resolver are stateless; one shared
	// instance serves all request handlers.
	engine := &reservation.DefaultReservationEngine{
		Client:       storeClient,
		Broadcaster:  broadcaster,
		HoldTTL:      time.Duration(config.AppConfig.HoldMinutes) * time.Minute,
		ExtensionTTL: time.Duration(config.AppConfig.ExtensionMinutes) * time.Minute,
	}
	lookup := &availability.EngineBackedLookup{Engine: engine}
	resolver := &conflict.DefaultConflictResolver{
		Client:       storeClient,
		Engine:       engine,
		Dispatcher:   dispatcher,
		Broadcaster:  broadcaster,
		Alternatives: lookup,
	}

	bookings := bookingRepo.NewMongoBookingRepo()

	reservationHandler := handlers.NewReservationHandler(engine, broadcaster, logger)
	conflictHandler := handlers.NewConflictHandler(resolver, logger)
	bookingHandler := handlers.NewBookingHandler(engine, bookings, logger)

	routes.RegisterRoutes(router, reservationHandler, conflictHandler, bookingHandler)

	// Background pieces: notification worker, advisory sweep, health checks.
	cron.InitNotifyWorker()
	engine.StartSweep(time.Minute)
	utils.StartHealthMonitor(storeClient, database.MongoClient)

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
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
