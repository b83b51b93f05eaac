package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripnest/config"
	"tripnest/database"
	"tripnest/database/repository"
	"tripnest/handlers"
	"tripnest/routes"
	"tripnest/services/availability"
	"tripnest/services/booking"
	"tripnest/services/payment"
	"tripnest/services/pricing"
	"tripnest/services/telemetry"
	"tripnest/services/validation"
	"tripnest/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitBookingCache()
	stripe.Key = config.AppConfig.StripeKey

	cfg := config.AppConfig

	// Shared collaborators. Each flow gets its own resolver and payment
	// coordinator; caches and providers are shared.
	sink := telemetry.NewSink(logger)
	guestValidator := validation.New()
	availProvider := availability.NewHTTPProvider(cfg.AvailabilityAPIURL, cfg.AvailabilityTimeout)
	availCache := availability.NewRedisCache(utils.GetCacheClient())
	pricingSvc := pricing.NewService(
		pricing.NewHTTPProvider(cfg.PricingAPIURL, cfg.PricingTimeout),
		pricing.NewRedisCache(utils.GetCacheClient()),
		cfg.PricingCacheTTL,
		logger,
	)
	processor := payment.NewStripeProcessor()
	submitter := booking.NewHTTPSubmitter(cfg.BookingAPIURL, cfg.SubmissionTimeout)
	bookingRepo := repository.NewMongoBookingRepo()
	flowStore := booking.NewFlowStore()

	// In production the transport is trusted only behind a declared
	// TLS-terminating proxy; the payment routes are additionally gated
	// per request by middleware.RequireSecureTransport.
	secureTransport := !config.IsProduction() || cfg.TLSTerminated

	newFlow := func(hotelID, userID string) *booking.Flow {
		resolver := availability.NewResolver(availProvider, availCache, availability.Config{
			DebounceWindow: cfg.DebounceInterval,
			CacheTTL:       cfg.AvailabilityCacheTTL,
			CallTimeout:    cfg.AvailabilityTimeout,
		}, logger)
		coordinator := payment.NewCoordinator(processor, sink, logger, secureTransport)
		return booking.NewFlow(booking.Deps{
			Resolver:  resolver,
			Pricing:   pricingSvc,
			Payments:  coordinator,
			Submitter: submitter,
			Validator: guestValidator,
			Sink:      sink,
			Logger:    logger,
			UserID:    userID,
		}, hotelID)
	}

	bookingHandler := &handlers.BookingHandler{
		Store:       flowStore,
		NewFlow:     newFlow,
		Repo:        bookingRepo,
		DetailCache: utils.GetBookingCacheClient(),
		DetailTTL:   cfg.BookingDetailCacheTTL,
		Sink:        sink,
	}
	telemetryHandler := &handlers.TelemetryHandler{Sink: sink}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(cors.Default())

	routes.Register(router, bookingHandler, telemetryHandler)

	port := cfg.AppPort
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
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("main: server forced to shutdown", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
