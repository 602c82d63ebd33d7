// README: Entry point; loads config, wires stores and services, runs the HTTP API until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ridebud/internal/config"
	"ridebud/internal/events"
	httptransport "ridebud/internal/http"
	"ridebud/internal/infra"
	"ridebud/internal/maps"
	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/journey"
	"ridebud/internal/modules/matching"
	"ridebud/internal/modules/navigation"
	"ridebud/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infra.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		log.Fatalf("tracing init: %v", err)
	}

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("RIDEBUD_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.DB)
	defer redisClient.Close()

	mongo, err := infra.NewMongo(ctx, infra.MongoConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer mongo.Close(context.Background())

	navStore := navigation.NewStore(mongo.Database, cfg.Currency)
	if err := navStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("navigation indexes: %v", err)
	}

	pricingSvc := pricing.NewService(logger)

	rideIndex := matching.NewStore(redisClient)
	finder := matching.NewFinder(rideIndex, carpool.NewStore(dbPool))
	matchingSvc := matching.NewService(finder, pricingSvc, cfg.Matching, logger)

	deps := journey.Deps{
		Repo:     journey.NewStore(dbPool),
		Nav:      navStore,
		Index:    rideIndex,
		Matcher:  matchingSvc,
		Pricing:  pricingSvc,
		Log:      logger,
		Location: cfg.Matching.Location,
		Events:   events.Nop{},
	}
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			log.Fatal(err)
		}
		deps.Routes = routes
		deps.Geocoder = routes
	} else {
		logger.Warn("RIDEBUD_MAPS_API_KEY not set; offered rides use straight-line distances")
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		deps.Events = publisher
	}
	journeySvc := journey.NewService(deps)

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
		Journeys: journeySvc,
		Rides:    journeySvc,
		Browser:  matchingSvc,
		Pricing:  pricingSvc,
		Verifier: verifier,
		Log:      logger,
		Location: cfg.Matching.Location,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("http server stopped")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracing shutdown")
	}
}
