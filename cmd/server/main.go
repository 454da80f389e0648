package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teuggahunter-service/internal/infrastructure/config"
	"teuggahunter-service/internal/infrastructure/oauth"
	"teuggahunter-service/internal/infrastructure/persistence"
	gmailService "teuggahunter-service/internal/interface/gmail"
	"teuggahunter-service/internal/interface/repository"
	"teuggahunter-service/internal/interface/webhook"
	"teuggahunter-service/internal/usecase"
	"teuggahunter-service/pkg/logger"
	"teuggahunter-service/pkg/metrics"
	"teuggahunter-service/pkg/parser"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	domainRepo "teuggahunter-service/internal/domain/repository"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Teuggahunter Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	if cfg.WebhookSecret == "" {
		log.Fatal("WEBHOOK_SECRET must be set")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Airline reference data is optional enrichment
	var airlineRepository domainRepo.AirlineRepository
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		airlineRepository = repository.NewGormAirlineRepository(gormDB)
	} else {
		log.Warn("POSTGRES_DSN not set, airline enrichment disabled")
	}

	// Set up repositories
	offerRepo := repository.NewMongoOfferRepository(db)
	notifier := repository.NewHookNotifier(log, cfg.NotifierEndpoint, cfg.NotifierAPIKey)
	offsetRepo := repository.NewFileOffsetRepository(cfg.OffsetFile)

	appMetrics := metrics.NewMetrics("teuggahunter")
	engine := parser.NewEngine(log)

	// Pull-mode mailbox collaborator, only when enabled
	var mailbox domainRepo.MailboxRepository
	if cfg.PullModeEnabled {
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			log,
		)
		tokenSource := gmailOAuth.GetTokenSource(ctx)

		gmailSvc, err := gmailService.NewGmailService(ctx, tokenSource, log)
		if err != nil {
			log.Fatal("Failed to create Gmail service", "error", err)
		}
		mailbox = gmailSvc
	}

	offerService := usecase.NewOfferService(
		engine,
		offerRepo,
		airlineRepository,
		notifier,
		mailbox,
		offsetRepo,
		appMetrics,
		log,
	)

	// Start pull-mode polling in a goroutine when enabled
	if cfg.PullModeEnabled {
		go offerService.StartPolling(ctx, cfg.GmailPollInterval)
	}

	// Set up HTTP server
	handler := webhook.NewHandler(offerService, cfg.WebhookSecret, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/hooks/email", handler.ServeEmailEvent)
	mux.HandleFunc("/emails", handler.ServeSweep)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Teuggahunter Service stopped")
}
