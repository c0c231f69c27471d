package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	reqhandler "github.com/medsupply/medsupply-backend/internal/requisition/handler"
	reqrepo "github.com/medsupply/medsupply-backend/internal/requisition/repository"
	reqservice "github.com/medsupply/medsupply-backend/internal/requisition/service"
	requisitionevents "github.com/medsupply/medsupply-backend/internal/requisition/events"
	stockevents "github.com/medsupply/medsupply-backend/internal/stock/events"
	stockhandler "github.com/medsupply/medsupply-backend/internal/stock/handler"
	stockrepo "github.com/medsupply/medsupply-backend/internal/stock/repository"
	stockservice "github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/config"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("supply-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("supply-service", cfg.Server.Environment)
	log.Info().Msg("starting Supply Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publishers
	stockPublisher, err := stockevents.NewStockEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stock event publisher")
	}
	requisitionPublisher, err := requisitionevents.NewRequisitionEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create requisition event publisher")
	}

	// Initialize repositories
	locationRepo := stockrepo.NewLocationRepository(db)
	drugRepo := stockrepo.NewDrugRepository(db)
	lotRepo := stockrepo.NewLotRepository(db)
	entryRepo := stockrepo.NewStockEntryRepository(db)
	movementRepo := stockrepo.NewMovementRepository(db)
	transferRepo := stockrepo.NewTransferRepository(db)
	requisitionRepo := reqrepo.NewRequisitionRepository(db)

	// Initialize services
	stockSvc := stockservice.NewStockService(db, lotRepo, entryRepo, movementRepo, transferRepo, stockPublisher, log)
	requisitionSvc := reqservice.NewRequisitionService(db, requisitionRepo, entryRepo, movementRepo, locationRepo, drugRepo, transferRepo, requisitionPublisher, log)

	// Initialize handlers
	stockHandler := stockhandler.NewStockHandler(stockSvc, log)
	transferHandler := stockhandler.NewTransferHandler(stockSvc, log)
	requisitionHandler := reqhandler.NewRequisitionHandler(requisitionSvc, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Name", "X-User-Email", "X-Location-ID", "X-Location-Kind", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.ActorMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "supply-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stock", func(r chi.Router) {
			r.With(httputil.RequireCentral).Post("/receipts", stockHandler.Receive)

			r.Route("/locations/{id}", func(r chi.Router) {
				r.Get("/", stockHandler.Query)
				r.Get("/expired", stockHandler.QueryExpired)
				r.Get("/disposals", stockHandler.Disposals)
			})

			r.With(httputil.RequireCentral).Post("/entries/{id}/dispose", stockHandler.Dispose)

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", transferHandler.Create)
				r.Get("/recent", requisitionHandler.RecentLogistics)
				r.Get("/{id}", transferHandler.Get)
			})
		})

		r.Route("/requisitions", func(r chi.Router) {
			r.Post("/", requisitionHandler.Create)
			r.Get("/", requisitionHandler.List)
			r.With(httputil.RequireCentral).Get("/report", requisitionHandler.Report)
			r.Get("/{id}", requisitionHandler.Get)
			r.With(httputil.RequireCentral).Post("/{id}/approve", requisitionHandler.Approve)
			r.With(httputil.RequireCentral).Post("/{id}/dispatch", requisitionHandler.Dispatch)
			r.Post("/{id}/receive", requisitionHandler.Receive)
			r.With(httputil.RequireCentral).Post("/{id}/refuse", requisitionHandler.Refuse)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
