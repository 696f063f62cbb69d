package main

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/api"
	"fitcoach/coaching-api/internal/config"
	"fitcoach/coaching-api/internal/repository/mongo"
	"fitcoach/coaching-api/internal/service"
	"fitcoach/coaching-api/internal/storage"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	driver "go.mongodb.org/mongo-driver/mongo"
)

// @title Coaching API
// @version 1.0
// @description Coaching requests, plan assignment and daily tracking for trainers and clients.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	log.Println("Server exiting.")
}

func run() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Printf("INFO: Connected to MongoDB database %q", cfg.Database.Name)
	if !cfg.Database.Transactions {
		log.Println("WARN: Transactions disabled; concurrent tracking updates are last-write-wins.")
	}

	// The partial unique indexes enforce one active assignment per kind, so
	// they must exist before the first request.
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), time.Minute)
	mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndex()

	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		return err
	}

	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, buildServices(cfg, dbClient, appDB, fileStorage))

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return serve(server)
}

func buildServices(cfg config.Config, client *driver.Client, db *driver.Database, fileStorage storage.FileStorage) api.Services {
	tx := mongo.NewMongoTransactor(client, cfg.Database.Transactions)
	userRepo := mongo.NewMongoUserRepository(db)
	coachingRepo := mongo.NewMongoCoachingRepository(db)
	templateRepo := mongo.NewMongoPlanTemplateRepository(db)
	assignmentRepo := mongo.NewMongoPlanAssignmentRepository(db)
	trackingRepo := mongo.NewMongoTrackingRepository(db)
	documentRepo := mongo.NewMongoDocumentRepository(db)

	guard := service.NewAccessGuard(coachingRepo)
	return api.Services{
		Auth:       service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration),
		Coaching:   service.NewCoachingService(userRepo, coachingRepo),
		Plans:      service.NewPlanService(templateRepo),
		Assignment: service.NewAssignmentService(tx, guard, userRepo, templateRepo, assignmentRepo, trackingRepo, documentRepo),
		Tracking:   service.NewTrackingService(tx, guard, assignmentRepo, trackingRepo),
		Documents:  service.NewDocumentService(guard, documentRepo, assignmentRepo, fileStorage, cfg.Tracking.DocumentURLExpiry),
		Reconcile:  service.NewReconcileService(templateRepo, assignmentRepo),
	}
}

// serve runs the server until SIGINT or SIGTERM, then drains in-flight
// requests for up to five seconds.
func serve(server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO: Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
