// Command reconcile rebuilds activeClientCount on plan templates from the
// active assignments, for one trainer or for all of them.
package main

import (
	"context"
	"flag"
	"fitcoach/coaching-api/internal/config"
	"fitcoach/coaching-api/internal/repository/mongo"
	"fitcoach/coaching-api/internal/service"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	trainer := flag.String("trainer", "", "reconcile only this trainer (hex ObjectID)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	reconciler := service.NewReconcileService(
		mongo.NewMongoPlanTemplateRepository(appDB),
		mongo.NewMongoPlanAssignmentRepository(appDB),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *trainer != "" {
		trainerID, err := primitive.ObjectIDFromHex(*trainer)
		if err != nil {
			log.Fatalf("FATAL: Invalid -trainer %q: %v", *trainer, err)
		}
		counts, err := reconciler.ReconcileTrainer(ctx, trainerID)
		if err != nil {
			log.Fatalf("FATAL: Reconcile trainer %s: %v", *trainer, err)
		}
		for id, n := range counts {
			log.Printf("INFO: template %s activeClientCount=%d", id.Hex(), n)
		}
		return
	}

	total, err := reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("FATAL: Reconcile all: %v", err)
	}
	log.Printf("INFO: Reconciled %d templates", total)
}
