package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReconcileService rebuilds the activeClientCount of templates from the
// assignments themselves.
type ReconcileService interface {
	ReconcileTrainer(ctx context.Context, trainerID primitive.ObjectID) (map[primitive.ObjectID]int, error)
	ReconcileAll(ctx context.Context) (int, error)
}

type reconcileService struct {
	templateRepo   repository.PlanTemplateRepository
	assignmentRepo repository.PlanAssignmentRepository
}

// NewReconcileService creates a new instance of reconcileService.
func NewReconcileService(templateRepo repository.PlanTemplateRepository, assignmentRepo repository.PlanAssignmentRepository) ReconcileService {
	return &reconcileService{
		templateRepo:   templateRepo,
		assignmentRepo: assignmentRepo,
	}
}

// ReconcileTrainer sets every template of the trainer to the number of its
// active assignments. Templates with none are set to zero. Running it twice
// yields the same counts.
func (s *reconcileService) ReconcileTrainer(ctx context.Context, trainerID primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	templateIDs, err := s.templateRepo.ListIDsByTrainer(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	tally, err := s.assignmentRepo.CountActiveGroupedByTemplate(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("count active assignments: %w", err)
	}

	counts := make(map[primitive.ObjectID]int, len(templateIDs))
	for _, id := range templateIDs {
		n := tally[id]
		if err := s.templateRepo.SetActiveClientCount(ctx, id, n); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue // deleted meanwhile
			}
			return nil, fmt.Errorf("store count for template %s: %w", id.Hex(), err)
		}
		counts[id] = n
	}
	log.Printf("INFO: Reconciled %d templates for trainer %s", len(counts), trainerID.Hex())
	return counts, nil
}

// ReconcileAll reconciles every trainer that owns templates and returns the
// number of templates processed.
func (s *reconcileService) ReconcileAll(ctx context.Context) (int, error) {
	trainerIDs, err := s.templateRepo.ListTrainerIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list trainers: %w", err)
	}
	total := 0
	for _, trainerID := range trainerIDs {
		counts, err := s.ReconcileTrainer(ctx, trainerID)
		if err != nil {
			return total, err
		}
		total += len(counts)
	}
	return total, nil
}
