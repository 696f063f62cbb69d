package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanInput is the editable content of a catalog template.
type PlanInput struct {
	Title       string
	Description string
	Kind        domain.PlanKind
	Body        bson.M
}

// PlanService manages a trainer's catalog of plan templates.
type PlanService interface {
	CreatePlan(ctx context.Context, trainerID primitive.ObjectID, input PlanInput) (*domain.PlanTemplate, error)
	GetPlan(ctx context.Context, trainerID, planID primitive.ObjectID) (*domain.PlanTemplate, error)
	ListPlans(ctx context.Context, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanTemplate, error)
	UpdatePlan(ctx context.Context, trainerID, planID primitive.ObjectID, input PlanInput) (*domain.PlanTemplate, error)
	DeletePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error
}

// planService implements the PlanService interface.
type planService struct {
	templateRepo repository.PlanTemplateRepository
}

// NewPlanService creates a new instance of planService.
func NewPlanService(templateRepo repository.PlanTemplateRepository) PlanService {
	return &planService{templateRepo: templateRepo}
}

// CreatePlan adds a template to the trainer's catalog.
func (s *planService) CreatePlan(ctx context.Context, trainerID primitive.ObjectID, input PlanInput) (*domain.PlanTemplate, error) {
	if trainerID == primitive.NilObjectID {
		return nil, ErrUnauthorized
	}
	if err := validatePlanInput(input); err != nil {
		return nil, err
	}

	tpl := &domain.PlanTemplate{
		TrainerID:   trainerID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Kind:        input.Kind,
		Body:        input.Body,
	}
	planID, err := s.templateRepo.Create(ctx, tpl)
	if err != nil {
		return nil, err
	}
	return s.templateRepo.GetByID(ctx, planID) // Fetch again to get all fields
}

// GetPlan retrieves one of the trainer's templates.
func (s *planService) GetPlan(ctx context.Context, trainerID, planID primitive.ObjectID) (*domain.PlanTemplate, error) {
	tpl, err := s.templateRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tpl.TrainerID != trainerID {
		return nil, ErrTemplateAccessDenied
	}
	return tpl, nil
}

// ListPlans retrieves a page of the trainer's templates, optionally of one kind.
func (s *planService) ListPlans(ctx context.Context, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanTemplate, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown plan kind %q", ErrValidation, kind)
	}
	return s.templateRepo.ListByTrainer(ctx, trainerID, kind, page)
}

// UpdatePlan edits a template. Clients already assigned the template keep
// their snapshot; the kind of a template is fixed.
func (s *planService) UpdatePlan(ctx context.Context, trainerID, planID primitive.ObjectID, input PlanInput) (*domain.PlanTemplate, error) {
	existing, err := s.GetPlan(ctx, trainerID, planID)
	if err != nil {
		return nil, err
	}
	if input.Kind == "" {
		input.Kind = existing.Kind
	}
	if input.Kind != existing.Kind {
		return nil, fmt.Errorf("%w: plan kind cannot be changed", ErrValidation)
	}
	if err := validatePlanInput(input); err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = input.Description
	existing.Body = input.Body
	if err := s.templateRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return existing, nil
}

// DeletePlan removes a template from the catalog. Assignments made from it
// keep their own copy of the plan.
func (s *planService) DeletePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error {
	if _, err := s.GetPlan(ctx, trainerID, planID); err != nil {
		return err
	}
	// The repository filters on trainerID as well, enforcing ownership at the DB level.
	if err := s.templateRepo.Delete(ctx, planID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

// validatePlanInput checks the required fields and that the body decodes
// into the shape its kind expects.
func validatePlanInput(input PlanInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown plan kind %q", ErrValidation, input.Kind)
	}
	if input.Body == nil {
		return nil
	}

	var err error
	switch input.Kind {
	case domain.PlanKindNutrition:
		err = domain.DecodeBody(input.Body, &domain.NutritionBody{})
	case domain.PlanKindTraining:
		err = domain.DecodeBody(input.Body, &domain.TrainingBody{})
	}
	if err != nil {
		return fmt.Errorf("%w: body does not match a %s plan: %v", ErrValidation, input.Kind, err)
	}
	return nil
}
