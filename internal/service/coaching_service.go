package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachingRequestInput names the trainer a client asks for, by ID or email.
type CoachingRequestInput struct {
	TrainerID    primitive.ObjectID
	TrainerEmail string
	Message      string
}

// CoachingService manages the lifecycle of coaching requests.
type CoachingService interface {
	RequestCoaching(ctx context.Context, clientID primitive.ObjectID, input CoachingRequestInput) (*domain.CoachingRelationship, error)
	RespondToRequest(ctx context.Context, trainerID, requestID primitive.ObjectID, accept bool) (*domain.CoachingRelationship, error)
	GetRequest(ctx context.Context, caller Caller, requestID primitive.ObjectID) (*domain.CoachingRelationship, error)
	ListMyRequests(ctx context.Context, caller Caller) ([]domain.CoachingRelationship, error)
}

type coachingService struct {
	userRepo     repository.UserRepository
	coachingRepo repository.CoachingRepository
}

// NewCoachingService creates a new instance of coachingService.
func NewCoachingService(userRepo repository.UserRepository, coachingRepo repository.CoachingRepository) CoachingService {
	return &coachingService{
		userRepo:     userRepo,
		coachingRepo: coachingRepo,
	}
}

// RequestCoaching opens a pending request from a client to a trainer.
func (s *coachingService) RequestCoaching(ctx context.Context, clientID primitive.ObjectID, input CoachingRequestInput) (*domain.CoachingRelationship, error) {
	// 1. Validate Input
	if clientID == primitive.NilObjectID {
		return nil, ErrUnauthorized
	}
	email := strings.ToLower(strings.TrimSpace(input.TrainerEmail))
	if input.TrainerID == primitive.NilObjectID && email == "" {
		return nil, fmt.Errorf("%w: trainerId or trainerEmail is required", ErrValidation)
	}

	// 2. Find the trainer
	var (
		trainer *domain.User
		err     error
	)
	if input.TrainerID != primitive.NilObjectID {
		trainer, err = s.userRepo.GetByID(ctx, input.TrainerID)
	} else {
		trainer, err = s.userRepo.GetByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, ErrTrainerNotFound
	}
	if trainer.ID == clientID {
		return nil, fmt.Errorf("%w: cannot request coaching from yourself", ErrValidation)
	}

	// 3. Only one open request per pair
	_, err = s.coachingRepo.GetOpenByPair(ctx, trainer.ID, clientID)
	if err == nil {
		return nil, ErrRelationshipExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	rel := &domain.CoachingRelationship{
		TrainerID: trainer.ID,
		ClientID:  clientID,
		Status:    domain.RelationshipPending,
		Message:   strings.TrimSpace(input.Message),
	}
	id, err := s.coachingRepo.Create(ctx, rel)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRelationshipExists
		}
		return nil, err
	}
	rel.ID = id

	log.Printf("INFO: Client %s requested coaching from trainer %s (request %s)", clientID.Hex(), trainer.ID.Hex(), id.Hex())
	return rel, nil
}

// RespondToRequest records the trainer's answer to a pending request.
func (s *coachingService) RespondToRequest(ctx context.Context, trainerID, requestID primitive.ObjectID, accept bool) (*domain.CoachingRelationship, error) {
	rel, err := s.coachingRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}
	if rel.TrainerID != trainerID {
		return nil, ErrNotParty
	}
	if rel.Status != domain.RelationshipPending {
		return nil, ErrRelationshipResolved
	}

	status := domain.RelationshipRejected
	if accept {
		status = domain.RelationshipAccepted
	}
	if err := s.coachingRepo.UpdateStatus(ctx, requestID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}
	return s.coachingRepo.GetByID(ctx, requestID)
}

// GetRequest returns a request to either of its parties, whatever its status.
func (s *coachingService) GetRequest(ctx context.Context, caller Caller, requestID primitive.ObjectID) (*domain.CoachingRelationship, error) {
	rel, err := s.coachingRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}
	if !rel.HasParty(caller.UserID) {
		return nil, ErrNotParty
	}
	return rel, nil
}

// ListMyRequests lists the requests the caller takes part in.
func (s *coachingService) ListMyRequests(ctx context.Context, caller Caller) ([]domain.CoachingRelationship, error) {
	if caller.UserID == primitive.NilObjectID {
		return nil, ErrUnauthorized
	}
	return s.coachingRepo.ListByUser(ctx, caller.UserID, caller.Role)
}
