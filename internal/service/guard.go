package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller identifies the authenticated user making a request.
type Caller struct {
	UserID primitive.ObjectID
	Role   domain.Role
}

// Party names which side of a coaching relationship an operation requires.
type Party int

const (
	PartyTrainer Party = iota
	PartyClient
	PartyEither
)

// AccessGuard is the single entry point that resolves a coaching relationship
// and checks the caller may act on it. It fails closed.
type AccessGuard struct {
	coachingRepo repository.CoachingRepository
}

// NewAccessGuard creates a guard backed by the coaching repository.
func NewAccessGuard(coachingRepo repository.CoachingRepository) *AccessGuard {
	return &AccessGuard{coachingRepo: coachingRepo}
}

// Authorize loads the relationship and verifies it is accepted and that the
// caller is the required party.
func (g *AccessGuard) Authorize(ctx context.Context, caller Caller, requestID primitive.ObjectID, party Party) (*domain.CoachingRelationship, error) {
	if caller.UserID == primitive.NilObjectID {
		return nil, ErrUnauthorized
	}
	if requestID == primitive.NilObjectID {
		return nil, ErrRelationshipNotFound
	}

	rel, err := g.coachingRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("load coaching request: %w", err)
	}
	if err := checkParty(rel, caller, party); err != nil {
		return nil, err
	}
	return rel, nil
}

// AuthorizePair resolves the accepted relationship between a trainer and a
// client, for operations addressed by assignment rather than by request.
func (g *AccessGuard) AuthorizePair(ctx context.Context, caller Caller, trainerID, clientID primitive.ObjectID, party Party) (*domain.CoachingRelationship, error) {
	if caller.UserID == primitive.NilObjectID {
		return nil, ErrUnauthorized
	}
	rel, err := g.coachingRepo.GetOpenByPair(ctx, trainerID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("load coaching request: %w", err)
	}
	if err := checkParty(rel, caller, party); err != nil {
		return nil, err
	}
	return rel, nil
}

func checkParty(rel *domain.CoachingRelationship, caller Caller, party Party) error {
	if !rel.HasParty(caller.UserID) {
		return ErrNotParty
	}
	if !rel.IsAccepted() {
		return ErrRelationshipNotAccepted
	}

	isTrainer := caller.UserID == rel.TrainerID && caller.Role == domain.RoleTrainer
	isClient := caller.UserID == rel.ClientID && caller.Role == domain.RoleClient
	switch party {
	case PartyTrainer:
		if isTrainer {
			return nil
		}
	case PartyClient:
		if isClient {
			return nil
		}
	case PartyEither:
		if isTrainer || isClient {
			return nil
		}
	}
	return ErrNotParty
}
