package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomTrackingInput carries the optional content of a freeform assignment.
type CustomTrackingInput struct {
	Documents   []string // Object keys previously issued by DocumentService
	Description string
}

// AssignResult is the outcome of putting a template into effect.
type AssignResult struct {
	Assigned   *domain.PlanTemplate   `json:"assigned"`           // Template with its refreshed counter
	Assignment *domain.PlanAssignment `json:"assignment"`         // The new active assignment
	Replaced   *domain.PlanAssignment `json:"replaced,omitempty"` // Previously active assignment, now completed
}

// AssignmentService moves plans into effect for clients and keeps the
// template counters exact.
type AssignmentService interface {
	AssignPlan(ctx context.Context, caller Caller, requestID, templateID primitive.ObjectID, kind domain.PlanKind) (*AssignResult, error)
	RemoveAssignment(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, assignmentID *primitive.ObjectID) (*domain.PlanAssignment, error)
	EnableCustomTracking(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, input CustomTrackingInput) (*domain.PlanAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, caller Caller, assignmentID primitive.ObjectID, status domain.AssignmentStatus) (*domain.PlanAssignment, error)
	ListAssignments(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanAssignment, error)
	GetAssignment(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID) (*domain.PlanAssignment, error)
}

type assignmentService struct {
	tx             repository.Transactor
	guard          *AccessGuard
	userRepo       repository.UserRepository
	templateRepo   repository.PlanTemplateRepository
	assignmentRepo repository.PlanAssignmentRepository
	trackingRepo   repository.TrackingRepository
	documentRepo   repository.DocumentRepository
	now            func() time.Time
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(
	tx repository.Transactor,
	guard *AccessGuard,
	userRepo repository.UserRepository,
	templateRepo repository.PlanTemplateRepository,
	assignmentRepo repository.PlanAssignmentRepository,
	trackingRepo repository.TrackingRepository,
	documentRepo repository.DocumentRepository,
) AssignmentService {
	return &assignmentService{
		tx:             tx,
		guard:          guard,
		userRepo:       userRepo,
		templateRepo:   templateRepo,
		assignmentRepo: assignmentRepo,
		trackingRepo:   trackingRepo,
		documentRepo:   documentRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// AssignPlan places a copy of a catalog template into effect for the client of
// the coaching request. Any active assignment of the same kind is completed
// first, inside the same transaction.
func (s *assignmentService) AssignPlan(ctx context.Context, caller Caller, requestID, templateID primitive.ObjectID, kind domain.PlanKind) (*AssignResult, error) {
	// 1. Validate input and authorize
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown plan kind %q", ErrValidation, kind)
	}
	if templateID == primitive.NilObjectID {
		return nil, fmt.Errorf("%w: planId is required", ErrValidation)
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyTrainer)
	if err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, rel.ClientID); err != nil {
		return nil, err
	}

	// 2. Verify template ownership and kind
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tpl.TrainerID != rel.TrainerID {
		return nil, ErrTemplateAccessDenied
	}
	if tpl.Kind != kind {
		return nil, ErrPlanKindMismatch
	}

	// 3. Snapshot outside the transaction; the copy is independent of the template
	snapshot, err := tpl.Snapshot()
	if err != nil {
		return nil, err
	}

	var result *AssignResult
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		replaced, err := s.completeActive(ctx, rel.ClientID, kind, now)
		if err != nil {
			return err
		}

		sourceID := tpl.ID
		a := &domain.PlanAssignment{
			CoachingRequestID: rel.ID,
			ClientID:          rel.ClientID,
			TrainerID:         rel.TrainerID,
			SourceTemplateID:  &sourceID,
			Kind:              kind,
			PlanData:          snapshot,
			Status:            domain.AssignmentActive,
			AssignedAt:        now,
		}
		id, err := s.assignmentRepo.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		a.ID = id

		count, err := s.recount(ctx, &sourceID)
		if err != nil {
			return err
		}
		if replaced != nil && !sameTemplate(replaced.SourceTemplateID, &sourceID) {
			if _, err := s.recount(ctx, replaced.SourceTemplateID); err != nil {
				return err
			}
		}

		assigned := *tpl
		assigned.ActiveClientCount = count
		result = &AssignResult{Assigned: &assigned, Assignment: a, Replaced: replaced}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Assigned template %s to client %s as %s (request %s)", tpl.ID.Hex(), rel.ClientID.Hex(), result.Assignment.ID.Hex(), rel.ID.Hex())
	return result, nil
}

// RemoveAssignment abandons the named assignment, or the client's active one
// of the given kind. Tracking history is left as it is.
func (s *assignmentService) RemoveAssignment(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, assignmentID *primitive.ObjectID) (*domain.PlanAssignment, error) {
	if assignmentID == nil && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown plan kind %q", ErrValidation, kind)
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyTrainer)
	if err != nil {
		return nil, err
	}

	var removed *domain.PlanAssignment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var target *domain.PlanAssignment
		if assignmentID != nil {
			a, err := s.assignmentRepo.GetByID(ctx, *assignmentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrAssignmentNotFound
				}
				return err
			}
			if !inRelationship(a, rel) {
				return ErrAssignmentNotFound
			}
			if kind.Valid() && a.Kind != kind {
				return ErrPlanKindMismatch
			}
			if !a.IsActive() {
				return ErrNoActiveAssignment
			}
			target = a
		} else {
			a, err := s.assignmentRepo.FindActive(ctx, rel.ClientID, kind)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrNoActiveAssignment
				}
				return err
			}
			if a.TrainerID != rel.TrainerID {
				return ErrAssignmentAccessDenied
			}
			target = a
		}

		if err := s.closeAssignment(ctx, target, domain.AssignmentAbandoned, s.now()); err != nil {
			return err
		}
		if _, err := s.recount(ctx, target.SourceTemplateID); err != nil {
			return err
		}
		removed = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// EnableCustomTracking replaces the client's active assignment of the given
// kind with a freeform one that has no catalog template behind it.
func (s *assignmentService) EnableCustomTracking(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, input CustomTrackingInput) (*domain.PlanAssignment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown plan kind %q", ErrValidation, kind)
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyTrainer)
	if err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, rel.ClientID); err != nil {
		return nil, err
	}

	// Only documents issued for this coaching request may be attached
	for _, key := range input.Documents {
		doc, err := s.documentRepo.GetByObjectKey(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
			}
			return nil, err
		}
		if doc.CoachingRequestID != rel.ID {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
		}
	}

	var created *domain.PlanAssignment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		replaced, err := s.completeActive(ctx, rel.ClientID, kind, now)
		if err != nil {
			return err
		}

		a := &domain.PlanAssignment{
			CoachingRequestID: rel.ID,
			ClientID:          rel.ClientID,
			TrainerID:         rel.TrainerID,
			Kind:              kind,
			PlanData:          domain.CustomSnapshot(kind, input.Description, input.Documents),
			Custom:            true,
			Documents:         append([]string(nil), input.Documents...),
			Status:            domain.AssignmentActive,
			AssignedAt:        now,
		}
		id, err := s.assignmentRepo.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("create custom assignment: %w", err)
		}
		a.ID = id

		if replaced != nil {
			if _, err := s.recount(ctx, replaced.SourceTemplateID); err != nil {
				return err
			}
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAssignmentStatus lets the owning trainer close an assignment directly.
func (s *assignmentService) UpdateAssignmentStatus(ctx context.Context, caller Caller, assignmentID primitive.ObjectID, status domain.AssignmentStatus) (*domain.PlanAssignment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown assignment status %q", ErrValidation, status)
	}

	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if a.TrainerID != caller.UserID {
		return nil, ErrAssignmentAccessDenied
	}
	if _, err := s.guard.AuthorizePair(ctx, caller, a.TrainerID, a.ClientID, PartyTrainer); err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, a.Status, status)
	}

	var updated *domain.PlanAssignment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.assignmentRepo.GetByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
		}
		if err := s.closeAssignment(ctx, current, status, s.now()); err != nil {
			return err
		}
		if _, err := s.recount(ctx, current.SourceTemplateID); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListAssignments returns the assignment history of a coaching relationship.
func (s *assignmentService) ListAssignments(ctx context.Context, caller Caller, requestID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanAssignment, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown plan kind %q", ErrValidation, kind)
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	return s.assignmentRepo.ListByClient(ctx, rel.ClientID, rel.TrainerID, kind, page)
}

// GetAssignment returns one assignment of a coaching relationship.
func (s *assignmentService) GetAssignment(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID) (*domain.PlanAssignment, error) {
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	return loadAssignmentInRelationship(ctx, s.assignmentRepo, rel, assignmentID)
}

// --- workflow steps ---

// completeActive completes the client's active assignment of kind, if any,
// and returns it.
func (s *assignmentService) completeActive(ctx context.Context, clientID primitive.ObjectID, kind domain.PlanKind, now time.Time) (*domain.PlanAssignment, error) {
	active, err := s.assignmentRepo.FindActive(ctx, clientID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active assignment: %w", err)
	}
	if err := s.closeAssignment(ctx, active, domain.AssignmentCompleted, now); err != nil {
		return nil, err
	}
	return active, nil
}

// closeAssignment moves a to a terminal status. Completing an assignment also
// completes any entries still being tracked on its days.
func (s *assignmentService) closeAssignment(ctx context.Context, a *domain.PlanAssignment, status domain.AssignmentStatus, now time.Time) error {
	if status == domain.AssignmentCompleted {
		days, err := s.trackingRepo.ListByAssignment(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("list tracking days: %w", err)
		}
		for i := range days {
			if days[i].CompleteTracking(now) == 0 {
				continue
			}
			if err := s.trackingRepo.Upsert(ctx, &days[i]); err != nil {
				return fmt.Errorf("complete tracking day %s: %w", days[i].Date, err)
			}
		}
	}

	if err := s.assignmentRepo.Close(ctx, a.ID, status, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveAssignment
		}
		return fmt.Errorf("close assignment: %w", err)
	}
	a.Status = status
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}

// recount recomputes a template's active client counter from the assignments.
// Assignments without a template, or whose template was deleted, are skipped.
func (s *assignmentService) recount(ctx context.Context, templateID *primitive.ObjectID) (int, error) {
	if templateID == nil {
		return 0, nil
	}
	n, err := s.assignmentRepo.CountActiveByTemplate(ctx, *templateID)
	if err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	if err := s.templateRepo.SetActiveClientCount(ctx, *templateID, n); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return n, nil
		}
		return 0, fmt.Errorf("store active client count: %w", err)
	}
	return n, nil
}

func (s *assignmentService) ensureClient(ctx context.Context, clientID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if !client.IsClient() {
		return ErrClientNotFound
	}
	return nil
}

func sameTemplate(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func inRelationship(a *domain.PlanAssignment, rel *domain.CoachingRelationship) bool {
	return a.ClientID == rel.ClientID && a.TrainerID == rel.TrainerID
}

// loadAssignmentInRelationship fetches an assignment and hides it unless it
// belongs to the relationship.
func loadAssignmentInRelationship(ctx context.Context, repo repository.PlanAssignmentRepository, rel *domain.CoachingRelationship, assignmentID primitive.ObjectID) (*domain.PlanAssignment, error) {
	a, err := repo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if !inRelationship(a, rel) {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}
