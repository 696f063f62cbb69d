package repository

import (
	"context"
	"fitcoach/coaching-api/internal/domain"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Page selects a slice of a sorted listing. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps Skip from overflowing at the largest limit.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Skip returns the number of records before the page.
func (p Page) Skip() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Transactor runs fn as one atomic unit against the store. Repository calls
// made with the ctx passed to fn take part in the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// CoachingRepository stores trainer/client coaching relationships.
type CoachingRepository interface {
	Create(ctx context.Context, rel *domain.CoachingRelationship) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CoachingRelationship, error)
	// GetOpenByPair returns the pending or accepted relationship for the pair.
	GetOpenByPair(ctx context.Context, trainerID, clientID primitive.ObjectID) (*domain.CoachingRelationship, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, role domain.Role) ([]domain.CoachingRelationship, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.RelationshipStatus) error
}

// PlanTemplateRepository defines the interface for the trainer's plan catalog.
type PlanTemplateRepository interface {
	Create(ctx context.Context, tpl *domain.PlanTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error)
	// ListByTrainer lists a trainer's templates, newest first. An empty kind matches all kinds.
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, kind domain.PlanKind, page Page) ([]domain.PlanTemplate, error)
	ListIDsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]primitive.ObjectID, error)
	ListTrainerIDs(ctx context.Context) ([]primitive.ObjectID, error)
	Update(ctx context.Context, tpl *domain.PlanTemplate) error
	SetActiveClientCount(ctx context.Context, id primitive.ObjectID, count int) error
	Delete(ctx context.Context, id, trainerID primitive.ObjectID) error
}

// PlanAssignmentRepository defines the interface for per-client plan assignments.
type PlanAssignmentRepository interface {
	Create(ctx context.Context, a *domain.PlanAssignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanAssignment, error)
	// FindActive returns the active assignment for (client, kind) or ErrNotFound.
	FindActive(ctx context.Context, clientID primitive.ObjectID, kind domain.PlanKind) (*domain.PlanAssignment, error)
	ListByClient(ctx context.Context, clientID, trainerID primitive.ObjectID, kind domain.PlanKind, page Page) ([]domain.PlanAssignment, error)
	// Close moves an assignment to a terminal status; it fails with ErrNotFound
	// unless the assignment is still active.
	Close(ctx context.Context, id primitive.ObjectID, status domain.AssignmentStatus, completedAt time.Time) error
	CountActiveByTemplate(ctx context.Context, templateID primitive.ObjectID) (int, error)
	// CountActiveGroupedByTemplate tallies active assignments per source template for one trainer.
	CountActiveGroupedByTemplate(ctx context.Context, trainerID primitive.ObjectID) (map[primitive.ObjectID]int, error)
	// ReferencesDocument reports whether any assignment lists the object key.
	ReferencesDocument(ctx context.Context, objectKey string) (bool, error)
}

// TrackingRepository stores per-day tracking state.
type TrackingRepository interface {
	Get(ctx context.Context, assignmentID primitive.ObjectID, date string) (*domain.TrackingDay, error)
	// Upsert writes the whole day keyed on (assignmentId, date).
	Upsert(ctx context.Context, day *domain.TrackingDay) error
	ListByAssignment(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.TrackingDay, error)
}

// DocumentRepository stores metadata of files attached to coaching relationships.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) (primitive.ObjectID, error)
	GetByObjectKey(ctx context.Context, objectKey string) (*domain.Document, error)
	ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]domain.Document, error)
	Delete(ctx context.Context, objectKey string) error
}
