// Package memory provides an in-memory, transactional implementation of the
// repository interfaces. It backs the service and API tests and local runs
// without MongoDB.
package memory

import (
	"context"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type dayKey struct {
	assignmentID primitive.ObjectID
	date         string
}

type state struct {
	users       map[primitive.ObjectID]domain.User
	coaching    map[primitive.ObjectID]domain.CoachingRelationship
	templates   map[primitive.ObjectID]domain.PlanTemplate
	assignments map[primitive.ObjectID]domain.PlanAssignment
	days        map[dayKey]domain.TrackingDay
	documents   map[string]domain.Document
}

func newState() state {
	return state{
		users:       make(map[primitive.ObjectID]domain.User),
		coaching:    make(map[primitive.ObjectID]domain.CoachingRelationship),
		templates:   make(map[primitive.ObjectID]domain.PlanTemplate),
		assignments: make(map[primitive.ObjectID]domain.PlanAssignment),
		days:        make(map[dayKey]domain.TrackingDay),
		documents:   make(map[string]domain.Document),
	}
}

// clone copies the maps. Stored values are never mutated in place, so a
// shallow copy of each map is a full snapshot.
func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.coaching {
		c.coaching[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.days {
		c.days[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	return c
}

// Store holds all collections. Transactions are serialized and roll back to
// a snapshot when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// WithTransaction implements repository.Transactor.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Coaching() repository.CoachingRepository { return &coachingRepo{s} }
func (s *Store) Templates() repository.PlanTemplateRepository { return &templateRepo{s} }
func (s *Store) Assignments() repository.PlanAssignmentRepository { return &assignmentRepo{s} }
func (s *Store) Tracking() repository.TrackingRepository { return &trackingRepo{s} }
func (s *Store) Documents() repository.DocumentRepository { return &documentRepo{s} }

var _ repository.Transactor = (*Store)(nil)
