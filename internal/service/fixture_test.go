package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fitcoach/coaching-api/internal/repository/memory"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBoom = errors.New("boom")

// fakeStorage records object operations instead of talking to S3.
type fakeStorage struct {
	mu         sync.Mutex
	deleted    []string
	failUpload bool
}

func (f *fakeStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey, contentType string, expires time.Duration) (string, error) {
	if f.failUpload {
		return "", errBoom
	}
	return "https://storage.test/put/" + objectKey, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.test/get/" + objectKey, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectKey)
	return nil
}

// fixture is one accepted coaching relationship on an in-memory store.
type fixture struct {
	ctx       context.Context
	store     *memory.Store
	storage   *fakeStorage
	guard     *AccessGuard
	assign    AssignmentService
	tracking  TrackingService
	plans     PlanService
	reconcile ReconcileService
	coaching  CoachingService
	documents DocumentService

	trainer   Caller
	client    Caller
	requestID primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:     context.Background(),
		store:   store,
		storage: &fakeStorage{},
	}
	f.trainer = f.addUser(t, "coach@example.com", domain.RoleTrainer)
	f.client = f.addUser(t, "client@example.com", domain.RoleClient)
	f.requestID = f.addRelationship(t, f.trainer, f.client, domain.RelationshipAccepted)
	f.wire(store.Templates())
	return f
}

// wire builds the services; templates may be swapped to inject failures.
func (f *fixture) wire(templates repository.PlanTemplateRepository) {
	s := f.store
	f.guard = NewAccessGuard(s.Coaching())
	f.assign = NewAssignmentService(s, f.guard, s.Users(), templates, s.Assignments(), s.Tracking(), s.Documents())
	f.tracking = NewTrackingService(s, f.guard, s.Assignments(), s.Tracking())
	f.plans = NewPlanService(templates)
	f.reconcile = NewReconcileService(templates, s.Assignments())
	f.coaching = NewCoachingService(s.Users(), s.Coaching())
	f.documents = NewDocumentService(f.guard, s.Documents(), s.Assignments(), f.storage, time.Minute)
}

func (f *fixture) addUser(t *testing.T, email string, role domain.Role) Caller {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	id, err := f.store.Users().Create(f.ctx, u)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return Caller{UserID: id, Role: role}
}

func (f *fixture) addRelationship(t *testing.T, trainer, client Caller, status domain.RelationshipStatus) primitive.ObjectID {
	t.Helper()
	rel := &domain.CoachingRelationship{TrainerID: trainer.UserID, ClientID: client.UserID, Status: status}
	id, err := f.store.Coaching().Create(f.ctx, rel)
	if err != nil {
		t.Fatalf("create relationship: %v", err)
	}
	return id
}

func (f *fixture) addTemplate(t *testing.T, trainer Caller, kind domain.PlanKind, title string) *domain.PlanTemplate {
	t.Helper()
	body := nutritionBody()
	if kind == domain.PlanKindTraining {
		body = trainingBody()
	}
	tpl, err := NewPlanService(f.store.Templates()).CreatePlan(f.ctx, trainer.UserID, PlanInput{
		Title: title,
		Kind:  kind,
		Body:  body,
	})
	if err != nil {
		t.Fatalf("create template %s: %v", title, err)
	}
	return tpl
}

func (f *fixture) templateCount(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	tpl, err := f.store.Templates().GetByID(f.ctx, id)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	return tpl.ActiveClientCount
}

func (f *fixture) activeCount(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	n, err := f.store.Assignments().CountActiveByTemplate(f.ctx, id)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	return n
}

func nutritionBody() bson.M {
	return bson.M{"meals": bson.A{
		bson.M{"name": "Breakfast", "options": bson.A{
			bson.M{"name": "Oats", "calories": 450.0, "protein": 20.0, "carbs": 60.0, "fat": 10.0},
			bson.M{"name": "Eggs", "calories": 300.0, "protein": 25.0, "carbs": 2.0, "fat": 20.0},
		}},
		bson.M{"name": "Lunch", "options": bson.A{
			bson.M{"name": "Chicken salad", "calories": 550.0, "protein": 45.0, "carbs": 20.0, "fat": 25.0},
		}},
		bson.M{"name": "Dinner", "options": bson.A{
			bson.M{"name": "Salmon", "calories": 600.0, "protein": 40.0, "carbs": 30.0, "fat": 30.0},
		}},
	}}
}

func trainingBody() bson.M {
	return bson.M{"workouts": bson.A{
		bson.M{"name": "Day 1: Upper", "exercises": bson.A{
			bson.M{"name": "Bench press", "sets": 4, "reps": "8-10"},
			bson.M{"name": "Row", "sets": 4, "reps": "10"},
		}},
		bson.M{"name": "Day 2: Lower", "exercises": bson.A{
			bson.M{"name": "Squat", "sets": 5, "reps": "5"},
		}},
	}}
}
