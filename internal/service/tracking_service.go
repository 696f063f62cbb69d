package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryUpdate is one tracking action from a client.
type EntryUpdate struct {
	Date      string             // Client-local YYYY-MM-DD
	EntryKey  string             // "<outer>-<inner>"
	Status    domain.EntryStatus // tracking or completed
	Exclusive bool               // Complete every other entry of the day when tracking starts
}

// NutritionTotals sums the macros of the completed meal options of a day.
type NutritionTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Progress is a day of tracking measured against an assignment's plan.
type Progress struct {
	AssignmentID     primitive.ObjectID           `json:"assignmentId"`
	Kind             domain.PlanKind              `json:"kind"`
	Custom           bool                         `json:"custom"`
	Date             string                       `json:"date"`
	Totals           *NutritionTotals             `json:"totals,omitempty"`
	CompletedEntries int                          `json:"completedEntries"`
	TotalEntries     int                          `json:"totalEntries"`
	CompletionRate   float64                      `json:"completionRate"`
	Entries          map[string]domain.EntryState `json:"entries"`
}

// TrackingService records and reports per-day progress on assignments.
type TrackingService interface {
	SetEntryStatus(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID, kind domain.PlanKind, update EntryUpdate) (*domain.TrackingDay, error)
	GetDay(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID, date string) (*domain.TrackingDay, error)
	ClientProgress(ctx context.Context, caller Caller, requestID primitive.ObjectID, date string, assignmentID *primitive.ObjectID) (*Progress, error)
}

type trackingService struct {
	tx             repository.Transactor
	guard          *AccessGuard
	assignmentRepo repository.PlanAssignmentRepository
	trackingRepo   repository.TrackingRepository
	now            func() time.Time
}

// NewTrackingService creates a new instance of trackingService.
func NewTrackingService(
	tx repository.Transactor,
	guard *AccessGuard,
	assignmentRepo repository.PlanAssignmentRepository,
	trackingRepo repository.TrackingRepository,
) TrackingService {
	return &trackingService{
		tx:             tx,
		guard:          guard,
		assignmentRepo: assignmentRepo,
		trackingRepo:   trackingRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetEntryStatus moves one entry of an assignment's day to tracking or
// completed. The read-modify-write of the day runs in a transaction.
func (s *trackingService) SetEntryStatus(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID, kind domain.PlanKind, update EntryUpdate) (*domain.TrackingDay, error) {
	// 1. Validate input
	if err := domain.ValidateDate(update.Date); err != nil {
		return nil, err
	}
	if update.Status != domain.EntryTracking && update.Status != domain.EntryCompleted {
		return nil, fmt.Errorf("%w: status must be tracking or completed", ErrValidation)
	}
	if _, _, err := domain.ParseEntryKey(update.EntryKey); err != nil {
		return nil, err
	}

	// 2. Authorize and resolve the assignment
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	a, err := loadAssignmentInRelationship(ctx, s.assignmentRepo, rel, assignmentID)
	if err != nil {
		return nil, err
	}
	if kind != "" && a.Kind != kind {
		return nil, ErrPlanKindMismatch
	}
	// Closed assignments accept late completions but nothing new in progress
	if update.Status == domain.EntryTracking && a.Status != domain.AssignmentActive {
		return nil, ErrNoActiveAssignment
	}

	// 3. Read, mutate and store the day atomically
	var result *domain.TrackingDay
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		day, err := s.trackingRepo.Get(ctx, a.ID, update.Date)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("load tracking day: %w", err)
			}
			day = &domain.TrackingDay{
				AssignmentID: a.ID,
				ClientID:     a.ClientID,
				Date:         update.Date,
				Entries:      map[string]domain.EntryState{},
			}
		}
		day.SetEntry(update.EntryKey, update.Status, update.Exclusive, s.now())
		if err := s.trackingRepo.Upsert(ctx, day); err != nil {
			return fmt.Errorf("store tracking day: %w", err)
		}
		result = day
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetDay returns the tracking state of one day. A day with no activity is
// returned empty rather than as not found.
func (s *trackingService) GetDay(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID, date string) (*domain.TrackingDay, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	a, err := loadAssignmentInRelationship(ctx, s.assignmentRepo, rel, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.loadDay(ctx, a, date)
}

// ClientProgress measures a day against the named assignment, or the client's
// active nutrition assignment when none is named.
func (s *trackingService) ClientProgress(ctx context.Context, caller Caller, requestID primitive.ObjectID, date string, assignmentID *primitive.ObjectID) (*Progress, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}

	var a *domain.PlanAssignment
	if assignmentID != nil {
		a, err = loadAssignmentInRelationship(ctx, s.assignmentRepo, rel, *assignmentID)
		if err != nil {
			return nil, err
		}
	} else {
		a, err = s.assignmentRepo.FindActive(ctx, rel.ClientID, domain.PlanKindNutrition)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNoActiveAssignment
			}
			return nil, err
		}
		if !inRelationship(a, rel) {
			return nil, ErrNoActiveAssignment
		}
	}

	day, err := s.loadDay(ctx, a, date)
	if err != nil {
		return nil, err
	}
	return computeProgress(a, day)
}

func (s *trackingService) loadDay(ctx context.Context, a *domain.PlanAssignment, date string) (*domain.TrackingDay, error) {
	day, err := s.trackingRepo.Get(ctx, a.ID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.TrackingDay{
				AssignmentID: a.ID,
				ClientID:     a.ClientID,
				Date:         date,
				Entries:      map[string]domain.EntryState{},
			}, nil
		}
		return nil, err
	}
	return day, nil
}

// computeProgress counts completed entries against the plan body. Nutrition
// counts meals (any completed option completes its meal) and sums the
// macros; training counts exercises. Custom plans, and plans with an empty
// body, fall back to the recorded entries themselves.
func computeProgress(a *domain.PlanAssignment, day *domain.TrackingDay) (*Progress, error) {
	p := &Progress{
		AssignmentID: a.ID,
		Kind:         a.Kind,
		Custom:       a.Custom,
		Date:         day.Date,
		Entries:      day.Entries,
	}
	completed := day.KeysWithStatus(domain.EntryCompleted)

	switch {
	case a.Custom:
	case a.Kind == domain.PlanKindNutrition:
		var body domain.NutritionBody
		if err := domain.DecodeBody(a.PlanData, &body); err != nil {
			return nil, fmt.Errorf("decode nutrition plan: %w", err)
		}
		totals := &NutritionTotals{}
		doneMeals := make(map[int]bool)
		for _, key := range completed {
			m, o, err := domain.ParseEntryKey(key)
			if err != nil || m >= len(body.Meals) || o >= len(body.Meals[m].Options) {
				continue
			}
			opt := body.Meals[m].Options[o]
			totals.Calories += opt.Calories
			totals.Protein += opt.Protein
			totals.Carbs += opt.Carbs
			totals.Fat += opt.Fat
			doneMeals[m] = true
		}
		p.Totals = totals
		p.TotalEntries = len(body.Meals)
		p.CompletedEntries = len(doneMeals)
	case a.Kind == domain.PlanKindTraining:
		var body domain.TrainingBody
		if err := domain.DecodeBody(a.PlanData, &body); err != nil {
			return nil, fmt.Errorf("decode training plan: %w", err)
		}
		for _, w := range body.Workouts {
			p.TotalEntries += len(w.Exercises)
		}
		for _, key := range completed {
			w, e, err := domain.ParseEntryKey(key)
			if err != nil || w >= len(body.Workouts) || e >= len(body.Workouts[w].Exercises) {
				continue
			}
			p.CompletedEntries++
		}
	}

	if p.TotalEntries == 0 {
		p.TotalEntries = len(day.Entries)
		p.CompletedEntries = len(completed)
	}
	if p.TotalEntries > 0 {
		p.CompletionRate = float64(p.CompletedEntries) / float64(p.TotalEntries)
	}
	return p, nil
}
