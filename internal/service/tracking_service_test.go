package service

import (
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func assignActive(t *testing.T, f *fixture, kind domain.PlanKind) *domain.PlanAssignment {
	t.Helper()
	tpl := f.addTemplate(t, f.trainer, kind, "Plan "+string(kind))
	res, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, kind)
	if err != nil {
		t.Fatalf("AssignPlan(%s) error = %v", kind, err)
	}
	return res.Assignment
}

func TestSetEntryStatusExclusiveTracking(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindNutrition)
	const date = "2024-05-10"

	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, domain.PlanKindNutrition, EntryUpdate{
		Date: date, EntryKey: "2-0", Status: domain.EntryTracking, Exclusive: true,
	}); err != nil {
		t.Fatalf("track 2-0: %v", err)
	}
	day, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, domain.PlanKindNutrition, EntryUpdate{
		Date: date, EntryKey: "0-1", Status: domain.EntryTracking, Exclusive: true,
	})
	if err != nil {
		t.Fatalf("track 0-1: %v", err)
	}

	if got := day.Entries["2-0"]; got.Status != domain.EntryCompleted || got.CompletedAt == nil {
		t.Errorf("entry 2-0 = %+v, want completed", got)
	}
	if got := day.Entries["0-1"]; got.Status != domain.EntryTracking || got.StartedAt == nil {
		t.Errorf("entry 0-1 = %+v, want tracking", got)
	}
	if n := day.CountStatus(domain.EntryTracking); n != 1 {
		t.Errorf("tracking entries = %d, want 1", n)
	}

	stored, err := f.tracking.GetDay(f.ctx, f.trainer, f.requestID, a.ID, date)
	if err != nil {
		t.Fatalf("GetDay error = %v", err)
	}
	if len(stored.Entries) != 2 {
		t.Errorf("stored entries = %d, want 2", len(stored.Entries))
	}
}

func TestSetEntryStatusNonExclusiveKeepsOthers(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindTraining)
	const date = "2024-05-10"

	for _, key := range []string{"0-0", "0-1"} {
		if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, "", EntryUpdate{
			Date: date, EntryKey: key, Status: domain.EntryTracking,
		}); err != nil {
			t.Fatalf("track %s: %v", key, err)
		}
	}
	day, err := f.tracking.GetDay(f.ctx, f.client, f.requestID, a.ID, date)
	if err != nil {
		t.Fatalf("GetDay error = %v", err)
	}
	if n := day.CountStatus(domain.EntryTracking); n != 2 {
		t.Errorf("tracking entries = %d, want 2", n)
	}
}

func TestSetEntryStatusValidation(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindNutrition)

	tests := []struct {
		name   string
		kind   domain.PlanKind
		update EntryUpdate
		want   error
	}{
		{"bad date", domain.PlanKindNutrition, EntryUpdate{Date: "2024-13-40", EntryKey: "0-0", Status: domain.EntryTracking}, domain.ErrInvalidDate},
		{"bad key", domain.PlanKindNutrition, EntryUpdate{Date: "2024-05-10", EntryKey: "first", Status: domain.EntryTracking}, domain.ErrInvalidEntryKey},
		{"pending status", domain.PlanKindNutrition, EntryUpdate{Date: "2024-05-10", EntryKey: "0-0", Status: domain.EntryPending}, ErrValidation},
		{"wrong route kind", domain.PlanKindTraining, EntryUpdate{Date: "2024-05-10", EntryKey: "0-0", Status: domain.EntryTracking}, ErrPlanKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, tt.kind, tt.update)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetEntryStatusAccess(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindNutrition)
	stranger := f.addUser(t, "stranger@example.com", domain.RoleClient)
	update := EntryUpdate{Date: "2024-05-10", EntryKey: "0-0", Status: domain.EntryTracking}

	if _, err := f.tracking.SetEntryStatus(f.ctx, stranger, f.requestID, a.ID, "", update); !errors.Is(err, ErrNotParty) {
		t.Errorf("stranger error = %v, want ErrNotParty", err)
	}

	// An assignment of another relationship is hidden
	other := f.addUser(t, "other-client@example.com", domain.RoleClient)
	otherReq := f.addRelationship(t, f.trainer, other, domain.RelationshipAccepted)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Other plan")
	res, err := f.assign.AssignPlan(f.ctx, f.trainer, otherReq, tpl.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}
	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, res.Assignment.ID, "", update); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("foreign assignment error = %v, want ErrAssignmentNotFound", err)
	}
}

func TestGetDayEmpty(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindTraining)

	day, err := f.tracking.GetDay(f.ctx, f.client, f.requestID, a.ID, "2024-01-01")
	if err != nil {
		t.Fatalf("GetDay error = %v", err)
	}
	if day.Entries == nil || len(day.Entries) != 0 {
		t.Errorf("entries = %v, want empty map", day.Entries)
	}
	if day.Date != "2024-01-01" || day.AssignmentID != a.ID {
		t.Errorf("day = %+v, want date and assignment filled in", day)
	}
}

func TestClientProgressNutritionTotals(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindNutrition)
	const date = "2024-05-10"

	for _, key := range []string{"0-0", "1-0"} {
		if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, domain.PlanKindNutrition, EntryUpdate{
			Date: date, EntryKey: key, Status: domain.EntryCompleted,
		}); err != nil {
			t.Fatalf("complete %s: %v", key, err)
		}
	}
	// Tracking does not count towards totals
	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, domain.PlanKindNutrition, EntryUpdate{
		Date: date, EntryKey: "2-0", Status: domain.EntryTracking,
	}); err != nil {
		t.Fatalf("track 2-0: %v", err)
	}

	p, err := f.tracking.ClientProgress(f.ctx, f.trainer, f.requestID, date, nil)
	if err != nil {
		t.Fatalf("ClientProgress error = %v", err)
	}
	if p.AssignmentID != a.ID {
		t.Errorf("assignment = %s, want active nutrition %s", p.AssignmentID.Hex(), a.ID.Hex())
	}
	if p.Totals == nil {
		t.Fatal("totals = nil, want nutrition totals")
	}
	if p.Totals.Calories != 1000 || p.Totals.Protein != 65 || p.Totals.Carbs != 80 || p.Totals.Fat != 35 {
		t.Errorf("totals = %+v, want 1000 kcal / 65p / 80c / 35f", *p.Totals)
	}
	if p.CompletedEntries != 2 || p.TotalEntries != 3 {
		t.Errorf("completion = %d/%d, want 2/3", p.CompletedEntries, p.TotalEntries)
	}
}

func TestClientProgressTraining(t *testing.T) {
	f := newFixture(t)
	a := assignActive(t, f, domain.PlanKindTraining)
	const date = "2024-05-11"

	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, a.ID, domain.PlanKindTraining, EntryUpdate{
		Date: date, EntryKey: "1-0", Status: domain.EntryCompleted,
	}); err != nil {
		t.Fatalf("complete 1-0: %v", err)
	}

	p, err := f.tracking.ClientProgress(f.ctx, f.client, f.requestID, date, &a.ID)
	if err != nil {
		t.Fatalf("ClientProgress error = %v", err)
	}
	if p.Totals != nil {
		t.Errorf("totals = %+v, want nil for training", p.Totals)
	}
	if p.CompletedEntries != 1 || p.TotalEntries != 3 {
		t.Errorf("completion = %d/%d, want 1/3", p.CompletedEntries, p.TotalEntries)
	}
}

func TestClientProgressWithoutActivePlan(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracking.ClientProgress(f.ctx, f.client, f.requestID, "2024-05-10", nil)
	if !errors.Is(err, ErrNoActiveAssignment) {
		t.Fatalf("error = %v, want ErrNoActiveAssignment", err)
	}

	missing := primitive.NewObjectID()
	_, err = f.tracking.ClientProgress(f.ctx, f.client, f.requestID, "2024-05-10", &missing)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("named missing error = %v, want ErrAssignmentNotFound", err)
	}
}

func TestClientProgressCustomUsesEntries(t *testing.T) {
	f := newFixture(t)
	custom, err := f.assign.EnableCustomTracking(f.ctx, f.trainer, f.requestID, domain.PlanKindNutrition, CustomTrackingInput{Description: "Log freely"})
	if err != nil {
		t.Fatalf("EnableCustomTracking error = %v", err)
	}
	const date = "2024-05-12"
	for _, u := range []EntryUpdate{
		{Date: date, EntryKey: "0-0", Status: domain.EntryCompleted},
		{Date: date, EntryKey: "1-0", Status: domain.EntryTracking},
	} {
		if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, custom.ID, "", u); err != nil {
			t.Fatalf("SetEntryStatus(%s) error = %v", u.EntryKey, err)
		}
	}

	p, err := f.tracking.ClientProgress(f.ctx, f.client, f.requestID, date, nil)
	if err != nil {
		t.Fatalf("ClientProgress error = %v", err)
	}
	if !p.Custom || p.Totals != nil {
		t.Errorf("progress = %+v, want custom without totals", p)
	}
	if p.CompletedEntries != 1 || p.TotalEntries != 2 || p.CompletionRate != 0.5 {
		t.Errorf("completion = %d/%d rate %v, want 1/2 rate 0.5", p.CompletedEntries, p.TotalEntries, p.CompletionRate)
	}
}

func TestSetEntryStatusOnReplacedAssignment(t *testing.T) {
	f := newFixture(t)
	old := assignActive(t, f, domain.PlanKindTraining)
	const date = "2024-05-10"

	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, old.ID, "", EntryUpdate{
		Date: date, EntryKey: "0-0", Status: domain.EntryTracking,
	}); err != nil {
		t.Fatalf("track 0-0: %v", err)
	}
	assignActive(t, f, domain.PlanKindTraining)

	_, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, old.ID, "", EntryUpdate{
		Date: date, EntryKey: "0-0", Status: domain.EntryTracking,
	})
	if !errors.Is(err, ErrNoActiveAssignment) {
		t.Fatalf("tracking on replaced assignment error = %v, want ErrNoActiveAssignment", err)
	}
	day, err := f.tracking.GetDay(f.ctx, f.client, f.requestID, old.ID, date)
	if err != nil {
		t.Fatalf("GetDay error = %v", err)
	}
	if got := day.Entries["0-0"].Status; got != domain.EntryCompleted {
		t.Errorf("entry 0-0 = %s, want completed", got)
	}

	// Late completions on the closed assignment are still recorded
	day, err = f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, old.ID, "", EntryUpdate{
		Date: date, EntryKey: "0-1", Status: domain.EntryCompleted,
	})
	if err != nil {
		t.Fatalf("complete 0-1 error = %v", err)
	}
	if day.Entries["0-1"].Status != domain.EntryCompleted {
		t.Errorf("entry 0-1 = %+v, want completed", day.Entries["0-1"])
	}
}
