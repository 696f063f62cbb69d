package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAssignPlanReplacesActiveAssignment(t *testing.T) {
	f := newFixture(t)
	a := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan A")
	b := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan B")

	first, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, a.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan(A) error = %v", err)
	}
	if got := f.templateCount(t, a.ID); got != 1 {
		t.Fatalf("A.activeClientCount = %d, want 1", got)
	}
	if first.Assigned.ActiveClientCount != 1 {
		t.Errorf("result Assigned.ActiveClientCount = %d, want 1", first.Assigned.ActiveClientCount)
	}

	second, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, b.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan(B) error = %v", err)
	}
	if got := f.templateCount(t, a.ID); got != 0 {
		t.Errorf("A.activeClientCount = %d, want 0", got)
	}
	if got := f.templateCount(t, b.ID); got != 1 {
		t.Errorf("B.activeClientCount = %d, want 1", got)
	}
	if second.Replaced == nil || second.Replaced.ID != first.Assignment.ID {
		t.Fatalf("Replaced = %+v, want the first assignment", second.Replaced)
	}

	old, err := f.store.Assignments().GetByID(f.ctx, first.Assignment.ID)
	if err != nil {
		t.Fatalf("load first assignment: %v", err)
	}
	if old.Status != domain.AssignmentCompleted || old.CompletedAt == nil {
		t.Errorf("first assignment status = %s completedAt = %v, want completed with timestamp", old.Status, old.CompletedAt)
	}

	active, err := f.store.Assignments().FindActive(f.ctx, f.client.UserID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("FindActive error = %v", err)
	}
	if active.ID != second.Assignment.ID {
		t.Errorf("active assignment = %s, want %s", active.ID.Hex(), second.Assignment.ID.Hex())
	}
}

func TestAssignPlanKindsAreIndependent(t *testing.T) {
	f := newFixture(t)
	nutrition := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Cut")
	training := f.addTemplate(t, f.trainer, domain.PlanKindTraining, "Strength")

	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, nutrition.ID, domain.PlanKindNutrition); err != nil {
		t.Fatalf("assign nutrition: %v", err)
	}
	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, training.ID, domain.PlanKindTraining); err != nil {
		t.Fatalf("assign training: %v", err)
	}
	for _, kind := range []domain.PlanKind{domain.PlanKindNutrition, domain.PlanKindTraining} {
		if _, err := f.store.Assignments().FindActive(f.ctx, f.client.UserID, kind); err != nil {
			t.Errorf("FindActive(%s) error = %v, want an active assignment", kind, err)
		}
	}
}

func TestAssignPlanRejectsKindMismatch(t *testing.T) {
	f := newFixture(t)
	training := f.addTemplate(t, f.trainer, domain.PlanKindTraining, "Strength")

	_, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, training.ID, domain.PlanKindNutrition)
	if !errors.Is(err, ErrPlanKindMismatch) {
		t.Fatalf("error = %v, want ErrPlanKindMismatch", err)
	}
	if got := f.activeCount(t, training.ID); got != 0 {
		t.Errorf("active assignments = %d, want 0", got)
	}
}

func TestAssignPlanAuthorization(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan")
	other := f.addUser(t, "other@example.com", domain.RoleTrainer)
	otherTpl := f.addTemplate(t, other, domain.PlanKindNutrition, "Not mine")
	pendingClient := f.addUser(t, "pending@example.com", domain.RoleClient)
	pendingID := f.addRelationship(t, f.trainer, pendingClient, domain.RelationshipPending)

	tests := []struct {
		name      string
		caller    Caller
		requestID primitive.ObjectID
		planID    primitive.ObjectID
		want      error
	}{
		{"client cannot assign", f.client, f.requestID, tpl.ID, ErrNotParty},
		{"stranger trainer", other, f.requestID, otherTpl.ID, ErrNotParty},
		{"pending relationship", f.trainer, pendingID, tpl.ID, ErrRelationshipNotAccepted},
		{"missing relationship", f.trainer, primitive.NewObjectID(), tpl.ID, ErrRelationshipNotFound},
		{"template of another trainer", f.trainer, f.requestID, otherTpl.ID, ErrTemplateAccessDenied},
		{"missing template", f.trainer, f.requestID, primitive.NewObjectID(), ErrTemplateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.assign.AssignPlan(f.ctx, tt.caller, tt.requestID, tt.planID, domain.PlanKindNutrition)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if got := f.templateCount(t, tpl.ID); got != 0 {
		t.Errorf("activeClientCount = %d after rejected calls, want 0", got)
	}
}

func TestAssignmentSnapshotIsolatedFromTemplateEdits(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan")

	res, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}

	edited := bson.M{"meals": bson.A{bson.M{"name": "Fasting", "options": bson.A{}}}}
	if _, err := f.plans.UpdatePlan(f.ctx, f.trainer.UserID, tpl.ID, PlanInput{Title: "Plan v2", Body: edited}); err != nil {
		t.Fatalf("UpdatePlan error = %v", err)
	}

	a, err := f.assign.GetAssignment(f.ctx, f.client, f.requestID, res.Assignment.ID)
	if err != nil {
		t.Fatalf("GetAssignment error = %v", err)
	}
	var body domain.NutritionBody
	if err := domain.DecodeBody(a.PlanData, &body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(body.Meals) != 3 || body.Meals[0].Name != "Breakfast" {
		t.Errorf("snapshot meals = %+v, want the original three meals", body.Meals)
	}
	if a.PlanData["title"] != "Plan" {
		t.Errorf("snapshot title = %v, want Plan", a.PlanData["title"])
	}
}

func TestRemoveAssignment(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan")
	res, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}
	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, res.Assignment.ID, domain.PlanKindNutrition, EntryUpdate{
		Date: "2024-03-01", EntryKey: "0-0", Status: domain.EntryTracking,
	}); err != nil {
		t.Fatalf("SetEntryStatus error = %v", err)
	}

	removed, err := f.assign.RemoveAssignment(f.ctx, f.trainer, f.requestID, domain.PlanKindNutrition, nil)
	if err != nil {
		t.Fatalf("RemoveAssignment error = %v", err)
	}
	if removed.Status != domain.AssignmentAbandoned {
		t.Errorf("status = %s, want abandoned", removed.Status)
	}
	if got := f.templateCount(t, tpl.ID); got != 0 {
		t.Errorf("activeClientCount = %d, want 0", got)
	}

	// Tracking history is left untouched
	day, err := f.store.Tracking().Get(f.ctx, res.Assignment.ID, "2024-03-01")
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if day.Entries["0-0"].Status != domain.EntryTracking {
		t.Errorf("entry 0-0 = %s, want tracking preserved", day.Entries["0-0"].Status)
	}

	// A second removal finds nothing
	_, err = f.assign.RemoveAssignment(f.ctx, f.trainer, f.requestID, domain.PlanKindNutrition, nil)
	if !errors.Is(err, ErrNoActiveAssignment) {
		t.Errorf("second removal error = %v, want ErrNoActiveAssignment", err)
	}
}

func TestRemoveAssignmentWithoutActiveIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.assign.RemoveAssignment(f.ctx, f.trainer, f.requestID, domain.PlanKindTraining, nil)
	if KindOf(err) != KindNotFound {
		t.Fatalf("error = %v (kind %d), want NotFound", err, KindOf(err))
	}

	missing := primitive.NewObjectID()
	_, err = f.assign.RemoveAssignment(f.ctx, f.trainer, f.requestID, domain.PlanKindTraining, &missing)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("named missing assignment error = %v, want ErrAssignmentNotFound", err)
	}
}

func TestReplacingCompletesTrackingEntries(t *testing.T) {
	f := newFixture(t)
	a := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "A")
	b := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "B")
	first, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, a.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan(A) error = %v", err)
	}
	if _, err := f.tracking.SetEntryStatus(f.ctx, f.client, f.requestID, first.Assignment.ID, domain.PlanKindNutrition, EntryUpdate{
		Date: "2024-03-01", EntryKey: "1-0", Status: domain.EntryTracking,
	}); err != nil {
		t.Fatalf("SetEntryStatus error = %v", err)
	}

	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, b.ID, domain.PlanKindNutrition); err != nil {
		t.Fatalf("AssignPlan(B) error = %v", err)
	}
	day, err := f.store.Tracking().Get(f.ctx, first.Assignment.ID, "2024-03-01")
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	entry := day.Entries["1-0"]
	if entry.Status != domain.EntryCompleted || entry.CompletedAt == nil {
		t.Errorf("entry 1-0 = %+v, want completed with timestamp", entry)
	}
}

func TestEnableCustomTracking(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Plan")
	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, domain.PlanKindNutrition); err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}
	upload, err := f.documents.RequestUploadURL(f.ctx, f.trainer, f.requestID, "meal-guide.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("RequestUploadURL error = %v", err)
	}

	custom, err := f.assign.EnableCustomTracking(f.ctx, f.trainer, f.requestID, domain.PlanKindNutrition, CustomTrackingInput{
		Documents:   []string{upload.ObjectKey},
		Description: "Log what you eat",
	})
	if err != nil {
		t.Fatalf("EnableCustomTracking error = %v", err)
	}
	if custom.SourceTemplateID != nil || !custom.Custom {
		t.Errorf("custom assignment = %+v, want no source template and custom flag", custom)
	}
	if custom.PlanData["custom"] != true {
		t.Errorf("snapshot custom marker = %v, want true", custom.PlanData["custom"])
	}
	if got := f.templateCount(t, tpl.ID); got != 0 {
		t.Errorf("replaced template activeClientCount = %d, want 0", got)
	}
	active, err := f.store.Assignments().FindActive(f.ctx, f.client.UserID, domain.PlanKindNutrition)
	if err != nil || active.ID != custom.ID {
		t.Fatalf("FindActive = %v, %v; want the custom assignment", active, err)
	}
}

func TestEnableCustomTrackingRejectsForeignDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.assign.EnableCustomTracking(f.ctx, f.trainer, f.requestID, domain.PlanKindTraining, CustomTrackingInput{
		Documents: []string{"documents/elsewhere/file.pdf"},
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("error = %v, want ErrDocumentNotFound", err)
	}
	if _, err := f.store.Assignments().FindActive(f.ctx, f.client.UserID, domain.PlanKindTraining); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("FindActive error = %v, want no assignment created", err)
	}
}

func TestUpdateAssignmentStatus(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindTraining, "Strength")
	res, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, domain.PlanKindTraining)
	if err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}

	if _, err := f.assign.UpdateAssignmentStatus(f.ctx, f.client, res.Assignment.ID, domain.AssignmentCompleted); !errors.Is(err, ErrAssignmentAccessDenied) {
		t.Errorf("client update error = %v, want ErrAssignmentAccessDenied", err)
	}
	if _, err := f.assign.UpdateAssignmentStatus(f.ctx, f.trainer, res.Assignment.ID, domain.AssignmentActive); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("active->active error = %v, want ErrInvalidStatusTransition", err)
	}

	updated, err := f.assign.UpdateAssignmentStatus(f.ctx, f.trainer, res.Assignment.ID, domain.AssignmentCompleted)
	if err != nil {
		t.Fatalf("UpdateAssignmentStatus error = %v", err)
	}
	if updated.Status != domain.AssignmentCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}
	if got := f.templateCount(t, tpl.ID); got != 0 {
		t.Errorf("activeClientCount = %d, want 0", got)
	}
	if _, err := f.assign.UpdateAssignmentStatus(f.ctx, f.trainer, res.Assignment.ID, domain.AssignmentAbandoned); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("completed->abandoned error = %v, want ErrInvalidStatusTransition", err)
	}
}

// failingCounter fails every counter write, to force the transaction to abort.
type failingCounter struct {
	repository.PlanTemplateRepository
}

func (failingCounter) SetActiveClientCount(ctx context.Context, id primitive.ObjectID, count int) error {
	return errBoom
}

func TestAssignPlanRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	a := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "A")
	b := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "B")
	first, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, a.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan(A) error = %v", err)
	}

	f.wire(failingCounter{f.store.Templates()})
	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, b.ID, domain.PlanKindNutrition); !errors.Is(err, errBoom) {
		t.Fatalf("AssignPlan(B) error = %v, want errBoom", err)
	}

	active, err := f.store.Assignments().FindActive(f.ctx, f.client.UserID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("FindActive error = %v", err)
	}
	if active.ID != first.Assignment.ID {
		t.Errorf("active assignment = %s, want the original %s", active.ID.Hex(), first.Assignment.ID.Hex())
	}
	if got := f.activeCount(t, b.ID); got != 0 {
		t.Errorf("B active assignments = %d, want 0 after rollback", got)
	}
	if got := f.templateCount(t, a.ID); got != 1 {
		t.Errorf("A.activeClientCount = %d, want 1 after rollback", got)
	}
}

func TestActiveClientCountMatchesTally(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Shared")
	other := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Other")

	requests := []primitive.ObjectID{f.requestID}
	for _, email := range []string{"c2@example.com", "c3@example.com"} {
		c := f.addUser(t, email, domain.RoleClient)
		requests = append(requests, f.addRelationship(t, f.trainer, c, domain.RelationshipAccepted))
	}
	for _, id := range requests {
		if _, err := f.assign.AssignPlan(f.ctx, f.trainer, id, tpl.ID, domain.PlanKindNutrition); err != nil {
			t.Fatalf("AssignPlan error = %v", err)
		}
	}
	if _, err := f.assign.AssignPlan(f.ctx, f.trainer, requests[1], other.ID, domain.PlanKindNutrition); err != nil {
		t.Fatalf("reassign error = %v", err)
	}
	if _, err := f.assign.RemoveAssignment(f.ctx, f.trainer, requests[2], domain.PlanKindNutrition, nil); err != nil {
		t.Fatalf("RemoveAssignment error = %v", err)
	}

	for _, id := range []primitive.ObjectID{tpl.ID, other.ID} {
		if got, want := f.templateCount(t, id), f.activeCount(t, id); got != want {
			t.Errorf("template %s activeClientCount = %d, tally = %d", id.Hex(), got, want)
		}
	}
	if got := f.templateCount(t, tpl.ID); got != 1 {
		t.Errorf("shared template count = %d, want 1", got)
	}
}

func TestListAssignmentsHistory(t *testing.T) {
	f := newFixture(t)
	a := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "A")
	b := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "B")
	for _, id := range []primitive.ObjectID{a.ID, b.ID} {
		if _, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, id, domain.PlanKindNutrition); err != nil {
			t.Fatalf("AssignPlan error = %v", err)
		}
	}

	all, err := f.assign.ListAssignments(f.ctx, f.client, f.requestID, domain.PlanKindNutrition, repository.Page{})
	if err != nil {
		t.Fatalf("ListAssignments error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	firstPage, err := f.assign.ListAssignments(f.ctx, f.trainer, f.requestID, "", repository.Page{Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("ListAssignments page error = %v", err)
	}
	if len(firstPage) != 1 {
		t.Errorf("page len = %d, want 1", len(firstPage))
	}
	farPage, err := f.assign.ListAssignments(f.ctx, f.client, f.requestID, "", repository.Page{Page: math.MaxInt / 50, Limit: 100})
	if err != nil {
		t.Fatalf("ListAssignments far page error = %v", err)
	}
	if len(farPage) != 0 {
		t.Errorf("far page len = %d, want 0", len(farPage))
	}
	if _, err := f.assign.ListAssignments(f.ctx, f.client, f.requestID, "cardio", repository.Page{}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown kind error = %v, want ErrValidation", err)
	}
}
