package service

import (
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCreatePlanValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		input PlanInput
	}{
		{"missing title", PlanInput{Kind: domain.PlanKindNutrition, Body: nutritionBody()}},
		{"unknown kind", PlanInput{Title: "X", Kind: "cardio"}},
		{"body of the wrong shape", PlanInput{Title: "X", Kind: domain.PlanKindTraining, Body: bson.M{"workouts": "every day"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.plans.CreatePlan(f.ctx, f.trainer.UserID, tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPlanOwnership(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindTraining, "Mine")
	other := f.addUser(t, "rival@example.com", domain.RoleTrainer)

	if _, err := f.plans.GetPlan(f.ctx, other.UserID, tpl.ID); !errors.Is(err, ErrTemplateAccessDenied) {
		t.Errorf("GetPlan error = %v, want ErrTemplateAccessDenied", err)
	}
	if _, err := f.plans.UpdatePlan(f.ctx, other.UserID, tpl.ID, PlanInput{Title: "Stolen"}); !errors.Is(err, ErrTemplateAccessDenied) {
		t.Errorf("UpdatePlan error = %v, want ErrTemplateAccessDenied", err)
	}
	if err := f.plans.DeletePlan(f.ctx, other.UserID, tpl.ID); !errors.Is(err, ErrTemplateAccessDenied) {
		t.Errorf("DeletePlan error = %v, want ErrTemplateAccessDenied", err)
	}
}

func TestUpdatePlanKeepsKind(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindTraining, "Strength")

	_, err := f.plans.UpdatePlan(f.ctx, f.trainer.UserID, tpl.ID, PlanInput{Title: "Strength", Kind: domain.PlanKindNutrition})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("kind change error = %v, want ErrValidation", err)
	}
	updated, err := f.plans.UpdatePlan(f.ctx, f.trainer.UserID, tpl.ID, PlanInput{Title: "  Strength II ", Body: trainingBody()})
	if err != nil {
		t.Fatalf("UpdatePlan error = %v", err)
	}
	if updated.Title != "Strength II" || updated.Kind != domain.PlanKindTraining {
		t.Errorf("updated = %+v", updated)
	}
}

func TestDeletePlanKeepsAssignments(t *testing.T) {
	f := newFixture(t)
	tpl := f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "Doomed")
	res, err := f.assign.AssignPlan(f.ctx, f.trainer, f.requestID, tpl.ID, domain.PlanKindNutrition)
	if err != nil {
		t.Fatalf("AssignPlan error = %v", err)
	}
	if err := f.plans.DeletePlan(f.ctx, f.trainer.UserID, tpl.ID); err != nil {
		t.Fatalf("DeletePlan error = %v", err)
	}
	if _, err := f.plans.GetPlan(f.ctx, f.trainer.UserID, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("GetPlan after delete error = %v, want ErrTemplateNotFound", err)
	}

	a, err := f.assign.GetAssignment(f.ctx, f.client, f.requestID, res.Assignment.ID)
	if err != nil {
		t.Fatalf("GetAssignment error = %v", err)
	}
	if !a.IsActive() || a.PlanData["title"] != "Doomed" {
		t.Errorf("assignment = %+v, want active with its snapshot", a)
	}

	// Removing the orphaned assignment skips the missing counter
	if _, err := f.assign.RemoveAssignment(f.ctx, f.trainer, f.requestID, domain.PlanKindNutrition, nil); err != nil {
		t.Fatalf("RemoveAssignment error = %v", err)
	}
}

func TestListPlans(t *testing.T) {
	f := newFixture(t)
	f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "N1")
	f.addTemplate(t, f.trainer, domain.PlanKindNutrition, "N2")
	f.addTemplate(t, f.trainer, domain.PlanKindTraining, "T1")

	nutrition, err := f.plans.ListPlans(f.ctx, f.trainer.UserID, domain.PlanKindNutrition, repository.Page{})
	if err != nil {
		t.Fatalf("ListPlans error = %v", err)
	}
	if len(nutrition) != 2 {
		t.Errorf("nutrition plans = %d, want 2", len(nutrition))
	}
	all, err := f.plans.ListPlans(f.ctx, f.trainer.UserID, "", repository.Page{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListPlans error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("first page = %d, want 2", len(all))
	}
}
