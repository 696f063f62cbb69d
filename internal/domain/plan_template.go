// internal/domain/plan_template.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanKind separates training plans from nutrition plans.
// A client can follow at most one active plan of each kind.
type PlanKind string

const (
	PlanKindTraining  PlanKind = "training"
	PlanKindNutrition PlanKind = "nutrition"
)

// Valid reports whether k is one of the known plan kinds.
func (k PlanKind) Valid() bool {
	return k == PlanKindTraining || k == PlanKindNutrition
}

// PlanTemplate is a reusable plan authored once by a trainer and assigned to
// any number of clients.
type PlanTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"` // Owner; only this trainer may mutate the template
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Kind        PlanKind           `bson:"kind" json:"kind"`
	Body        bson.M             `bson:"body" json:"body"` // Free-form plan content (meals, workouts, ...)

	// Denormalized: always the number of PlanAssignments with status active
	// that reference this template. Recomputed, never incremented.
	ActiveClientCount int `bson:"activeClientCount" json:"activeClientCount"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// templateOnlyKeys never travel from a template body into an assignment snapshot.
var templateOnlyKeys = []string{"_id", "id", "trainerId", "createdAt", "updatedAt", "activeClientCount"}

// Snapshot returns a deep copy of the template content suitable for storing on
// an assignment. Later edits to the template do not affect the copy.
func (t *PlanTemplate) Snapshot() (bson.M, error) {
	snapshot, err := CloneBody(t.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot template %s: %w", t.ID.Hex(), err)
	}
	for _, key := range templateOnlyKeys {
		delete(snapshot, key)
	}
	snapshot["title"] = t.Title
	snapshot["description"] = t.Description
	snapshot["kind"] = string(t.Kind)
	return snapshot, nil
}

// CloneBody deep-copies a plan body by round-tripping it through BSON.
// A nil body yields an empty document.
func CloneBody(body bson.M) (bson.M, error) {
	if body == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(body)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = bson.M{}
	}
	return out, nil
}

// DecodeBody converts a free-form plan body into a typed structure such as
// NutritionBody or TrainingBody. Unknown keys are ignored.
func DecodeBody(body bson.M, out interface{}) error {
	if out == nil {
		return errors.New("decode target is nil")
	}
	if body == nil {
		return nil
	}
	raw, err := bson.Marshal(body)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}
