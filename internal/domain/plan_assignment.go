package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed" // Replaced by a newer plan or finished
	AssignmentAbandoned AssignmentStatus = "abandoned" // Removed by the trainer
)

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentActive, AssignmentCompleted, AssignmentAbandoned:
		return true
	}
	return false
}

// CanTransition reports whether an assignment may move from s to next.
// Assignments only move forward: active -> completed | abandoned.
func (s AssignmentStatus) CanTransition(next AssignmentStatus) bool {
	return s == AssignmentActive && (next == AssignmentCompleted || next == AssignmentAbandoned)
}

// PlanAssignment is a point-in-time copy of a PlanTemplate placed into effect
// for one client. Assignments are never deleted.
type PlanAssignment struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CoachingRequestID primitive.ObjectID  `bson:"coachingRequestId" json:"coachingRequestId"`
	ClientID          primitive.ObjectID  `bson:"clientId" json:"clientId"`
	TrainerID         primitive.ObjectID  `bson:"trainerId" json:"trainerId"`
	SourceTemplateID  *primitive.ObjectID `bson:"sourceTemplateId" json:"sourceTemplateId"` // nil for custom tracking
	Kind              PlanKind            `bson:"kind" json:"kind"`
	PlanData          bson.M              `bson:"planDataSnapshot" json:"planDataSnapshot"`
	Custom            bool                `bson:"custom" json:"custom"`
	Documents         []string            `bson:"documents,omitempty" json:"documents,omitempty"` // Object keys of attached documents
	Status            AssignmentStatus    `bson:"status" json:"status"`
	AssignedAt        time.Time           `bson:"assignedAt" json:"assignedAt"`
	CompletedAt       *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsActive reports whether the assignment is the one currently in effect.
func (a *PlanAssignment) IsActive() bool {
	return a.Status == AssignmentActive
}

// CustomSnapshot builds the synthetic plan data stored on a freeform assignment.
func CustomSnapshot(kind PlanKind, description string, documents []string) bson.M {
	docs := make(bson.A, 0, len(documents))
	for _, d := range documents {
		docs = append(docs, d)
	}
	return bson.M{
		"custom":      true,
		"kind":        string(kind),
		"title":       "Custom tracking",
		"description": description,
		"documents":   docs,
	}
}
