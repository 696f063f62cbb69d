package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipStatus tracks a coaching request from creation to the trainer's answer.
type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipRejected RelationshipStatus = "rejected"
)

// CoachingRelationship pairs one trainer with one client. It is created by the
// client as a request and becomes the authorization root for every plan and
// tracking operation once the trainer accepts it.
type CoachingRelationship struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	ClientID    primitive.ObjectID `bson:"clientId" json:"clientId"`
	Status      RelationshipStatus `bson:"status" json:"status"`
	Message     string             `bson:"message,omitempty" json:"message,omitempty"` // Optional note from the client
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
	RespondedAt *time.Time         `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// IsAccepted reports whether the relationship currently grants access.
func (r *CoachingRelationship) IsAccepted() bool {
	return r.Status == RelationshipAccepted
}

// HasParty reports whether userID is the trainer or the client of the relationship.
func (r *CoachingRelationship) HasParty(userID primitive.ObjectID) bool {
	return userID == r.TrainerID || userID == r.ClientID
}
