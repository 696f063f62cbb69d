package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document stores metadata about a file a trainer attached to a coaching
// relationship, typically referenced by a custom-tracking assignment.
// The actual file resides in S3.
type Document struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachingRequestID primitive.ObjectID `bson:"coachingRequestId" json:"coachingRequestId"`
	TrainerID         primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	ClientID          primitive.ObjectID `bson:"clientId" json:"clientId"`
	S3ObjectKey       string             `bson:"s3ObjectKey" json:"objectKey"` // Unique key in the bucket
	FileName          string             `bson:"fileName" json:"fileName"`     // Original filename provided by the trainer
	ContentType       string             `bson:"contentType" json:"contentType"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
