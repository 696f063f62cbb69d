package mongo

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const coachingCollectionName = "coaching_requests"

// mongoCoachingRepository implements repository.CoachingRepository
type mongoCoachingRepository struct {
	collection *mongo.Collection
}

// NewMongoCoachingRepository creates a new coaching relationship repository.
func NewMongoCoachingRepository(db *mongo.Database) repository.CoachingRepository {
	return &mongoCoachingRepository{
		collection: db.Collection(coachingCollectionName),
	}
}

// Create inserts a new coaching request.
func (r *mongoCoachingRepository) Create(ctx context.Context, rel *domain.CoachingRelationship) (primitive.ObjectID, error) {
	if rel.TrainerID == primitive.NilObjectID || rel.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("coaching request requires trainerId and clientId")
	}
	rel.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	if rel.Status == "" {
		rel.Status = domain.RelationshipPending
	}

	result, err := r.collection.InsertOne(ctx, rel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted coaching request ID")
	}
	return insertedID, nil
}

// GetByID retrieves a coaching request by its ID.
func (r *mongoCoachingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CoachingRelationship, error) {
	var rel domain.CoachingRelationship
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rel, nil
}

// GetOpenByPair finds the pending or accepted request between a trainer and a client.
func (r *mongoCoachingRepository) GetOpenByPair(ctx context.Context, trainerID, clientID primitive.ObjectID) (*domain.CoachingRelationship, error) {
	var rel domain.CoachingRelationship
	filter := bson.M{
		"trainerId": trainerID,
		"clientId":  clientID,
		"status":    bson.M{"$in": bson.A{domain.RelationshipPending, domain.RelationshipAccepted}},
	}
	err := r.collection.FindOne(ctx, filter).Decode(&rel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rel, nil
}

// ListByUser lists the requests where the user takes the given role, newest first.
func (r *mongoCoachingRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, role domain.Role) ([]domain.CoachingRelationship, error) {
	field := "clientId"
	if role == domain.RoleTrainer {
		field = "trainerId"
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{field: userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rels []domain.CoachingRelationship
	if err = cursor.All(ctx, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

// UpdateStatus records the trainer's answer to a request.
func (r *mongoCoachingRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.RelationshipStatus) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":      status,
		"respondedAt": now,
		"updatedAt":   now,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureCoachingIndexes creates necessary indexes. Call during startup.
func EnsureCoachingIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// One open (pending or accepted) request per pair
			Keys: bson.D{{Key: "trainerId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": bson.A{domain.RelationshipPending, domain.RelationshipAccepted}},
			}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
