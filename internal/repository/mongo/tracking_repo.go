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

const trackingCollectionName = "tracking_days"

type mongoTrackingRepository struct {
	collection *mongo.Collection
}

// NewMongoTrackingRepository creates a new TrackingDay repository.
func NewMongoTrackingRepository(db *mongo.Database) repository.TrackingRepository {
	return &mongoTrackingRepository{
		collection: db.Collection(trackingCollectionName),
	}
}

// Get retrieves the tracking day of an assignment for a calendar date.
func (r *mongoTrackingRepository) Get(ctx context.Context, assignmentID primitive.ObjectID, date string) (*domain.TrackingDay, error) {
	var day domain.TrackingDay
	filter := bson.M{"assignmentId": assignmentID, "date": date}
	err := r.collection.FindOne(ctx, filter).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if day.Entries == nil {
		day.Entries = map[string]domain.EntryState{}
	}
	return &day, nil
}

// Upsert writes the day's entries keyed on (assignmentId, date), creating the
// row on first write.
func (r *mongoTrackingRepository) Upsert(ctx context.Context, day *domain.TrackingDay) error {
	if day.AssignmentID == primitive.NilObjectID || day.Date == "" {
		return errors.New("tracking day requires assignmentId and date")
	}
	now := time.Now().UTC()
	filter := bson.M{"assignmentId": day.AssignmentID, "date": day.Date}
	update := bson.M{
		"$set": bson.M{
			"clientId":  day.ClientID,
			"entries":   day.Entries,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		day.ID = id
		day.CreatedAt = now
	}
	day.UpdatedAt = now
	return nil
}

// ListByAssignment retrieves every tracking day of an assignment, oldest first.
func (r *mongoTrackingRepository) ListByAssignment(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.TrackingDay, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"assignmentId": assignmentID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var days []domain.TrackingDay
	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// EnsureTrackingIndexes creates necessary indexes. Call during startup.
func EnsureTrackingIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
