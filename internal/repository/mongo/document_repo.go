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

const documentCollectionName = "documents"

// mongoDocumentRepository implements repository.DocumentRepository
type mongoDocumentRepository struct {
	collection *mongo.Collection
}

// NewMongoDocumentRepository creates a new Document repository backed by MongoDB.
func NewMongoDocumentRepository(db *mongo.Database) repository.DocumentRepository {
	return &mongoDocumentRepository{
		collection: db.Collection(documentCollectionName),
	}
}

// Create inserts new document metadata into the database.
func (r *mongoDocumentRepository) Create(ctx context.Context, doc *domain.Document) (primitive.ObjectID, error) {
	if doc.CoachingRequestID == primitive.NilObjectID ||
		doc.TrainerID == primitive.NilObjectID ||
		doc.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("document requires coachingRequestId, trainerId, and s3ObjectKey")
	}

	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByObjectKey retrieves document metadata by its S3 key.
func (r *mongoDocumentRepository) GetByObjectKey(ctx context.Context, objectKey string) (*domain.Document, error) {
	var doc domain.Document
	err := r.collection.FindOne(ctx, bson.M{"s3ObjectKey": objectKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListByRequest returns the documents uploaded for a coaching request, newest first.
func (r *mongoDocumentRepository) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]domain.Document, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"coachingRequestId": requestID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []domain.Document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

// Delete removes document metadata by its S3 key.
func (r *mongoDocumentRepository) Delete(ctx context.Context, objectKey string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"s3ObjectKey": objectKey})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureDocumentIndexes creates necessary indexes for the documents collection.
func EnsureDocumentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// S3 keys are unique within the bucket
			Keys:    bson.D{{Key: "s3ObjectKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "coachingRequestId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
