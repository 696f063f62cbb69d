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

const planAssignmentCollectionName = "plan_assignments"

// mongoPlanAssignmentRepository implements repository.PlanAssignmentRepository
type mongoPlanAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanAssignmentRepository creates a new PlanAssignment repository backed by MongoDB.
func NewMongoPlanAssignmentRepository(db *mongo.Database) repository.PlanAssignmentRepository {
	return &mongoPlanAssignmentRepository{
		collection: db.Collection(planAssignmentCollectionName),
	}
}

// Create inserts a new assignment into the database.
func (r *mongoPlanAssignmentRepository) Create(ctx context.Context, a *domain.PlanAssignment) (primitive.ObjectID, error) {
	if a.ClientID == primitive.NilObjectID || a.TrainerID == primitive.NilObjectID || !a.Kind.Valid() {
		return primitive.NilObjectID, errors.New("plan assignment requires clientId, trainerId, and a valid kind")
	}

	a.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if a.AssignedAt.IsZero() {
		a.AssignedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.AssignmentActive
	}

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		// Partial unique index on (clientId, kind) for active assignments
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoPlanAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanAssignment, error) {
	var a domain.PlanAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindActive retrieves the client's active assignment of the given kind.
func (r *mongoPlanAssignmentRepository) FindActive(ctx context.Context, clientID primitive.ObjectID, kind domain.PlanKind) (*domain.PlanAssignment, error) {
	var a domain.PlanAssignment
	filter := bson.M{
		"clientId": clientID,
		"kind":     kind,
		"status":   domain.AssignmentActive,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListByClient retrieves one page of a client's assignment history with a trainer, newest first.
func (r *mongoPlanAssignmentRepository) ListByClient(ctx context.Context, clientID, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanAssignment, error) {
	filter := bson.M{"clientId": clientID, "trainerId": trainerID}
	if kind != "" {
		filter["kind"] = kind
	}
	page = page.Normalize()
	findOptions := options.Find().
		SetSort(bson.D{{Key: "assignedAt", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assignments []domain.PlanAssignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Close moves an active assignment to a terminal status. The status filter
// makes the transition conditional: a second close of the same assignment
// matches nothing and returns ErrNotFound.
func (r *mongoPlanAssignmentRepository) Close(ctx context.Context, id primitive.ObjectID, status domain.AssignmentStatus, completedAt time.Time) error {
	filter := bson.M{"_id": id, "status": domain.AssignmentActive}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"completedAt": completedAt,
		"updatedAt":   time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CountActiveByTemplate counts active assignments created from a template.
func (r *mongoPlanAssignmentRepository) CountActiveByTemplate(ctx context.Context, templateID primitive.ObjectID) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"sourceTemplateId": templateID,
		"status":           domain.AssignmentActive,
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountActiveGroupedByTemplate tallies a trainer's active assignments per source template.
func (r *mongoPlanAssignmentRepository) CountActiveGroupedByTemplate(ctx context.Context, trainerID primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"trainerId":        trainerID,
			"status":           domain.AssignmentActive,
			"sourceTemplateId": bson.M{"$type": "objectId"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$sourceTemplateId",
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TemplateID primitive.ObjectID `bson:"_id"`
		Count      int                `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.TemplateID] = row.Count
	}
	return counts, nil
}

// ReferencesDocument reports whether any assignment lists the object key.
func (r *mongoPlanAssignmentRepository) ReferencesDocument(ctx context.Context, objectKey string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"documents": objectKey}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsurePlanAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsurePlanAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one active assignment per client and plan kind
			Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_active_per_client_kind").
				SetPartialFilterExpression(bson.M{"status": domain.AssignmentActive}),
		},
		{
			// History listing for a relationship
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "trainerId", Value: 1}, {Key: "assignedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Counter recomputation and reconciliation sweep
			Keys:    bson.D{{Key: "sourceTemplateId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
