// internal/repository/mongo/plan_template_repo.go
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

const planTemplateCollectionName = "plan_templates"

// mongoPlanTemplateRepository implements repository.PlanTemplateRepository
type mongoPlanTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanTemplateRepository creates a new PlanTemplate repository.
func NewMongoPlanTemplateRepository(db *mongo.Database) repository.PlanTemplateRepository {
	return &mongoPlanTemplateRepository{
		collection: db.Collection(planTemplateCollectionName),
	}
}

// Create inserts a new plan template.
func (r *mongoPlanTemplateRepository) Create(ctx context.Context, tpl *domain.PlanTemplate) (primitive.ObjectID, error) {
	if tpl.TrainerID == primitive.NilObjectID || tpl.Title == "" || !tpl.Kind.Valid() {
		return primitive.NilObjectID, errors.New("plan template requires trainerId, title, and a valid kind")
	}
	tpl.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	tpl.ActiveClientCount = 0
	if tpl.Body == nil {
		tpl.Body = bson.M{}
	}

	result, err := r.collection.InsertOne(ctx, tpl)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan template ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan template by its ID.
func (r *mongoPlanTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	var tpl domain.PlanTemplate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// ListByTrainer retrieves one page of a trainer's templates, newest first.
func (r *mongoPlanTemplateRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanTemplate, error) {
	filter := bson.M{"trainerId": trainerID}
	if kind != "" {
		filter["kind"] = kind
	}
	page = page.Normalize()
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []domain.PlanTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// ListIDsByTrainer returns the IDs of every template the trainer owns.
func (r *mongoPlanTemplateRepository) ListIDsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// ListTrainerIDs returns every trainer that owns at least one template.
func (r *mongoPlanTemplateRepository) ListTrainerIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	values, err := r.collection.Distinct(ctx, "trainerId", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Update replaces the editable fields of a template. Ownership, kind and the
// active client counter are not changed here.
func (r *mongoPlanTemplateRepository) Update(ctx context.Context, tpl *domain.PlanTemplate) error {
	if tpl.ID == primitive.NilObjectID {
		return errors.New("plan template ID is required for update")
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":       tpl.Title,
			"description": tpl.Description,
			"body":        tpl.Body,
			"updatedAt":   now,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": tpl.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	tpl.UpdatedAt = now
	return nil
}

// SetActiveClientCount persists a recomputed counter value.
func (r *mongoPlanTemplateRepository) SetActiveClientCount(ctx context.Context, id primitive.ObjectID, count int) error {
	update := bson.M{"$set": bson.M{"activeClientCount": count}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a template owned by trainerID.
func (r *mongoPlanTemplateRepository) Delete(ctx context.Context, id, trainerID primitive.ObjectID) error {
	if id == primitive.NilObjectID || trainerID == primitive.NilObjectID {
		return errors.New("plan template ID and trainer ID are required for deletion")
	}
	filter := bson.M{
		"_id":       id,
		"trainerId": trainerID,
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// Either missing or owned by another trainer
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanTemplateIndexes creates necessary indexes. Call during startup.
func EnsurePlanTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main listing pattern: a trainer's catalog, newest first, optionally by kind
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
