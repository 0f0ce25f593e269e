package mongo

import (
	"context"
	"errors"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// Create inserts a new training plan in its pending state. The document is
// filled in later by the generation job via UpdateGeneration.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	if plan.CoachID == primitive.NilObjectID || plan.AthleteID == primitive.NilObjectID || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires coachId, athleteId, and title")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.GenerationStatus == "" {
		plan.GenerationStatus = domain.GenerationPending
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single training plan by its ID. Soft-deleted plans are
// treated as not found.
func (r *mongoTrainingPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	filter := bson.M{"_id": id, "deletedAt": nil}
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByIDs retrieves the non-deleted plans present among the given IDs in one
// query. Missing IDs are simply absent from the result.
func (r *mongoTrainingPlanRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.TrainingPlan, error) {
	if len(ids) == 0 {
		return []domain.TrainingPlan{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "deletedAt": nil})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.TrainingPlan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetByAthleteID retrieves all non-deleted plans for an athlete, newest first.
func (r *mongoTrainingPlanRepository) GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error) {
	filter := bson.M{"athleteId": athleteID, "deletedAt": nil}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.TrainingPlan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateGeneration writes the outcome of a generation job. A nil doc or empty
// genErr clears the stored field, so a regenerated plan never carries a stale
// document or error from an earlier attempt. A missing target record is
// reported as ErrNotFound; the caller treats that as fatal.
func (r *mongoTrainingPlanRepository) UpdateGeneration(ctx context.Context, id primitive.ObjectID, doc *domain.TrainingPlanDocument, status domain.GenerationStatus, genErr string) error {
	set := bson.M{
		"generationStatus": status,
		"updatedAt":        time.Now().UTC(),
	}
	unset := bson.M{}
	if doc != nil {
		set["document"] = doc
	} else {
		unset["document"] = ""
	}
	if genErr != "" {
		set["generationError"] = genErr
	} else {
		unset["generationError"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "deletedAt": nil}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SoftDelete marks a plan as deleted without removing the record. The filter
// enforces coach ownership.
func (r *mongoTrainingPlanRepository) SoftDelete(ctx context.Context, id, coachID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "coachId": coachID, "deletedAt": nil}
	update := bson.M{"$set": bson.M{"deletedAt": time.Now().UTC(), "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTrainingPlanIndexes creates necessary indexes. Call during startup.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
