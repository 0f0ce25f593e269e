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

const athleteCollectionName = "athletes"

// mongoAthleteRepository implements repository.AthleteRepository
type mongoAthleteRepository struct {
	collection *mongo.Collection
}

// NewMongoAthleteRepository creates a new Athlete repository.
func NewMongoAthleteRepository(db *mongo.Database) repository.AthleteRepository {
	return &mongoAthleteRepository{
		collection: db.Collection(athleteCollectionName),
	}
}

// Create inserts a new athlete. The quota check happens in the service layer,
// strictly before this call.
func (r *mongoAthleteRepository) Create(ctx context.Context, athlete *domain.Athlete) (primitive.ObjectID, error) {
	if athlete.CoachID == primitive.NilObjectID || athlete.Name == "" {
		return primitive.NilObjectID, errors.New("athlete requires coachId and name")
	}
	athlete.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	athlete.CreatedAt = now
	athlete.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, athlete)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted athlete ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single athlete by ID.
func (r *mongoAthleteRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Athlete, error) {
	var athlete domain.Athlete
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&athlete)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &athlete, nil
}

// GetByIDs retrieves the athletes present among the given IDs in one query.
// Missing IDs are simply absent from the result.
func (r *mongoAthleteRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Athlete, error) {
	if len(ids) == 0 {
		return []domain.Athlete{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var athletes []domain.Athlete
	if err = cursor.All(ctx, &athletes); err != nil {
		return nil, err
	}
	return athletes, nil
}

// GetByCoachID retrieves all athletes owned by a coach, newest first.
func (r *mongoAthleteRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Athlete, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"coachId": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var athletes []domain.Athlete
	if err = cursor.All(ctx, &athletes); err != nil {
		return nil, err
	}
	return athletes, nil
}

// EnsureAthleteIndexes creates necessary indexes. Call during startup.
func EnsureAthleteIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
