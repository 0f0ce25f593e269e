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

const coachCollectionName = "coaches"

// mongoCoachRepository implements repository.CoachRepository
type mongoCoachRepository struct {
	collection *mongo.Collection
}

// NewMongoCoachRepository creates a new Coach repository.
func NewMongoCoachRepository(db *mongo.Database) repository.CoachRepository {
	return &mongoCoachRepository{
		collection: db.Collection(coachCollectionName),
	}
}

// Create inserts a new coach account.
func (r *mongoCoachRepository) Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error) {
	if coach.Email == "" || coach.Name == "" {
		return primitive.NilObjectID, errors.New("coach requires name and email")
	}
	coach.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	coach.CreatedAt = now
	coach.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, coach)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted coach ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves a coach by email address.
func (r *mongoCoachRepository) GetByEmail(ctx context.Context, email string) (*domain.Coach, error) {
	var coach domain.Coach
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&coach)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &coach, nil
}

// GetByID retrieves a single coach by ID.
func (r *mongoCoachRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error) {
	var coach domain.Coach
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&coach)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &coach, nil
}

// GetByIDs retrieves the coaches present among the given IDs. Missing IDs are
// simply absent from the result.
func (r *mongoCoachRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Coach, error) {
	if len(ids) == 0 {
		return []domain.Coach{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var coaches []domain.Coach
	if err = cursor.All(ctx, &coaches); err != nil {
		return nil, err
	}
	return coaches, nil
}

// EnsureCoachIndexes creates necessary indexes. Call during startup.
func EnsureCoachIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
