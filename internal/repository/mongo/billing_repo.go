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

const billingCollectionName = "coach_billing"

// mongoBillingRepository implements repository.BillingRepository
type mongoBillingRepository struct {
	collection *mongo.Collection
}

// NewMongoBillingRepository creates a new CoachBilling repository.
func NewMongoBillingRepository(db *mongo.Database) repository.BillingRepository {
	return &mongoBillingRepository{
		collection: db.Collection(billingCollectionName),
	}
}

// Create inserts the billing record for a coach. One record per coach.
func (r *mongoBillingRepository) Create(ctx context.Context, billing *domain.CoachBilling) (primitive.ObjectID, error) {
	if billing.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("billing record requires coachId")
	}
	billing.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	billing.CreatedAt = now
	billing.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, billing)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted billing ID")
	}
	return insertedID, nil
}

// GetByCoachID retrieves the billing record for a coach.
func (r *mongoBillingRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) (*domain.CoachBilling, error) {
	var billing domain.CoachBilling
	err := r.collection.FindOne(ctx, bson.M{"coachId": coachID}).Decode(&billing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &billing, nil
}

// IncrementAthleteCount bumps currentAthleteCount iff it is still below the
// stored limit. The guard in the filter keeps the counter invariant intact
// even if two creations race past the application-level check.
func (r *mongoBillingRepository) IncrementAthleteCount(ctx context.Context, coachID primitive.ObjectID) error {
	return r.incrementGuarded(ctx, coachID, "currentAthleteCount", "monthlyAthleteLimit")
}

// IncrementSessionLogCount bumps currentSessionLogCount under the same guard.
func (r *mongoBillingRepository) IncrementSessionLogCount(ctx context.Context, coachID primitive.ObjectID) error {
	return r.incrementGuarded(ctx, coachID, "currentSessionLogCount", "monthlySessionLogLimit")
}

func (r *mongoBillingRepository) incrementGuarded(ctx context.Context, coachID primitive.ObjectID, counterField, limitField string) error {
	filter := bson.M{
		"coachId": coachID,
		"$or": bson.A{
			// Negative limit means the tier is unlimited.
			bson.M{limitField: bson.M{"$lt": 0}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$" + counterField, "$" + limitField}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{counterField: 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either no billing record, or the counter hit its limit.
		exists := r.collection.FindOne(ctx, bson.M{"coachId": coachID})
		if errors.Is(exists.Err(), mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return repository.ErrLimitReached
	}
	return nil
}

// AddAICreditsUsed records generator usage against the coach's credit counter.
func (r *mongoBillingRepository) AddAICreditsUsed(ctx context.Context, coachID primitive.ObjectID, credits int) error {
	update := bson.M{
		"$inc": bson.M{"aiCreditsUsed": credits},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"coachId": coachID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureBillingIndexes creates necessary indexes. Call during startup.
func EnsureBillingIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
