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

const sessionLogCollectionName = "session_logs"

// mongoSessionLogRepository implements repository.SessionLogRepository
type mongoSessionLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionLogRepository creates a new SessionLog repository.
func NewMongoSessionLogRepository(db *mongo.Database) repository.SessionLogRepository {
	return &mongoSessionLogRepository{
		collection: db.Collection(sessionLogCollectionName),
	}
}

// Create inserts a new session log in its pending state.
func (r *mongoSessionLogRepository) Create(ctx context.Context, log *domain.SessionLog) (primitive.ObjectID, error) {
	if log.CoachID == primitive.NilObjectID || log.AthleteID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session log requires coachId and athleteId")
	}
	log.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	if log.LoggedAt.IsZero() {
		log.LoggedAt = now
	}
	if log.GenerationStatus == "" {
		log.GenerationStatus = domain.GenerationPending
	}

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session log ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session log by ID. Soft-deleted logs are treated
// as not found.
func (r *mongoSessionLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionLog, error) {
	var log domain.SessionLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

// GetByIDs retrieves the non-deleted logs present among the given IDs in one
// query. Missing IDs are simply absent from the result.
func (r *mongoSessionLogRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.SessionLog, error) {
	if len(ids) == 0 {
		return []domain.SessionLog{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "deletedAt": nil})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.SessionLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetRecentByAthleteID retrieves the most recent non-deleted logs for an
// athlete, newest first, capped at limit.
func (r *mongoSessionLogRepository) GetRecentByAthleteID(ctx context.Context, athleteID primitive.ObjectID, limit int) ([]domain.SessionLog, error) {
	filter := bson.M{"athleteId": athleteID, "deletedAt": nil}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "loggedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.SessionLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// UpdateGeneration writes the outcome of a generation job. A nil summary or
// empty genErr clears the stored field, so a regenerated log never carries a
// stale summary or error from an earlier attempt. A missing target record is
// reported as ErrNotFound; the caller treats that as fatal.
func (r *mongoSessionLogRepository) UpdateGeneration(ctx context.Context, id primitive.ObjectID, summary *domain.SessionSummaryDocument, status domain.GenerationStatus, genErr string) error {
	set := bson.M{
		"generationStatus": status,
		"updatedAt":        time.Now().UTC(),
	}
	unset := bson.M{}
	if summary != nil {
		set["summary"] = summary
	} else {
		unset["summary"] = ""
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

// SoftDelete marks a log as deleted without removing the record. The filter
// enforces coach ownership.
func (r *mongoSessionLogRepository) SoftDelete(ctx context.Context, id, coachID primitive.ObjectID) error {
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

// EnsureSessionLogIndexes creates necessary indexes. Call during startup.
func EnsureSessionLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "loggedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
