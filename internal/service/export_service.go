package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"peakform/coaching-app/internal/repository"
	"peakform/coaching-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrExportFailed = errors.New("failed to export plan document")

// ExportService writes a completed plan document to object storage and hands
// back a temporary download URL.
type ExportService interface {
	ExportPlanDocument(ctx context.Context, coachID, planID primitive.ObjectID) (string, error)
}

type exportService struct {
	planRepo    repository.TrainingPlanRepository
	fileStorage storage.FileStorage
}

// NewExportService creates a new instance of exportService.
func NewExportService(planRepo repository.TrainingPlanRepository, fileStorage storage.FileStorage) ExportService {
	return &exportService{
		planRepo:    planRepo,
		fileStorage: fileStorage,
	}
}

// ExportPlanDocument uploads the plan's generated document as JSON and
// returns a presigned download URL. Only completed plans can be exported.
func (s *exportService) ExportPlanDocument(ctx context.Context, coachID, planID primitive.ObjectID) (string, error) {
	if coachID == primitive.NilObjectID {
		return "", ErrUnauthenticated
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrPlanNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if plan.CoachID != coachID {
		return "", ErrPlanNotFound
	}
	if plan.Document == nil {
		return "", ErrPlanNotGenerated
	}

	body, err := json.MarshalIndent(plan.Document, "", "  ")
	if err != nil {
		return "", ErrExportFailed
	}

	objectKey := path.Join("exports", coachID.Hex(), planID.Hex(), fmt.Sprintf("%s.json", uuid.NewString()))
	if err := s.fileStorage.PutObject(ctx, objectKey, "application/json", body); err != nil {
		return "", ErrExportFailed
	}

	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrExportFailed
	}
	return downloadURL, nil
}
