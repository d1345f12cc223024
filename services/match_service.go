package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/repositories"
	"github.com/Dosada05/weekly-finals/storage"
)

var allowedProofTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"video/mp4":  true,
}

type MatchService interface {
	ListFinalsMatches(ctx context.Context, phaseID int) ([]models.FinalsMatch, error)
	UploadProof(ctx context.Context, identity models.Identity, matchID int, filename, contentType string, r io.Reader) (*models.MatchUpload, error)
	DeleteProof(ctx context.Context, identity models.Identity, uploadID int) error
}

type matchService struct {
	finalsRepo repositories.FinalsMatchRepository
	uploadRepo repositories.MatchUploadRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

// NewMatchService принимает uploader == nil, если R2 не настроен: загрузки
// тогда отвечают ErrStorageUnavailable.
func NewMatchService(
	finalsRepo repositories.FinalsMatchRepository,
	uploadRepo repositories.MatchUploadRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	if logger == nil {
		logger = discardLogger()
	}
	return &matchService{
		finalsRepo: finalsRepo,
		uploadRepo: uploadRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *matchService) ListFinalsMatches(ctx context.Context, phaseID int) ([]models.FinalsMatch, error) {
	matches, err := s.finalsRepo.ListByPhase(ctx, nil, phaseID)
	if err != nil {
		return nil, handleRepositoryError(err, fmt.Sprintf("finals matches for phase %d", phaseID))
	}
	if matches == nil {
		return []models.FinalsMatch{}, nil
	}
	return matches, nil
}

func (s *matchService) UploadProof(ctx context.Context, identity models.Identity, matchID int, filename, contentType string, r io.Reader) (*models.MatchUpload, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedProofTypes[contentType] {
		return nil, ErrUnsupportedFileType
	}
	if strings.TrimSpace(filename) == "" {
		return nil, validationError(errors.New("file name is required"))
	}

	if _, err := s.finalsRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, handleRepositoryError(err, "failed to load match")
	}

	key := storage.ObjectKey(fmt.Sprintf("matches/%d", matchID), filename)
	res, err := s.uploader.Upload(ctx, key, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload match proof: %w", err)
	}

	upload := &models.MatchUpload{
		MatchID:     matchID,
		UserID:      identity.UserID,
		ObjectKey:   res.Key,
		FileName:    filename,
		ContentType: contentType,
		URL:         s.uploader.GetPublicURL(res.Key),
	}
	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		// Без записи в БД объект никому не виден, удаляем его.
		if delErr := s.uploader.Delete(context.WithoutCancel(ctx), res.Key); delErr != nil {
			s.logger.Error("failed to remove orphaned upload",
				slog.String("key", res.Key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err, "failed to record match proof")
	}

	s.logger.Info("match proof uploaded",
		slog.Int("match_id", matchID), slog.Int("user_id", identity.UserID), slog.String("key", res.Key))
	return upload, nil
}

func (s *matchService) DeleteProof(ctx context.Context, identity models.Identity, uploadID int) error {
	if s.uploader == nil {
		return ErrStorageUnavailable
	}
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return handleRepositoryError(err, "failed to load match proof")
	}
	if upload.UserID != identity.UserID && !identity.HasRole(models.RoleAdmin) {
		return ErrForbiddenOperation
	}

	if err := s.uploader.Delete(ctx, upload.ObjectKey); err != nil {
		return fmt.Errorf("failed to delete match proof object: %w", err)
	}
	if err := s.uploadRepo.Delete(ctx, upload.ID); err != nil {
		return handleRepositoryError(err, "failed to delete match proof")
	}
	return nil
}
