package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	UpdateContact(ctx context.Context, profile *models.StudentProfile) error
}

// ProfileService reads and updates the calling student's profile. Identity
// fields are frozen after registration; only the four contact fields accept
// updates, and each of those distinguishes absent from null.
type ProfileService struct {
	repo      profileRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(repo profileRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns the profile belonging to the given user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// Update applies a partial contact update. Fields absent from the payload
// keep their stored value; explicit nulls clear the column.
func (s *ProfileService) Update(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*models.StudentProfile, error) {
	if req.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable field provided")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Phone.Set {
		profile.Phone = req.Phone.Ptr()
	}
	if req.Address.Set {
		profile.Address = req.Address.Ptr()
	}
	if req.EmergencyContactName.Set {
		profile.EmergencyContactName = req.EmergencyContactName.Ptr()
	}
	if req.EmergencyContactPhone.Set {
		profile.EmergencyContactPhone = req.EmergencyContactPhone.Ptr()
	}

	if err := s.repo.UpdateContact(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}

	if err := s.cache.InvalidateKey(ctx, dashboardCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("student profile updated", zap.String("user_id", userID))
	return profile, nil
}
