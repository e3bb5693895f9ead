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

type registrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	Withdraw(ctx context.Context, id, studentProfileID string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) (*models.Registration, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	ListByStudent(ctx context.Context, studentProfileID string) ([]models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
}

type registrationProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

// RegistrationService drives the registration lifecycle. All capacity and
// transition rules live in the repository transaction; this layer resolves
// the caller's profile, validates payload shape and keeps the course cache
// and metrics in step with counter changes.
type RegistrationService struct {
	regs      registrationRepository
	profiles  registrationProfileRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(regs registrationRepository, profiles registrationProfileRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{regs: regs, profiles: profiles, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Register enrolls the calling student in a course. The new registration
// starts pending and immediately holds a seat.
func (s *RegistrationService) Register(ctx context.Context, userID string, req dto.CreateRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	profile, err := s.resolveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		StudentProfileID: profile.ID,
		CourseID:         req.CourseID,
	}
	if err := s.regs.Create(ctx, reg); err != nil {
		return nil, s.mapError(err, "failed to create registration")
	}

	s.metrics.RecordRegistrationEvent(reg.Status)
	s.invalidateCatalog(ctx)

	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("student_profile_id", profile.ID),
		zap.String("course_id", reg.CourseID))
	return reg, nil
}

// Withdraw lets the calling student leave a pending or approved
// registration. A registration belonging to another student is reported as
// not found.
func (s *RegistrationService) Withdraw(ctx context.Context, userID, registrationID string) (*models.Registration, error) {
	profile, err := s.resolveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	reg, err := s.regs.Withdraw(ctx, registrationID, profile.ID)
	if err != nil {
		return nil, s.mapError(err, "failed to withdraw registration")
	}

	s.metrics.RecordRegistrationEvent(reg.Status)
	s.invalidateCatalog(ctx)

	s.logger.Info("registration withdrawn",
		zap.String("registration_id", reg.ID),
		zap.String("student_profile_id", profile.ID))
	return reg, nil
}

// UpdateStatus applies an admin decision to a registration.
func (s *RegistrationService) UpdateStatus(ctx context.Context, registrationID string, req dto.UpdateRegistrationStatusRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	status := models.RegistrationStatus(req.Status)
	reg, err := s.regs.UpdateStatus(ctx, registrationID, status)
	if err != nil {
		return nil, s.mapError(err, "failed to update registration status")
	}

	s.metrics.RecordRegistrationEvent(reg.Status)
	s.invalidateCatalog(ctx)

	s.logger.Info("registration status updated",
		zap.String("registration_id", reg.ID),
		zap.String("status", string(reg.Status)))
	return reg, nil
}

// ListMine returns the calling student's registrations with course details.
func (s *RegistrationService) ListMine(ctx context.Context, userID string) ([]models.RegistrationDetail, error) {
	profile, err := s.resolveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	regs, err := s.regs.ListByStudent(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return regs, nil
}

// List returns registrations matching the filter, for admin review.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	if filter.Status != "" && !models.ValidRegistrationStatus(filter.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown registration status")
	}
	if filter.Semester != "" && !models.ValidSemester(filter.Semester) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	regs, total, err := s.regs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return regs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one registration. Students can only see their own.
func (s *RegistrationService) Get(ctx context.Context, registrationID, userID string, role models.UserRole) (*models.Registration, error) {
	reg, err := s.regs.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if role != models.RoleAdmin {
		profile, err := s.resolveProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if reg.StudentProfileID != profile.ID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
	}
	return reg, nil
}

func (s *RegistrationService) resolveProfile(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

func (s *RegistrationService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, courseCachePattern); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.Error(err))
	}
}

func (s *RegistrationService) mapError(err error, fallback string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}
