package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

const courseCachePattern = "courses:*"

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListAvailable(ctx context.Context, semester models.Semester, year int) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) (bool, error)
	Delete(ctx context.Context, id string) error
}

// CourseService serves the course catalog for browsing and administers
// offerings. The available-courses listing is cached; every catalog mutation
// invalidates the whole courses namespace.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns courses matching the filter with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Semester != "" && !models.ValidSemester(filter.Semester) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListAvailable returns active courses with open seats for a term. Results
// are cached per term.
func (s *CourseService) ListAvailable(ctx context.Context, semester models.Semester, year int) ([]models.Course, error) {
	if !models.ValidSemester(semester) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	if year < 2000 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}

	key := fmt.Sprintf("courses:available:%s:%d", semester, year)
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	courses, err := s.repo.ListAvailable(ctx, semester, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available courses")
	}

	if err := s.cache.Set(ctx, key, courses, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache available courses", zap.String("key", key), zap.Error(err))
	}
	return courses, nil
}

// Get returns a single course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course offering with a zeroed enrollment counter.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	taken, err := s.repo.ExistsCode(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}

	course := &models.Course{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Credits:       req.Credits,
		Semester:      models.Semester(req.Semester),
		Year:          req.Year,
		MaxEnrollment: req.MaxEnrollment,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	return course, nil
}

// Update edits an offering. MaxEnrollment can never be lowered below the
// current enrollment; the repository enforces this under the same guard that
// protects the counter.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.MaxEnrollment != nil {
		course.MaxEnrollment = *req.MaxEnrollment
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}

	ok, err := s.repo.Update(ctx, course)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "max enrollment cannot be lower than current enrollment")
	}

	s.invalidateCatalog(ctx)
	return course, nil
}

// Deactivate retires a course from the catalog without touching its
// registrations.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, courseCachePattern); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.Error(err))
	}
}
