package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

func dashboardCacheKey(userID string) string {
	return fmt.Sprintf("dashboard:%s", userID)
}

type dashboardCourseRepository interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

// DashboardService aggregates the student landing page: the profile, the
// student's registrations and the active course catalog. The assembled
// payload is cached per user for a short TTL; registration mutations do not
// invalidate it, so a dashboard read can trail a write by up to the TTL.
type DashboardService struct {
	profiles profileRepository
	regs     registrationRepository
	courses  dashboardCourseRepository
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(profiles profileRepository, regs registrationRepository, courses dashboardCourseRepository, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{profiles: profiles, regs: regs, courses: courses, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// Get assembles the dashboard for the given user.
func (s *DashboardService) Get(ctx context.Context, userID string) (*dto.DashboardResponse, error) {
	key := dashboardCacheKey(userID)
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	regs, err := s.regs.ListByStudent(ctx, profile.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}

	courses, err := s.courses.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	resp := &dto.DashboardResponse{
		Profile:       profile,
		Registrations: regs,
		Courses:       courses,
	}

	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.String("user_id", userID), zap.Error(err))
	}
	return resp, nil
}
