package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type mockCourseRepo struct {
	courses     map[string]models.Course
	codes       map[string]bool
	updateOK    bool
	created     *models.Course
	deactivated []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) ListAvailable(ctx context.Context, semester models.Semester, year int) ([]models.Course, error) {
	var list []models.Course
	for _, c := range m.courses {
		if c.Semester == semester && c.Year == year && c.IsActive && c.CurrentEnrollment < c.MaxEnrollment {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsCode(ctx context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "new-course"
	}
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	m.courses[course.ID] = *course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) (bool, error) {
	if !m.updateOK {
		return false, nil
	}
	m.courses[course.ID] = *course
	return true, nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func newCourseService(repo *mockCourseRepo) *CourseService {
	return NewCourseService(repo, nil, validator.New(), zap.NewNop(), time.Minute)
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCourseService(repo)

	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code:          "CS101",
		Name:          "Databases",
		Credits:       3,
		Semester:      "fall",
		Year:          2026,
		MaxEnrollment: 30,
	})
	require.NoError(t, err)
	assert.True(t, course.IsActive)
	assert.Equal(t, 0, course.CurrentEnrollment)
	assert.Equal(t, models.SemesterFall, course.Semester)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]bool{"CS101": true}}
	svc := newCourseService(repo)

	_, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code:          "CS101",
		Name:          "Databases",
		Credits:       3,
		Semester:      "fall",
		Year:          2026,
		MaxEnrollment: 30,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestCourseServiceCreateRejectsUnknownSemester(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{})

	_, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code:          "CS101",
		Name:          "Databases",
		Credits:       3,
		Semester:      "winter",
		Year:          2026,
		MaxEnrollment: 30,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCourseServiceUpdateCapacityGuard(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]models.Course{
			"course-1": {ID: "course-1", Code: "CS101", Name: "Databases", MaxEnrollment: 30, CurrentEnrollment: 25, IsActive: true},
		},
		updateOK: false,
	}
	svc := newCourseService(repo)

	lower := 10
	_, err := svc.Update(context.Background(), "course-1", dto.UpdateCourseRequest{MaxEnrollment: &lower})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestCourseServiceUpdate(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]models.Course{
			"course-1": {ID: "course-1", Code: "CS101", Name: "Databases", MaxEnrollment: 30, IsActive: true},
		},
		updateOK: true,
	}
	svc := newCourseService(repo)

	name := "Advanced Databases"
	course, err := svc.Update(context.Background(), "course-1", dto.UpdateCourseRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Databases", course.Name)
	assert.Equal(t, "CS101", course.Code)
}

func TestCourseServiceListAvailableFiltersFullAndInactive(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"open":     {ID: "open", Semester: models.SemesterFall, Year: 2026, IsActive: true, MaxEnrollment: 30, CurrentEnrollment: 5},
		"full":     {ID: "full", Semester: models.SemesterFall, Year: 2026, IsActive: true, MaxEnrollment: 30, CurrentEnrollment: 30},
		"inactive": {ID: "inactive", Semester: models.SemesterFall, Year: 2026, IsActive: false, MaxEnrollment: 30, CurrentEnrollment: 0},
	}}
	svc := newCourseService(repo)

	courses, err := svc.ListAvailable(context.Background(), models.SemesterFall, 2026)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "open", courses[0].ID)
}

func TestCourseServiceListAvailableRejectsUnknownSemester(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{})

	_, err := svc.ListAvailable(context.Background(), "winter", 2026)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestCourseServiceDeactivate(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {ID: "course-1", IsActive: true},
	}}
	svc := newCourseService(repo)

	require.NoError(t, svc.Deactivate(context.Background(), "course-1"))
	assert.Equal(t, []string{"course-1"}, repo.deactivated)
}
