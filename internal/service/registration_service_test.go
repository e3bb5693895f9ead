package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/dto"
	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

const testCourseID = "7f9c3f1e-8f6a-4f5e-b0d0-1a2b3c4d5e6f"

type mockRegistrationRepo struct {
	regs      map[string]models.Registration
	createErr error
	created   *models.Registration
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	if m.createErr != nil {
		return m.createErr
	}
	if reg.ID == "" {
		reg.ID = "new-reg"
	}
	reg.Status = models.RegistrationStatusPending
	if m.regs == nil {
		m.regs = make(map[string]models.Registration)
	}
	m.regs[reg.ID] = *reg
	m.created = reg
	return nil
}

func (m *mockRegistrationRepo) Withdraw(ctx context.Context, id, studentProfileID string) (*models.Registration, error) {
	reg, ok := m.regs[id]
	if !ok || reg.StudentProfileID != studentProfileID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	if reg.Status == models.RegistrationStatusWithdrawn {
		return nil, appErrors.ErrAlreadyWithdrawn
	}
	reg.Status = models.RegistrationStatusWithdrawn
	m.regs[id] = reg
	return &reg, nil
}

func (m *mockRegistrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) (*models.Registration, error) {
	reg, ok := m.regs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	if _, err := models.TransitionDelta(reg.Status, status); err != nil {
		return nil, err
	}
	reg.Status = status
	m.regs[id] = reg
	return &reg, nil
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := m.regs[id]; ok {
		return &reg, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) ListByStudent(ctx context.Context, studentProfileID string) ([]models.RegistrationDetail, error) {
	var list []models.RegistrationDetail
	for _, reg := range m.regs {
		if reg.StudentProfileID == studentProfileID {
			list = append(list, models.RegistrationDetail{Registration: reg})
		}
	}
	return list, nil
}

func (m *mockRegistrationRepo) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	var list []models.RegistrationDetail
	for _, reg := range m.regs {
		list = append(list, models.RegistrationDetail{Registration: reg})
	}
	return list, len(list), nil
}

type mockProfileReader struct {
	profiles map[string]*models.StudentProfile
}

func (m *mockProfileReader) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func newRegistrationService(regs *mockRegistrationRepo, profiles *mockProfileReader) *RegistrationService {
	return NewRegistrationService(regs, profiles, nil, nil, validator.New(), zap.NewNop())
}

func studentProfiles() *mockProfileReader {
	return &mockProfileReader{profiles: map[string]*models.StudentProfile{
		"user-1": {ID: "profile-1", UserID: "user-1", StudentID: "S001"},
	}}
}

func TestRegistrationServiceRegister(t *testing.T) {
	repo := &mockRegistrationRepo{}
	svc := newRegistrationService(repo, studentProfiles())

	reg, err := svc.Register(context.Background(), "user-1", dto.CreateRegistrationRequest{CourseID: testCourseID})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Equal(t, "profile-1", reg.StudentProfileID)
	assert.Equal(t, testCourseID, reg.CourseID)
}

func TestRegistrationServiceRegisterValidatesPayload(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{}, studentProfiles())

	_, err := svc.Register(context.Background(), "user-1", dto.CreateRegistrationRequest{CourseID: "not-a-uuid"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestRegistrationServiceRegisterUnknownProfile(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{}, &mockProfileReader{})

	_, err := svc.Register(context.Background(), "ghost", dto.CreateRegistrationRequest{CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestRegistrationServiceRegisterSurfacesCapacityError(t *testing.T) {
	repo := &mockRegistrationRepo{createErr: appErrors.ErrCapacityExceeded}
	svc := newRegistrationService(repo, studentProfiles())

	_, err := svc.Register(context.Background(), "user-1", dto.CreateRegistrationRequest{CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
}

func TestRegistrationServiceWithdraw(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", StudentProfileID: "profile-1", CourseID: testCourseID, Status: models.RegistrationStatusApproved},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	reg, err := svc.Withdraw(context.Background(), "user-1", "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusWithdrawn, reg.Status)
}

func TestRegistrationServiceWithdrawOtherStudentsRegistration(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-2": {ID: "reg-2", StudentProfileID: "profile-9", Status: models.RegistrationStatusPending},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	_, err := svc.Withdraw(context.Background(), "user-1", "reg-2")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestRegistrationServiceUpdateStatus(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", StudentProfileID: "profile-1", Status: models.RegistrationStatusPending},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	reg, err := svc.UpdateStatus(context.Background(), "reg-1", dto.UpdateRegistrationStatusRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusApproved, reg.Status)
}

func TestRegistrationServiceUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{}, studentProfiles())

	_, err := svc.UpdateStatus(context.Background(), "reg-1", dto.UpdateRegistrationStatusRequest{Status: "frozen"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestRegistrationServiceUpdateStatusTerminal(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", Status: models.RegistrationStatusWithdrawn},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	_, err := svc.UpdateStatus(context.Background(), "reg-1", dto.UpdateRegistrationStatusRequest{Status: "approved"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
}

func TestRegistrationServiceGetEnforcesOwnership(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", StudentProfileID: "profile-1", Status: models.RegistrationStatusPending},
		"reg-2": {ID: "reg-2", StudentProfileID: "profile-9", Status: models.RegistrationStatusPending},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	reg, err := svc.Get(context.Background(), "reg-1", "user-1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "reg-1", reg.ID)

	_, err = svc.Get(context.Background(), "reg-2", "user-1", models.RoleStudent)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	reg, err = svc.Get(context.Background(), "reg-2", "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "reg-2", reg.ID)
}

func TestRegistrationServiceListMine(t *testing.T) {
	repo := &mockRegistrationRepo{regs: map[string]models.Registration{
		"reg-1": {ID: "reg-1", StudentProfileID: "profile-1"},
		"reg-2": {ID: "reg-2", StudentProfileID: "profile-9"},
	}}
	svc := newRegistrationService(repo, studentProfiles())

	regs, err := svc.ListMine(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "reg-1", regs[0].ID)
}

func TestRegistrationServiceListValidatesFilter(t *testing.T) {
	svc := newRegistrationService(&mockRegistrationRepo{}, studentProfiles())

	_, _, err := svc.List(context.Background(), models.RegistrationFilter{Status: "frozen"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, _, err = svc.List(context.Background(), models.RegistrationFilter{Semester: "winter"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
