package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users          map[string]*models.User
	usersByEmail   map[string]*models.User
	refreshTokens  map[string]*models.RefreshToken
	auditLogs      []models.AuditLog
	revokedUserIDs []string
	passwordHash   string
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthUserRepo) addUser(user *models.User) {
	m.users[user.ID] = user
	m.usersByEmail[user.Email] = user
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) ExistsEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.usersByEmail[email]
	return ok, nil
}

func (m *mockAuthUserRepo) CreateWithProfile(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	m.addUser(user)
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordHash = passwordHash
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUserIDs = append(m.revokedUserIDs, userID)
	for _, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

type mockAuthProfileRepo struct {
	studentIDs map[string]bool
}

func (m *mockAuthProfileRepo) ExistsStudentID(ctx context.Context, studentID string) (bool, error) {
	return m.studentIDs[studentID], nil
}

func (m *mockAuthProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return nil, sql.ErrNoRows
}

func newAuthService(users *mockAuthUserRepo, profiles *mockAuthProfileRepo) *AuthService {
	if profiles == nil {
		profiles = &mockAuthProfileRepo{}
	}
	return NewAuthService(users, profiles, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "course-reg-api-test",
	})
}

func seedUser(t *testing.T, repo *mockAuthUserRepo, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Email:        "ani@example.com",
		PasswordHash: string(hash),
		FirstName:    "Ani",
		LastName:     "Wijaya",
		Role:         models.RoleStudent,
	}
	repo.addUser(user)
	return user
}

func registerPayload() models.RegisterRequest {
	return models.RegisterRequest{
		Email:       "ani@example.com",
		Password:    "secret123",
		FirstName:   "Ani",
		LastName:    "Wijaya",
		StudentID:   "S2026001",
		DateOfBirth: time.Date(2008, time.March, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestAuthServiceRegister(t *testing.T) {
	users := newMockAuthUserRepo()
	svc := newAuthService(users, nil)

	resp, err := svc.Register(context.Background(), registerPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	_, err := svc.Register(context.Background(), registerPayload())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestAuthServiceRegisterDuplicateStudentID(t *testing.T) {
	users := newMockAuthUserRepo()
	svc := newAuthService(users, &mockAuthProfileRepo{studentIDs: map[string]bool{"S2026001": true}})

	_, err := svc.Register(context.Background(), registerPayload())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestAuthServiceRegisterInvalidPayload(t *testing.T) {
	svc := newAuthService(newMockAuthUserRepo(), nil)

	req := registerPayload()
	req.Email = "not-an-email"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAuthServiceLogin(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Contains(t, users.refreshTokens, resp.RefreshToken)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(newMockAuthUserRepo(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	users := newMockAuthUserRepo()
	user := seedUser(t, users, "secret123")
	users.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "token-1",
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := newAuthService(users, nil)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "secret123"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.False(t, users.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceLogout(t *testing.T) {
	users := newMockAuthUserRepo()
	user := seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID))
	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	users := newMockAuthUserRepo()
	user := seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret456",
	})
	require.NoError(t, err)
	assert.Contains(t, users.revokedUserIDs, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.passwordHash), []byte("newsecret456")))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	users := newMockAuthUserRepo()
	user := seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret456",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Empty(t, users.revokedUserIDs)
}

func TestAuthServiceValidateTokenRejectsForgedSignature(t *testing.T) {
	users := newMockAuthUserRepo()
	seedUser(t, users, "secret123")
	svc := newAuthService(users, nil)
	other := newAuthService(users, nil)
	other.config.AccessTokenSecret = "different-secret"

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "ani@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
