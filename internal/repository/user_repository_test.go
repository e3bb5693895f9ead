package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-reg-api/internal/models"
)

func TestUserFindByEmail(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM users WHERE email = \\$1 LIMIT 1").
		WithArgs("ani@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at"}).
			AddRow("user-1", "ani@example.com", "hash", "Ani", "Wijaya", "student", now, now))

	user, err := repo.FindByEmail(context.Background(), "ani@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserExistsEmailFalse(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateWithProfileIsTransactional(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{Email: "ani@example.com", PasswordHash: "hash", FirstName: "Ani", LastName: "Wijaya", Role: models.RoleStudent}
	profile := &models.StudentProfile{StudentID: "S2026001", DateOfBirth: time.Date(2008, time.March, 14, 0, 0, 0, 0, time.UTC)}
	err := repo.CreateWithProfile(context.Background(), user, profile)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, user.ID, profile.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateWithProfileRollsBackOnProfileFailure(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	user := &models.User{Email: "ani@example.com", PasswordHash: "hash", Role: models.RoleStudent}
	profile := &models.StudentProfile{StudentID: "S2026001"}
	err := repo.CreateWithProfile(context.Background(), user, profile)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateRefreshTokenAssignsID(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(0, 1))

	token := &models.RefreshToken{UserID: "user-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
