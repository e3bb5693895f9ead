package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-reg-api/internal/models"
)

const profileColumns = `id, user_id, student_id, date_of_birth, phone, address, emergency_contact_name, emergency_contact_phone, created_at, updated_at`

// ProfileRepository handles persistence of student profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID returns a student profile by its identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE id = $1 LIMIT 1`, profileColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &profile, nil
}

// FindByUserID returns the profile owned by the given user account.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles WHERE user_id = $1 LIMIT 1`, profileColumns)
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by user id: %w", err)
	}
	return &profile, nil
}

// ExistsStudentID reports whether the student identifier is already taken.
func (r *ProfileRepository) ExistsStudentID(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM student_profiles WHERE student_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student id: %w", err)
	}
	return true, nil
}

// UpdateContact persists the mutable contact fields. Identity fields are
// never written here.
func (r *ProfileRepository) UpdateContact(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_profiles
SET phone = :phone, address = :address, emergency_contact_name = :emergency_contact_name, emergency_contact_phone = :emergency_contact_phone, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update profile contact: %w", err)
	}
	return nil
}
