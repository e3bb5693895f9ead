package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/pkg/database"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

const registrationColumns = `id, student_profile_id, course_id, semester, year, status, registration_date, created_at, updated_at`

// RegistrationRepository owns the registration ledger and the enrollment
// counter bookkeeping that goes with it. Every mutating method runs the
// status change and the counter change in a single transaction with the
// touched rows locked, so no two concurrent callers can push a course past
// its capacity. No other component writes registrations.status or
// courses.current_enrollment.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create validates and inserts a pending registration, incrementing the
// course counter in the same transaction. The course row is locked first so
// the capacity and duplicate checks hold until commit.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.Status = models.RegistrationStatusPending
	reg.RegistrationDate = now
	reg.CreatedAt = now
	reg.UpdatedAt = now

	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var profileExists int
		if err := tx.GetContext(ctx, &profileExists, `SELECT 1 FROM student_profiles WHERE id = $1 LIMIT 1`, reg.StudentProfileID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
			}
			return fmt.Errorf("check student profile: %w", err)
		}

		courseQuery := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1 FOR UPDATE`, courseColumns)
		var course models.Course
		if err := tx.GetContext(ctx, &course, courseQuery, reg.CourseID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return fmt.Errorf("lock course: %w", err)
		}
		if !course.IsActive {
			return appErrors.ErrCourseInactive
		}
		if !course.HasCapacity() {
			return appErrors.ErrCapacityExceeded
		}

		// Term is copied from the course under its lock so the uniqueness
		// tuple stays stable even if the offering is edited later.
		reg.Semester = course.Semester
		reg.Year = course.Year

		var dup int
		err := tx.GetContext(ctx, &dup,
			`SELECT 1 FROM registrations WHERE student_profile_id = $1 AND course_id = $2 AND semester = $3 AND year = $4 LIMIT 1`,
			reg.StudentProfileID, reg.CourseID, reg.Semester, reg.Year)
		if err == nil {
			return appErrors.ErrDuplicateRegistration
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check duplicate registration: %w", err)
		}

		const insertQuery = `INSERT INTO registrations (id, student_profile_id, course_id, semester, year, status, registration_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.ExecContext(ctx, insertQuery,
			reg.ID, reg.StudentProfileID, reg.CourseID, reg.Semester, reg.Year,
			reg.Status, reg.RegistrationDate, reg.CreatedAt, reg.UpdatedAt); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE courses SET current_enrollment = current_enrollment + 1, updated_at = $2 WHERE id = $1`,
			reg.CourseID, now); err != nil {
			return fmt.Errorf("increment enrollment: %w", err)
		}
		return nil
	})
}

// Withdraw marks a registration withdrawn on behalf of its owning student.
// An unknown ID and someone else's registration produce the same not-found
// error so existence is not leaked across students. The course counter drops
// only when the prior status was approved.
func (r *RegistrationRepository) Withdraw(ctx context.Context, id, studentProfileID string) (*models.Registration, error) {
	var reg models.Registration
	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		regQuery := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1 AND student_profile_id = $2 LIMIT 1 FOR UPDATE`, registrationColumns)
		if err := tx.GetContext(ctx, &reg, regQuery, id, studentProfileID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
			}
			return fmt.Errorf("lock registration: %w", err)
		}

		if reg.Status == models.RegistrationStatusWithdrawn {
			return appErrors.ErrAlreadyWithdrawn
		}
		if !models.CanStudentWithdraw(reg.Status) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "only pending or approved registrations can be withdrawn")
		}

		wasApproved := reg.Status == models.RegistrationStatusApproved
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`,
			reg.ID, models.RegistrationStatusWithdrawn, now); err != nil {
			return fmt.Errorf("withdraw registration: %w", err)
		}
		reg.Status = models.RegistrationStatusWithdrawn
		reg.UpdatedAt = now

		if wasApproved {
			if _, err := tx.ExecContext(ctx,
				`UPDATE courses SET current_enrollment = current_enrollment - 1, updated_at = $2 WHERE id = $1`,
				reg.CourseID, now); err != nil {
				return fmt.Errorf("decrement enrollment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpdateStatus applies an admin status change together with the enrollment
// delta dictated by the transition table. Same-status requests are a no-op
// and touch nothing. A +1 delta re-checks capacity under the course lock.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) (*models.Registration, error) {
	var reg models.Registration
	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		regQuery := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1 LIMIT 1 FOR UPDATE`, registrationColumns)
		if err := tx.GetContext(ctx, &reg, regQuery, id); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
			}
			return fmt.Errorf("lock registration: %w", err)
		}

		if reg.Status == status {
			return nil
		}

		delta, err := models.TransitionDelta(reg.Status, status)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if delta != 0 {
			courseQuery := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1 FOR UPDATE`, courseColumns)
			var course models.Course
			if err := tx.GetContext(ctx, &course, courseQuery, reg.CourseID); err != nil {
				if err == sql.ErrNoRows {
					return appErrors.Clone(appErrors.ErrNotFound, "course not found")
				}
				return fmt.Errorf("lock course: %w", err)
			}
			if delta > 0 && !course.HasCapacity() {
				return appErrors.ErrCapacityExceeded
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE courses SET current_enrollment = current_enrollment + $2, updated_at = $3 WHERE id = $1`,
				reg.CourseID, delta, now); err != nil {
				return fmt.Errorf("apply enrollment delta: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`,
			reg.ID, status, now); err != nil {
			return fmt.Errorf("update registration status: %w", err)
		}
		reg.Status = status
		reg.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1 LIMIT 1`, registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration by id: %w", err)
	}
	return &reg, nil
}

// ListByStudent returns a student's registrations with course context.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentProfileID string) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.student_profile_id, r.course_id, r.semester, r.year, r.status, r.registration_date, r.created_at, r.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits AS course_credits
        FROM registrations r
        INNER JOIN courses c ON c.id = r.course_id
        WHERE r.student_profile_id = $1
        ORDER BY r.registration_date DESC`
	var regs []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &regs, query, studentProfileID); err != nil {
		return nil, fmt.Errorf("list student registrations: %w", err)
	}
	return regs, nil
}

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := `FROM registrations r INNER JOIN courses c ON c.id = r.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_profile_id = $%d", len(args)+1))
		args = append(args, filter.StudentProfileID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("r.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("r.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("r.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"registration_date": "r.registration_date",
		"course_code":       "c.code",
		"status":            "r.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.registration_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.student_profile_id, r.course_id, r.semester, r.year, r.status, r.registration_date, r.created_at, r.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits AS course_credits
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var regs []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return regs, total, nil
}
