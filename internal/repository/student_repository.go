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
)

const studentColumns = `id, nisn, full_name, gender, birth_place, birth_date, hamlet, village, district, full_address, phone, religion, sibling_count, child_order, living_status, previous_school, qr_code, admission_type, created_at, updated_at`

// StudentRepository handles the NISN-keyed admission records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student record. ID and QRCode are assigned here.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.QRCode == "" {
		student.QRCode = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, nisn, full_name, gender, birth_place, birth_date, hamlet, village, district, full_address, phone, religion, sibling_count, child_order, living_status, previous_school, qr_code, admission_type, created_at, updated_at)
VALUES (:id, :nisn, :full_name, :gender, :birth_place, :birth_date, :hamlet, :village, :district, :full_address, :phone, :religion, :sibling_count, :child_order, :living_status, :previous_school, :qr_code, :admission_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET nisn = :nisn, full_name = :full_name, gender = :gender, birth_place = :birth_place, birth_date = :birth_date,
hamlet = :hamlet, village = :village, district = :district, full_address = :full_address, phone = :phone, religion = :religion,
sibling_count = :sibling_count, child_order = :child_order, living_status = :living_status, previous_school = :previous_school,
admission_type = :admission_type, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByNISN returns a student by its national student number.
func (r *StudentRepository) FindByNISN(ctx context.Context, nisn string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE nisn = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, nisn); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by nisn: %w", err)
	}
	return &student, nil
}

// FindByQRCode resolves the QR identifier printed on a student card.
func (r *StudentRepository) FindByQRCode(ctx context.Context, qrCode string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE qr_code = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, qrCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by qr code: %w", err)
	}
	return &student, nil
}

// ExistsNISN reports whether a NISN is already registered.
func (r *StudentRepository) ExistsNISN(ctx context.Context, nisn string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM students WHERE nisn = $1)`, nisn); err != nil {
		return false, fmt.Errorf("check nisn exists: %w", err)
	}
	return exists, nil
}

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var conditions []string
	var args []interface{}

	if filter.AdmissionType != "" {
		conditions = append(conditions, fmt.Sprintf("admission_type = $%d", len(args)+1))
		args = append(args, filter.AdmissionType)
	}
	if filter.Gender != "" {
		conditions = append(conditions, fmt.Sprintf("gender = $%d", len(args)+1))
		args = append(args, filter.Gender)
	}
	if filter.Religion != "" {
		conditions = append(conditions, fmt.Sprintf("religion = $%d", len(args)+1))
		args = append(args, filter.Religion)
	}
	if filter.District != "" {
		conditions = append(conditions, fmt.Sprintf("district = $%d", len(args)+1))
		args = append(args, filter.District)
	}
	if filter.PreviousSchool != "" {
		conditions = append(conditions, fmt.Sprintf("previous_school = $%d", len(args)+1))
		args = append(args, filter.PreviousSchool)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR nisn ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"nisn":       "nisn",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, clause, orderBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM students" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student record, used by the CSV export.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}
