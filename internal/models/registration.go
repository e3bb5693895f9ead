package models

import "time"

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusApproved  RegistrationStatus = "approved"
	RegistrationStatusRejected  RegistrationStatus = "rejected"
	RegistrationStatusWithdrawn RegistrationStatus = "withdrawn"
)

// ValidRegistrationStatus reports whether s is a known status value.
func ValidRegistrationStatus(s RegistrationStatus) bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved,
		RegistrationStatusRejected, RegistrationStatusWithdrawn:
		return true
	}
	return false
}

// Registration captures a student's attempt to enroll in a course for a term.
// Semester and Year are copied from the course at creation time and stay
// authoritative for the uniqueness check even if the course term is edited
// later.
type Registration struct {
	ID               string             `db:"id" json:"id"`
	StudentProfileID string             `db:"student_profile_id" json:"student_profile_id"`
	CourseID         string             `db:"course_id" json:"course_id"`
	Semester         Semester           `db:"semester" json:"semester"`
	Year             int                `db:"year" json:"year"`
	Status           RegistrationStatus `db:"status" json:"status"`
	RegistrationDate time.Time          `db:"registration_date" json:"registration_date"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationDetail enriches Registration with course info for listings.
type RegistrationDetail struct {
	Registration
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	CourseCredits int    `db:"course_credits" json:"course_credits"`
}

// RegistrationFilter provides filters for listing registrations.
type RegistrationFilter struct {
	StudentProfileID string
	CourseID         string
	Semester         Semester
	Year             int
	Status           RegistrationStatus
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}
