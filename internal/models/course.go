package models

import "time"

// Semester identifies the offering period within an academic year.
type Semester string

const (
	SemesterFall   Semester = "fall"
	SemesterSpring Semester = "spring"
	SemesterSummer Semester = "summer"
)

// ValidSemester reports whether s is a known semester value.
func ValidSemester(s Semester) bool {
	switch s {
	case SemesterFall, SemesterSpring, SemesterSummer:
		return true
	}
	return false
}

// Course is an offering with a term and enrollment capacity.
// Invariant: 0 <= CurrentEnrollment <= MaxEnrollment whenever observed
// outside an in-flight transaction.
type Course struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Name              string    `db:"name" json:"name"`
	Description       *string   `db:"description" json:"description,omitempty"`
	Credits           int       `db:"credits" json:"credits"`
	Semester          Semester  `db:"semester" json:"semester"`
	Year              int       `db:"year" json:"year"`
	MaxEnrollment     int       `db:"max_enrollment" json:"max_enrollment"`
	CurrentEnrollment int       `db:"current_enrollment" json:"current_enrollment"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// HasCapacity reports whether one more student fits.
func (c *Course) HasCapacity() bool {
	return c.CurrentEnrollment < c.MaxEnrollment
}

// CourseFilter encapsulates search parameters for listing courses.
type CourseFilter struct {
	Semester  Semester
	Year      int
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
