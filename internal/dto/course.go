package dto

// CreateCourseRequest is the admin payload for adding a course offering.
type CreateCourseRequest struct {
	Code          string  `json:"code" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Description   *string `json:"description,omitempty"`
	Credits       int     `json:"credits" validate:"required,gt=0"`
	Semester      string  `json:"semester" validate:"required,oneof=fall spring summer"`
	Year          int     `json:"year" validate:"required,gte=2000"`
	MaxEnrollment int     `json:"max_enrollment" validate:"required,gt=0"`
}

// UpdateCourseRequest is the admin payload for editing a course offering.
// Omitted fields are left unchanged. Enrollment counters are never writable
// through this payload.
type UpdateCourseRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Credits       *int    `json:"credits,omitempty" validate:"omitempty,gt=0"`
	MaxEnrollment *int    `json:"max_enrollment,omitempty" validate:"omitempty,gt=0"`
	IsActive      *bool   `json:"is_active,omitempty"`
}
