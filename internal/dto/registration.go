package dto

// CreateRegistrationRequest is the student payload for enrolling in a course.
type CreateRegistrationRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid4"`
}

// UpdateRegistrationStatusRequest is the admin payload for a status decision.
type UpdateRegistrationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected withdrawn"`
}
