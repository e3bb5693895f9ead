package dto

import "github.com/noah-isme/course-reg-api/internal/models"

// DashboardResponse aggregates everything the student landing page needs.
type DashboardResponse struct {
	Profile       *models.StudentProfile      `json:"profile"`
	Registrations []models.RegistrationDetail `json:"registrations"`
	Courses       []models.Course             `json:"courses"`
}
