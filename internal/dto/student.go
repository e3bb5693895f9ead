package dto

import (
	"time"

	"github.com/noah-isme/course-reg-api/internal/models"
)

// CreateStudentRequest registers a new NISN admission record.
type CreateStudentRequest struct {
	NISN           string               `json:"nisn" validate:"required,len=10,numeric"`
	FullName       string               `json:"full_name" validate:"required"`
	Gender         models.Gender        `json:"gender" validate:"required,oneof=MALE FEMALE"`
	BirthPlace     string               `json:"birth_place" validate:"required"`
	BirthDate      time.Time            `json:"birth_date" validate:"required"`
	Hamlet         string               `json:"hamlet" validate:"required"`
	Village        string               `json:"village" validate:"required"`
	District       string               `json:"district" validate:"required"`
	FullAddress    string               `json:"full_address" validate:"required"`
	Phone          string               `json:"phone" validate:"required,min=10"`
	Religion       models.Religion      `json:"religion" validate:"required"`
	SiblingCount   int                  `json:"sibling_count" validate:"gte=0"`
	ChildOrder     int                  `json:"child_order" validate:"gte=1"`
	LivingStatus   models.LivingStatus  `json:"living_status" validate:"required"`
	PreviousSchool string               `json:"previous_school" validate:"required"`
	AdmissionType  models.AdmissionType `json:"admission_type" validate:"required,oneof=NEW RE_REGISTRATION"`
}

// UpdateStudentRequest carries a partial update; nil fields stay unchanged.
type UpdateStudentRequest struct {
	NISN           *string               `json:"nisn,omitempty" validate:"omitempty,len=10,numeric"`
	FullName       *string               `json:"full_name,omitempty"`
	Gender         *models.Gender        `json:"gender,omitempty"`
	BirthPlace     *string               `json:"birth_place,omitempty"`
	BirthDate      *time.Time            `json:"birth_date,omitempty"`
	Hamlet         *string               `json:"hamlet,omitempty"`
	Village        *string               `json:"village,omitempty"`
	District       *string               `json:"district,omitempty"`
	FullAddress    *string               `json:"full_address,omitempty"`
	Phone          *string               `json:"phone,omitempty" validate:"omitempty,min=10"`
	Religion       *models.Religion      `json:"religion,omitempty"`
	SiblingCount   *int                  `json:"sibling_count,omitempty" validate:"omitempty,gte=0"`
	ChildOrder     *int                  `json:"child_order,omitempty" validate:"omitempty,gte=1"`
	LivingStatus   *models.LivingStatus  `json:"living_status,omitempty"`
	PreviousSchool *string               `json:"previous_school,omitempty"`
	AdmissionType  *models.AdmissionType `json:"admission_type,omitempty" validate:"omitempty,oneof=NEW RE_REGISTRATION"`
}

// StudentCardResponse returns the printable card payload together with a
// signed PDF download link.
type StudentCardResponse struct {
	StudentID   string    `json:"student_id"`
	NISN        string    `json:"nisn"`
	FullName    string    `json:"full_name"`
	BirthPlace  string    `json:"birth_place"`
	BirthDate   time.Time `json:"birth_date"`
	FullAddress string    `json:"full_address"`
	QRCode      string    `json:"qr_code"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
