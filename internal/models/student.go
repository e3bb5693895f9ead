package models

import "time"

// Gender values accepted on student admission records.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Religion values accepted on student admission records.
type Religion string

const (
	ReligionIslam     Religion = "ISLAM"
	ReligionChristian Religion = "KRISTEN"
	ReligionCatholic  Religion = "KATOLIK"
	ReligionHindu     Religion = "HINDU"
	ReligionBuddhist  Religion = "BUDDHA"
	ReligionConfucian Religion = "KONGHUCU"
)

// LivingStatus describes who the student lives with.
type LivingStatus string

const (
	LivingWithParents  LivingStatus = "PARENTS"
	LivingWithGuardian LivingStatus = "GUARDIAN"
	LivingAlone        LivingStatus = "ALONE"
	LivingInBoarding   LivingStatus = "BOARDING_HOUSE"
	LivingInDormitory  LivingStatus = "DORMITORY"
)

// AdmissionType distinguishes new admissions from re-registrations.
type AdmissionType string

const (
	AdmissionNew     AdmissionType = "NEW"
	AdmissionRenewal AdmissionType = "RE_REGISTRATION"
)

// Student is a standalone NISN-keyed admission record. It is unrelated to the
// course-registration tables; the QR code is an opaque server-assigned
// identifier printed on the student card.
type Student struct {
	ID             string        `db:"id" json:"id"`
	NISN           string        `db:"nisn" json:"nisn"`
	FullName       string        `db:"full_name" json:"full_name"`
	Gender         Gender        `db:"gender" json:"gender"`
	BirthPlace     string        `db:"birth_place" json:"birth_place"`
	BirthDate      time.Time     `db:"birth_date" json:"birth_date"`
	Hamlet         string        `db:"hamlet" json:"hamlet"`
	Village        string        `db:"village" json:"village"`
	District       string        `db:"district" json:"district"`
	FullAddress    string        `db:"full_address" json:"full_address"`
	Phone          string        `db:"phone" json:"phone"`
	Religion       Religion      `db:"religion" json:"religion"`
	SiblingCount   int           `db:"sibling_count" json:"sibling_count"`
	ChildOrder     int           `db:"child_order" json:"child_order"`
	LivingStatus   LivingStatus  `db:"living_status" json:"living_status"`
	PreviousSchool string        `db:"previous_school" json:"previous_school"`
	QRCode         string        `db:"qr_code" json:"qr_code"`
	AdmissionType  AdmissionType `db:"admission_type" json:"admission_type"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	AdmissionType  AdmissionType
	Gender         Gender
	Religion       Religion
	District       string
	PreviousSchool string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
