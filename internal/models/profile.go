package models

import "time"

// StudentProfile links a user account to its academic identity. Identity
// fields are immutable after creation; only contact fields may change.
type StudentProfile struct {
	ID                    string    `db:"id" json:"id"`
	UserID                string    `db:"user_id" json:"user_id"`
	StudentID             string    `db:"student_id" json:"student_id"`
	DateOfBirth           time.Time `db:"date_of_birth" json:"date_of_birth"`
	Phone                 *string   `db:"phone" json:"phone,omitempty"`
	Address               *string   `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string   `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string   `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
