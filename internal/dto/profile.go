package dto

// UpdateProfileRequest carries a partial update of the mutable contact
// fields. Fields left out of the payload are not touched; explicit nulls
// clear the column. Identity fields are not updatable.
type UpdateProfileRequest struct {
	Phone                 OptionalString `json:"phone"`
	Address               OptionalString `json:"address"`
	EmergencyContactName  OptionalString `json:"emergency_contact_name"`
	EmergencyContactPhone OptionalString `json:"emergency_contact_phone"`
}

// Empty reports whether no field was provided at all.
func (r UpdateProfileRequest) Empty() bool {
	return !r.Phone.Set && !r.Address.Set && !r.EmergencyContactName.Set && !r.EmergencyContactPhone.Set
}
