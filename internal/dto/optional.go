package dto

import "encoding/json"

// OptionalString distinguishes an absent JSON field from an explicit null and
// from a value. Absent means "leave unchanged", null means "clear the
// column", a value means "set it".
type OptionalString struct {
	Set   bool
	Valid bool
	Value string
}

// UnmarshalJSON is only invoked when the field is present in the payload, so
// Set is always true here; Valid stays false for an explicit null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Valid = false
		o.Value = ""
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON round-trips the tri-state for responses and tests.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns the value as a nullable pointer: nil when the field carried an
// explicit null. Callers must check Set before applying it.
func (o OptionalString) Ptr() *string {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
