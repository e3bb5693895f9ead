package models

import (
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

// TransitionDelta validates a registration status transition and returns the
// enrollment counter delta to apply to the course. Requesting the current
// status is a no-op with delta 0. Withdrawn is terminal. A +1 delta still
// requires the caller to hold the course row and verify capacity before
// applying it.
func TransitionDelta(current, requested RegistrationStatus) (int, error) {
	if current == requested {
		return 0, nil
	}
	if current == RegistrationStatusWithdrawn {
		return 0, appErrors.Clone(appErrors.ErrInvalidTransition, "registration is withdrawn and cannot change status")
	}

	switch {
	case requested == RegistrationStatusApproved &&
		(current == RegistrationStatusPending || current == RegistrationStatusRejected):
		return +1, nil
	case current == RegistrationStatusApproved &&
		(requested == RegistrationStatusRejected || requested == RegistrationStatusWithdrawn):
		return -1, nil
	case current == RegistrationStatusPending &&
		(requested == RegistrationStatusRejected || requested == RegistrationStatusWithdrawn):
		return 0, nil
	}

	return 0, appErrors.ErrInvalidTransition
}

// CanStudentWithdraw reports whether a student may withdraw a registration in
// the given status. Students withdraw only from pending or approved; admins
// go through the full transition table instead.
func CanStudentWithdraw(current RegistrationStatus) bool {
	return current == RegistrationStatusPending || current == RegistrationStatusApproved
}
