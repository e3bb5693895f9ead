package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

func TestTransitionDelta(t *testing.T) {
	cases := []struct {
		name      string
		current   RegistrationStatus
		requested RegistrationStatus
		delta     int
		wantErr   bool
	}{
		{name: "pending to approved takes a seat", current: RegistrationStatusPending, requested: RegistrationStatusApproved, delta: 1},
		{name: "rejected to approved takes a seat", current: RegistrationStatusRejected, requested: RegistrationStatusApproved, delta: 1},
		{name: "approved to rejected frees a seat", current: RegistrationStatusApproved, requested: RegistrationStatusRejected, delta: -1},
		{name: "approved to withdrawn frees a seat", current: RegistrationStatusApproved, requested: RegistrationStatusWithdrawn, delta: -1},
		{name: "pending to rejected keeps the counter", current: RegistrationStatusPending, requested: RegistrationStatusRejected, delta: 0},
		{name: "pending to withdrawn keeps the counter", current: RegistrationStatusPending, requested: RegistrationStatusWithdrawn, delta: 0},
		{name: "same status is a no-op", current: RegistrationStatusApproved, requested: RegistrationStatusApproved, delta: 0},
		{name: "withdrawn same status is a no-op", current: RegistrationStatusWithdrawn, requested: RegistrationStatusWithdrawn, delta: 0},
		{name: "withdrawn is terminal", current: RegistrationStatusWithdrawn, requested: RegistrationStatusPending, wantErr: true},
		{name: "withdrawn cannot be approved", current: RegistrationStatusWithdrawn, requested: RegistrationStatusApproved, wantErr: true},
		{name: "rejected to withdrawn is invalid", current: RegistrationStatusRejected, requested: RegistrationStatusWithdrawn, wantErr: true},
		{name: "rejected to pending is invalid", current: RegistrationStatusRejected, requested: RegistrationStatusPending, wantErr: true},
		{name: "approved to pending is invalid", current: RegistrationStatusApproved, requested: RegistrationStatusPending, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delta, err := TransitionDelta(tc.current, tc.requested)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.delta, delta)
		})
	}
}

func TestTransitionRoundTripIsNeutral(t *testing.T) {
	up, err := TransitionDelta(RegistrationStatusPending, RegistrationStatusApproved)
	require.NoError(t, err)
	down, err := TransitionDelta(RegistrationStatusApproved, RegistrationStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, 0, up+down)

	up, err = TransitionDelta(RegistrationStatusRejected, RegistrationStatusApproved)
	require.NoError(t, err)
	down, err = TransitionDelta(RegistrationStatusApproved, RegistrationStatusWithdrawn)
	require.NoError(t, err)
	assert.Equal(t, 0, up+down)
}

func TestCanStudentWithdraw(t *testing.T) {
	assert.True(t, CanStudentWithdraw(RegistrationStatusPending))
	assert.True(t, CanStudentWithdraw(RegistrationStatusApproved))
	assert.False(t, CanStudentWithdraw(RegistrationStatusRejected))
	assert.False(t, CanStudentWithdraw(RegistrationStatusWithdrawn))
}
