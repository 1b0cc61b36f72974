package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpers_WrapSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{Validationf("session_id is required"), ErrValidation},
		{NotFoundf("session %s", "s-1"), ErrNotFound},
		{Unauthorizedf("actor %s", "rita"), ErrUnauthorized},
		{InvalidTransitionf("%s -> %s", "passed", "fixed"), ErrInvalidTransition},
		{Conflictf("qa_status changed"), ErrConflict},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.want)
		assert.ErrorIs(t, fmt.Errorf("qa: update: %w", tc.err), tc.want)
	}
	assert.Equal(t, "session s-1: not found", NotFoundf("session %s", "s-1").Error())
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&PersistenceError{SessionID: "s-2", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "persist session s-2: disk full", err.Error())

	var pe *PersistenceError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, "s-2", pe.SessionID)
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("503")
	err := &DeliveryError{SessionID: "s-9", Channel: "slack", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "slack")
}
