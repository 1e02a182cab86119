package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmacore/internal/core/apperror"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusProcessed, false},
		{StatusPending, StatusCompleted, false},

		{StatusApproved, StatusProcessed, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusCompleted, false},
		{StatusApproved, StatusPending, false},

		{StatusProcessed, StatusCompleted, true},
		{StatusProcessed, StatusRejected, true},
		{StatusProcessed, StatusApproved, false},

		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition(t *testing.T) {
	t.Run("valid edge", func(t *testing.T) {
		assert.NoError(t, Transition(StatusProcessed, StatusCompleted))
	})

	t.Run("invalid edge carries both states", func(t *testing.T) {
		err := Transition(StatusPending, StatusCompleted)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

		appErr, ok := apperror.AsAppError(err)
		assert.True(t, ok)
		assert.Equal(t, "pending", appErr.Details["from"])
		assert.Equal(t, "completed", appErr.Details["to"])
	})

	t.Run("completed to completed is tolerated", func(t *testing.T) {
		assert.NoError(t, Transition(StatusCompleted, StatusCompleted))
	})

	t.Run("other self-edges are invalid", func(t *testing.T) {
		assert.Error(t, Transition(StatusPending, StatusPending))
		assert.Error(t, Transition(StatusRejected, StatusRejected))
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status("draft").IsValid())

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusProcessed.IsTerminal())
}
