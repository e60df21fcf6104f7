package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())

	for _, s := range []SubmissionStatus{StatusAccepted, StatusWrongAnswer, StatusRuntimeError, StatusTimeLimitExceeded, StatusError} {
		assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
	}
}

func TestSubmissionStatusTransitions(t *testing.T) {
	terminals := []SubmissionStatus{StatusAccepted, StatusWrongAnswer, StatusRuntimeError, StatusTimeLimitExceeded, StatusError}

	// QUEUED only moves to RUNNING.
	assert.True(t, StatusQueued.CanTransitionTo(StatusRunning))
	for _, term := range terminals {
		assert.False(t, StatusQueued.CanTransitionTo(term), "QUEUED must not jump straight to %s", term)
	}

	// RUNNING moves to any terminal, never back.
	for _, term := range terminals {
		assert.True(t, StatusRunning.CanTransitionTo(term))
	}
	assert.False(t, StatusRunning.CanTransitionTo(StatusQueued))

	// Terminal states never move again.
	all := append([]SubmissionStatus{StatusQueued, StatusRunning}, terminals...)
	for _, term := range terminals {
		for _, next := range all {
			assert.False(t, term.CanTransitionTo(next), "%s -> %s must be illegal", term, next)
		}
	}
}
