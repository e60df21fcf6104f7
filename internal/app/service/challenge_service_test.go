package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecampus/internal/domain/model"
)

func TestRedactTestCases(t *testing.T) {
	testCases := []model.TestCase{
		{ID: "tc1", Input: "1 2", ExpectedOutput: "3", IsHidden: false},
		{ID: "tc2", Input: "9 9", ExpectedOutput: "18", IsHidden: true},
	}

	t.Run("student loses hidden payloads", func(t *testing.T) {
		redacted := RedactTestCases(testCases, model.RoleStudent)
		require.Len(t, redacted, 2)

		assert.Equal(t, "1 2", redacted[0].Input)
		assert.Equal(t, "3", redacted[0].ExpectedOutput)

		// The hidden case keeps its identity but not its contents.
		assert.Equal(t, "tc2", redacted[1].ID)
		assert.True(t, redacted[1].IsHidden)
		assert.Empty(t, redacted[1].Input)
		assert.Empty(t, redacted[1].ExpectedOutput)
	})

	t.Run("instructor and admin see everything", func(t *testing.T) {
		for _, role := range []string{model.RoleInstructor, model.RoleAdmin} {
			redacted := RedactTestCases(testCases, role)
			require.Len(t, redacted, 2)
			assert.Equal(t, "9 9", redacted[1].Input)
			assert.Equal(t, "18", redacted[1].ExpectedOutput)
		}
	})

	t.Run("source rows are untouched", func(t *testing.T) {
		RedactTestCases(testCases, model.RoleStudent)
		assert.Equal(t, "9 9", testCases[1].Input)
	})
}
