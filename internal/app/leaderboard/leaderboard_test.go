package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecampus/internal/domain/model"
)

func completed(user, challenge string, score, timeMs int) model.Submission {
	return model.Submission{
		UserID:      user,
		ChallengeID: challenge,
		Status:      model.StatusAccepted,
		Score:       score,
		TimeMsTotal: timeMs,
	}
}

func TestChallengeRanking(t *testing.T) {
	subs := []model.Submission{
		completed("s3", "ch1", 66, 100),
		completed("s1", "ch1", 100, 50),
		completed("s2", "ch1", 100, 75),
	}

	entries := Challenge(subs)

	require.Len(t, entries, 3)
	assert.Equal(t, "s1", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "s2", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "s3", entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestChallengeBestSubmissionPerUser(t *testing.T) {
	subs := []model.Submission{
		completed("s1", "ch1", 60, 30),
		completed("s1", "ch1", 100, 90),
		completed("s1", "ch1", 100, 40), // same score, faster
	}

	entries := Challenge(subs)

	require.Len(t, entries, 1)
	assert.Equal(t, 100, entries[0].Score)
	assert.Equal(t, 40, entries[0].TimeMs)
}

func TestChallengeIgnoresIncomplete(t *testing.T) {
	subs := []model.Submission{
		{UserID: "s1", ChallengeID: "ch1", Status: model.StatusQueued, Score: 0},
		{UserID: "s2", ChallengeID: "ch1", Status: model.StatusRunning, Score: 0},
		completed("s3", "ch1", 50, 10),
	}

	entries := Challenge(subs)

	require.Len(t, entries, 1)
	assert.Equal(t, "s3", entries[0].UserID)
}

func TestChallengeIdempotent(t *testing.T) {
	subs := []model.Submission{
		completed("s1", "ch1", 100, 50),
		completed("s2", "ch1", 100, 50), // full tie, user id decides
	}

	first := Challenge(subs)
	second := Challenge(subs)

	assert.Equal(t, first, second)
	assert.Equal(t, "s1", first[0].UserID)
	assert.Equal(t, "s2", first[1].UserID)
}

func TestCourseAggregation(t *testing.T) {
	challengeIDs := []string{"ch1", "ch2"}
	subs := []model.Submission{
		completed("s1", "ch1", 100, 40),
		completed("s1", "ch2", 80, 60),
		completed("s2", "ch1", 100, 20),
		completed("s2", "other", 100, 5), // not part of the course
	}

	entries := Course(challengeIDs, subs)

	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].UserID)
	assert.Equal(t, 180, entries[0].Score)
	assert.Equal(t, 100, entries[0].TimeMs)
	assert.Equal(t, 2, entries[0].ChallengesCompleted)

	assert.Equal(t, "s2", entries[1].UserID)
	assert.Equal(t, 100, entries[1].Score)
	assert.Equal(t, 1, entries[1].ChallengesCompleted)
}

func TestExamRanking(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fast := started.Add(20 * time.Minute)
	slow := started.Add(40 * time.Minute)

	attempts := []model.ExamAttempt{
		{UserID: "s1", State: model.AttemptSubmitted, StartedAt: started, SubmittedAt: &slow, Score: 90},
		{UserID: "s2", State: model.AttemptSubmitted, StartedAt: started, SubmittedAt: &fast, Score: 90},
		{UserID: "s3", State: model.AttemptStarted, StartedAt: started, Score: 100}, // in progress, excluded
	}

	entries := Exam(attempts)

	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].UserID)
	assert.Equal(t, int((20 * time.Minute).Milliseconds()), entries[0].TimeMs)
	assert.Equal(t, "s1", entries[1].UserID)
}
