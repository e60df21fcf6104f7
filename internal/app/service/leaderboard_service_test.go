package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
)

type countingSubmissionRepo struct {
	fakeSubmissionLister
	byChallenge map[string][]model.Submission
	computes    int
}

func (f *countingSubmissionRepo) ListCompletedByChallenge(ctx context.Context, challengeID string) ([]model.Submission, error) {
	f.computes++
	return f.byChallenge[challengeID], nil
}

func leaderboardFixture(t *testing.T) (*LeaderboardService, *countingSubmissionRepo, *fakeExamRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	subRepo := &countingSubmissionRepo{byChallenge: make(map[string][]model.Submission)}
	examRepo := newFakeExamRepo()
	return NewLeaderboardService(subRepo, examRepo, rdb, time.Minute), subRepo, examRepo
}

func TestLeaderboardReadThroughCache(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, _ := leaderboardFixture(t)

	subRepo.byChallenge["ch1"] = []model.Submission{
		{UserID: "s1", ChallengeID: "ch1", Status: model.StatusAccepted, Score: 100, TimeMsTotal: 50},
		{UserID: "s2", ChallengeID: "ch1", Status: model.StatusAccepted, Score: 100, TimeMsTotal: 75},
	}

	first, err := svc.Get(ctx, model.LeaderboardChallenge, "ch1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "s1", first[0].UserID)
	assert.Equal(t, 1, subRepo.computes)

	// Second read is served from the cache.
	second, err := svc.Get(ctx, model.LeaderboardChallenge, "ch1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, subRepo.computes)
}

func TestLeaderboardInvalidationTriggersRecompute(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, _ := leaderboardFixture(t)

	subRepo.byChallenge["ch1"] = []model.Submission{
		{UserID: "s1", ChallengeID: "ch1", Status: model.StatusAccepted, Score: 80, TimeMsTotal: 40},
	}
	_, err := svc.Get(ctx, model.LeaderboardChallenge, "ch1")
	require.NoError(t, err)

	// A new completed submission lands and the completion hook fires.
	subRepo.byChallenge["ch1"] = append(subRepo.byChallenge["ch1"],
		model.Submission{UserID: "s2", ChallengeID: "ch1", Status: model.StatusAccepted, Score: 100, TimeMsTotal: 60},
	)
	svc.OnSubmissionCompleted(ctx,
		&model.Submission{ChallengeID: "ch1", UserID: "s2"},
		&model.Challenge{ID: "ch1"},
	)

	entries, err := svc.Get(ctx, model.LeaderboardChallenge, "ch1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "s2", entries[0].UserID)
	assert.Equal(t, 2, subRepo.computes)
}

func TestLeaderboardExamType(t *testing.T) {
	ctx := context.Background()
	svc, _, examRepo := leaderboardFixture(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	submitted := started.Add(25 * time.Minute)
	examRepo.attempts["att1"] = &model.ExamAttempt{
		ID: "att1", ExamID: "exam1", UserID: "s1",
		State: model.AttemptSubmitted, StartedAt: started, SubmittedAt: &submitted, Score: 90,
	}

	entries, err := svc.Get(ctx, model.LeaderboardExam, "exam1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 90, entries[0].Score)
	assert.Equal(t, int((25 * time.Minute).Milliseconds()), entries[0].TimeMs)
}

func TestLeaderboardUnknownType(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := leaderboardFixture(t)

	_, err := svc.Get(ctx, model.LeaderboardType("weekly"), "x")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}
