package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"codecampus/internal/app/leaderboard"
	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// LeaderboardService serves rankings through a redis read-through cache.
// Entries live at "leaderboard:<type>:<subject id>" and expire after the
// configured TTL, which bounds how stale a served ranking can be. Completion
// and submit events invalidate eagerly so the common case is fresher than
// the bound.
type LeaderboardService struct {
	submissionRepo repository.SubmissionRepository
	examRepo       repository.ExamRepository
	rdb            *redis.Client
	ttl            time.Duration
}

func NewLeaderboardService(
	subRepo repository.SubmissionRepository,
	examRepo repository.ExamRepository,
	rdb *redis.Client,
	ttl time.Duration,
) *LeaderboardService {
	return &LeaderboardService{
		submissionRepo: subRepo,
		examRepo:       examRepo,
		rdb:            rdb,
		ttl:            ttl,
	}
}

func cacheKey(typ model.LeaderboardType, subjectID string) string {
	return "leaderboard:" + string(typ) + ":" + subjectID
}

func (s *LeaderboardService) Get(ctx context.Context, typ model.LeaderboardType, subjectID string) ([]model.LeaderboardEntry, error) {
	if !typ.Valid() {
		return nil, common.Errorf("unknown leaderboard type %q: %w", typ, common.ErrBadRequest)
	}

	key := cacheKey(typ, subjectID)
	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var entries []model.LeaderboardEntry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return entries, nil
		}
		log.Printf("WARN: Dropping unreadable leaderboard cache entry %s.", key)
		s.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		// Cache down is not an outage; fall through to recompute.
		log.Printf("WARN: Leaderboard cache read failed for %s: %v", key, err)
	}

	entries, err := s.compute(ctx, typ, subjectID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(entries); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			log.Printf("WARN: Leaderboard cache write failed for %s: %v", key, err)
		}
	}
	return entries, nil
}

func (s *LeaderboardService) compute(ctx context.Context, typ model.LeaderboardType, subjectID string) ([]model.LeaderboardEntry, error) {
	switch typ {
	case model.LeaderboardChallenge:
		subs, err := s.submissionRepo.ListCompletedByChallenge(ctx, subjectID)
		if err != nil {
			return nil, common.Errorf("failed to load submissions: %w", err)
		}
		return leaderboard.Challenge(subs), nil

	case model.LeaderboardCourse:
		challengeIDs, err := s.examRepo.GetCourseChallengeIDs(ctx, subjectID)
		if err != nil {
			return nil, common.Errorf("failed to load course challenges: %w", err)
		}
		subs, err := s.submissionRepo.ListCompletedByChallenges(ctx, challengeIDs)
		if err != nil {
			return nil, common.Errorf("failed to load submissions: %w", err)
		}
		return leaderboard.Course(challengeIDs, subs), nil

	case model.LeaderboardExam:
		attempts, err := s.examRepo.ListSubmittedAttempts(ctx, subjectID)
		if err != nil {
			return nil, common.Errorf("failed to load attempts: %w", err)
		}
		return leaderboard.Exam(attempts), nil
	}
	return nil, common.Errorf("unknown leaderboard type %q: %w", typ, common.ErrBadRequest)
}

// OnSubmissionCompleted drops the challenge and course views touched by a
// freshly graded submission. Implements the worker's completion hook.
func (s *LeaderboardService) OnSubmissionCompleted(ctx context.Context, sub *model.Submission, challenge *model.Challenge) {
	s.invalidate(ctx, model.LeaderboardChallenge, sub.ChallengeID)
	if challenge != nil && challenge.CourseID != nil {
		s.invalidate(ctx, model.LeaderboardCourse, *challenge.CourseID)
	}
}

// InvalidateExam drops the exam view after an attempt is finalized.
func (s *LeaderboardService) InvalidateExam(ctx context.Context, examID string) {
	s.invalidate(ctx, model.LeaderboardExam, examID)
}

func (s *LeaderboardService) invalidate(ctx context.Context, typ model.LeaderboardType, subjectID string) {
	key := cacheKey(typ, subjectID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("WARN: Failed to invalidate leaderboard cache %s: %v", key, err)
	}
}
