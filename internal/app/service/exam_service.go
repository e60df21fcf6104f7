package service

import (
	"context"
	"database/sql"
	"log"
	"math"
	"time"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"

	"github.com/google/uuid"
)

// CacheInvalidator lets the exam flow drop derived views that are stale the
// moment an attempt is finalized. May be nil.
type CacheInvalidator interface {
	InvalidateExam(ctx context.Context, examID string)
}

type ExamService struct {
	examRepo       repository.ExamRepository
	submissionRepo repository.SubmissionRepository
	db             *sql.DB // for transactions
	invalidator    CacheInvalidator
	now            func() time.Time
}

func NewExamService(
	examRepo repository.ExamRepository,
	subRepo repository.SubmissionRepository,
	db *sql.DB,
	invalidator CacheInvalidator,
) *ExamService {
	return &ExamService{
		examRepo:       examRepo,
		submissionRepo: subRepo,
		db:             db,
		invalidator:    invalidator,
		now:            time.Now,
	}
}

type ExamChallengeInput struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Points      int    `json:"points" validate:"required,min=1"`
}

type CreateExamRequest struct {
	CourseID        string               `json:"course_id" validate:"required"`
	Title           string               `json:"title" validate:"required,max=200"`
	Description     string               `json:"description"`
	StartTime       time.Time            `json:"start_time" validate:"required"`
	EndTime         time.Time            `json:"end_time" validate:"required"`
	DurationMinutes int                  `json:"duration_minutes" validate:"required,min=1"`
	MaxAttempts     int                  `json:"max_attempts" validate:"required,min=1"`
	PassingScore    *int                 `json:"passing_score,omitempty" validate:"omitempty,min=0,max=100"`
	Challenges      []ExamChallengeInput `json:"challenges" validate:"required,min=1,dive"`
}

func (s *ExamService) CreateExam(ctx context.Context, userID string, req CreateExamRequest) (*model.Exam, error) {
	if err := validate.Struct(req); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, common.Errorf("end_time must be after start_time: %w", common.ErrValidation)
	}

	exam := &model.Exam{
		ID:              uuid.NewString(),
		CourseID:        req.CourseID,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		MaxAttempts:     req.MaxAttempts,
		PassingScore:    req.PassingScore,
		CreatedByID:     userID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.examRepo.CreateExam(ctx, tx, exam); err != nil {
		return nil, common.Errorf("failed to create exam: %w", err)
	}
	for _, c := range req.Challenges {
		assignment := model.ExamChallenge{ExamID: exam.ID, ChallengeID: c.ChallengeID, Points: c.Points}
		if err := s.examRepo.AssignChallenge(ctx, tx, assignment); err != nil {
			return nil, common.Errorf("failed to assign challenge %s: %w", c.ChallengeID, err)
		}
		exam.Challenges = append(exam.Challenges, assignment)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: Exam %s created with %d challenge(s).", exam.ID, len(exam.Challenges))
	return exam, nil
}

func (s *ExamService) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	exam, err := s.examRepo.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	challenges, err := s.examRepo.GetExamChallenges(ctx, examID)
	if err != nil {
		return nil, common.Errorf("failed to load exam challenges: %w", err)
	}
	exam.Challenges = challenges
	return exam, nil
}

// StartAttempt admits a student into an exam. Every policy gate runs before
// any row is written, so a rejection creates nothing.
func (s *ExamService) StartAttempt(ctx context.Context, userID, examID string) (*model.ExamAttempt, error) {
	exam, err := s.examRepo.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !exam.InWindow(now) {
		return nil, common.Errorf("exam %s: %w", examID, common.ErrOutsideWindow)
	}

	enrolled, err := s.examRepo.IsEnrolled(ctx, exam.CourseID, userID)
	if err != nil {
		return nil, common.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, common.Errorf("not enrolled in course %s: %w", exam.CourseID, common.ErrForbidden)
	}

	count, err := s.examRepo.CountAttempts(ctx, examID, userID)
	if err != nil {
		return nil, common.Errorf("failed to count attempts: %w", err)
	}
	if count >= exam.MaxAttempts {
		return nil, common.Errorf("exam %s allows %d attempt(s): %w", examID, exam.MaxAttempts, common.ErrAttemptLimitExceeded)
	}

	attempt := &model.ExamAttempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		State:     model.AttemptStarted,
		StartedAt: now,
	}
	if err := s.examRepo.CreateAttempt(ctx, attempt); err != nil {
		return nil, common.Errorf("failed to create attempt: %w", err)
	}

	log.Printf("INFO: Attempt %s started for exam %s by user %s.", attempt.ID, examID, userID)
	return attempt, nil
}

func (s *ExamService) GetAttempt(ctx context.Context, userID, role, attemptID string) (*model.ExamAttempt, error) {
	attempt, err := s.examRepo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID && !model.CanViewHiddenCases(role) {
		return nil, common.ErrForbidden
	}
	return attempt, nil
}

// SubmitAttempt scores and seals an attempt. The score aggregates the best
// completed submission per assigned challenge: earned points are the
// challenge weight scaled by that best score, and the attempt score is the
// earned share of the total weight on a 0-100 scale. The STARTED ->
// SUBMITTED transition is conditional, so a second submit observes
// ErrAlreadySubmitted rather than rescoring.
func (s *ExamService) SubmitAttempt(ctx context.Context, userID, attemptID string) (*model.ExamAttempt, error) {
	attempt, err := s.examRepo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, common.Errorf("attempt belongs to another user: %w", common.ErrForbidden)
	}
	if attempt.State == model.AttemptSubmitted {
		return nil, common.Errorf("attempt %s: %w", attemptID, common.ErrAlreadySubmitted)
	}

	exam, err := s.examRepo.FindExamByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, common.Errorf("exam not found: %w", err)
	}
	assignments, err := s.examRepo.GetExamChallenges(ctx, exam.ID)
	if err != nil {
		return nil, common.Errorf("failed to load exam challenges: %w", err)
	}
	subs, err := s.submissionRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, common.Errorf("failed to load attempt submissions: %w", err)
	}

	score := ScoreAttempt(assignments, subs)
	passed := exam.IsPassingScore(score)

	ok, err := s.examRepo.FinalizeAttempt(ctx, attemptID, score, passed)
	if err != nil {
		return nil, common.Errorf("failed to finalize attempt: %w", err)
	}
	if !ok {
		return nil, common.Errorf("attempt %s: %w", attemptID, common.ErrAlreadySubmitted)
	}

	log.Printf("INFO: Attempt %s submitted with score %d (passed=%t).", attemptID, score, passed)

	if s.invalidator != nil {
		s.invalidator.InvalidateExam(ctx, exam.ID)
	}

	attempt, err = s.examRepo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// ScoreAttempt is the pure scoring rule shared with tests. Only completed
// submissions count; per challenge the best is max score with min total time
// as the tie-break. Half points round to even.
func ScoreAttempt(assignments []model.ExamChallenge, subs []model.Submission) int {
	type best struct {
		score  int
		timeMs int
		found  bool
	}
	bests := make(map[string]*best, len(assignments))
	for _, a := range assignments {
		bests[a.ChallengeID] = &best{}
	}

	for i := range subs {
		sub := &subs[i]
		if !sub.IsCompleted() {
			continue
		}
		b, ok := bests[sub.ChallengeID]
		if !ok {
			continue // not assigned to this exam
		}
		if !b.found || sub.Score > b.score || (sub.Score == b.score && sub.TimeMsTotal < b.timeMs) {
			b.score = sub.Score
			b.timeMs = sub.TimeMsTotal
			b.found = true
		}
	}

	totalPoints := 0
	earned := 0.0
	for _, a := range assignments {
		totalPoints += a.Points
		if b := bests[a.ChallengeID]; b.found {
			earned += math.RoundToEven(float64(a.Points) * float64(b.score) / 100.0)
		}
	}
	if totalPoints == 0 {
		return 0
	}
	return int(math.RoundToEven(100.0 * earned / float64(totalPoints)))
}

// Results lists all submitted attempts of an exam, instructor side.
func (s *ExamService) Results(ctx context.Context, examID string) ([]model.ExamAttempt, error) {
	if _, err := s.examRepo.FindExamByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.examRepo.ListSubmittedAttempts(ctx, examID)
}
