package service

import (
	"context"
	"log"
	"time"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"
	"codecampus/internal/platform/config"

	"github.com/google/uuid"
)

// Enqueuer is the slice of the dispatcher the intake path needs.
type Enqueuer interface {
	Supports(lang model.Language) bool
	Enqueue(ctx context.Context, submissionID string, lang model.Language) error
}

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	challengeRepo  repository.ChallengeRepository
	examRepo       repository.ExamRepository
	enqueuer       Enqueuer
	now            func() time.Time
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	challengeRepo repository.ChallengeRepository,
	examRepo repository.ExamRepository,
	enqueuer Enqueuer,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		challengeRepo:  challengeRepo,
		examRepo:       examRepo,
		enqueuer:       enqueuer,
		now:            time.Now,
	}
}

type CreateSubmissionRequest struct {
	ChallengeID   string  `json:"challenge_id" validate:"required"`
	Language      string  `json:"language" validate:"required"`
	Code          string  `json:"code" validate:"required"`
	ExamAttemptID *string `json:"exam_attempt_id,omitempty"`
}

// CreateSubmission validates the request synchronously and, only when every
// check passes, persists a QUEUED row and hands it to the dispatcher. A
// rejected submission leaves no partial state behind.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if err := validate.Struct(req); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}
	if len(req.Code) > config.AppConfig.MaxCodeSizeBytes {
		return nil, common.Errorf("code exceeds %d bytes: %w", config.AppConfig.MaxCodeSizeBytes, common.ErrValidation)
	}

	lang := model.Language(req.Language)
	if !lang.Valid() || !s.enqueuer.Supports(lang) {
		return nil, common.Errorf("language %q: %w", req.Language, common.ErrUnsupportedLanguage)
	}

	challenge, err := s.challengeRepo.FindChallengeByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if !challenge.IsPublished() {
		return nil, common.Errorf("challenge is not published: %w", common.ErrForbidden)
	}

	count, err := s.challengeRepo.CountTestCases(ctx, challenge.ID)
	if err != nil {
		return nil, common.Errorf("failed to count test cases: %w", err)
	}
	if count == 0 {
		return nil, common.Errorf("challenge has no test cases: %w", common.ErrValidation)
	}

	if req.ExamAttemptID != nil && *req.ExamAttemptID != "" {
		if err := s.checkAttempt(ctx, userID, *req.ExamAttemptID, challenge.ID); err != nil {
			return nil, err
		}
	} else {
		req.ExamAttemptID = nil
	}

	submission := &model.Submission{
		ID:            uuid.NewString(),
		UserID:        userID,
		ChallengeID:   challenge.ID,
		Language:      lang,
		Code:          req.Code,
		Status:        model.StatusQueued,
		ExamAttemptID: req.ExamAttemptID,
	}

	if err := s.submissionRepo.CreateSubmission(ctx, nil, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	// Enqueue only after the row is persisted so a worker popping
	// immediately can see it.
	if err := s.enqueuer.Enqueue(ctx, submission.ID, lang); err != nil {
		// The row stays QUEUED; a re-enqueue (or operator sweep) can still
		// deliver it.
		log.Printf("ERROR: Submission %s persisted but enqueue failed: %v", submission.ID, err)
		return nil, common.Errorf("failed to enqueue submission: %w", err)
	}

	log.Printf("INFO: Submission %s created for challenge %s (%s).", submission.ID, challenge.ID, lang)
	return submission, nil
}

// checkAttempt enforces the exam tagging policy: the attempt must belong to
// the caller, still be running within its per-student duration, and the
// challenge must be assigned to the exam.
func (s *SubmissionService) checkAttempt(ctx context.Context, userID, attemptID, challengeID string) error {
	attempt, err := s.examRepo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return common.Errorf("exam attempt not found: %w", err)
	}
	if attempt.UserID != userID {
		return common.Errorf("attempt belongs to another user: %w", common.ErrForbidden)
	}

	exam, err := s.examRepo.FindExamByID(ctx, attempt.ExamID)
	if err != nil {
		return common.Errorf("exam not found: %w", err)
	}
	if !attempt.AcceptsSubmissions(s.now(), exam.DurationMinutes) {
		return common.Errorf("attempt %s: %w", attemptID, common.ErrAttemptExpired)
	}

	assignments, err := s.examRepo.GetExamChallenges(ctx, exam.ID)
	if err != nil {
		return common.Errorf("failed to load exam challenges: %w", err)
	}
	for _, a := range assignments {
		if a.ChallengeID == challengeID {
			return nil
		}
	}
	return common.Errorf("challenge is not part of this exam: %w", common.ErrBadRequest)
}

// GetSubmission returns a submission with its case results. Students only
// see their own submissions, and results for hidden test cases come back
// with the actual output and error text blanked out.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && !model.CanViewHiddenCases(role) {
		return nil, common.ErrForbidden
	}

	results, err := s.submissionRepo.GetCaseResults(ctx, submissionID)
	if err != nil {
		return nil, common.Errorf("failed to load case results: %w", err)
	}

	if !model.CanViewHiddenCases(role) {
		testCases, err := s.challengeRepo.GetTestCasesByChallengeID(ctx, sub.ChallengeID)
		if err != nil {
			return nil, common.Errorf("failed to load test cases: %w", err)
		}
		hidden := make(map[string]bool, len(testCases))
		for _, tc := range testCases {
			hidden[tc.ID] = tc.IsHidden
		}
		for i := range results {
			if hidden[results[i].TestCaseID] {
				results[i].ActualOutput = nil
				results[i].ErrorMessage = nil
			}
		}
	}

	sub.CaseResults = results
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID, challengeID string, page, pageSize int) ([]model.Submission, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	subs, err := s.submissionRepo.ListByUserChallenge(ctx, userID, challengeID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	// Code bodies are heavy; the listing view drops them.
	for i := range subs {
		subs[i].Code = ""
	}
	return subs, nil
}
