package service

import (
	"context"
	"database/sql"
	"log"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"
	"codecampus/internal/platform/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	db            *sql.DB // for transactions
}

func NewChallengeService(challengeRepo repository.ChallengeRepository, db *sql.DB) *ChallengeService {
	return &ChallengeService{challengeRepo: challengeRepo, db: db}
}

type TestCaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output" validate:"required"`
	IsHidden       bool   `json:"is_hidden"`
}

type CreateChallengeRequest struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"required"`
	Difficulty    string          `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	CourseID      *string         `json:"course_id,omitempty"`
	TimeLimitMs   int             `json:"time_limit_ms" validate:"omitempty,min=100,max=60000"`
	MemoryLimitKb int             `json:"memory_limit_kb" validate:"omitempty,min=1024"`
	TestCases     []TestCaseInput `json:"test_cases" validate:"dive"`
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, userID string, req CreateChallengeRequest) (*model.Challenge, error) {
	if err := validate.Struct(req); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}

	timeLimit := req.TimeLimitMs
	if timeLimit == 0 {
		timeLimit = config.AppConfig.DefaultTimeLimitMs
	}
	memoryLimit := req.MemoryLimitKb
	if memoryLimit == 0 {
		memoryLimit = config.AppConfig.DefaultMemoryLimitKb
	}

	challenge := &model.Challenge{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Slug:          slug.Make(req.Title),
		Description:   req.Description,
		Difficulty:    model.ChallengeDifficulty(req.Difficulty),
		Status:        model.ChallengeDraft, // publish is a separate, guarded step
		CourseID:      req.CourseID,
		TimeLimitMs:   timeLimit,
		MemoryLimitKb: memoryLimit,
		CreatedByID:   userID,
	}

	testCases := buildTestCases(challenge.ID, req.TestCases)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.challengeRepo.CreateChallenge(ctx, tx, challenge); err != nil {
		return nil, common.Errorf("failed to create challenge: %w", err)
	}
	if len(testCases) > 0 {
		if err := s.challengeRepo.AddTestCases(ctx, tx, challenge.ID, testCases); err != nil {
			return nil, common.Errorf("failed to add test cases: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: Challenge %s (%s) created with %d test case(s).", challenge.ID, challenge.Slug, len(testCases))
	challenge.TestCases = testCases
	return challenge, nil
}

func (s *ChallengeService) AddTestCases(ctx context.Context, challengeID string, inputs []TestCaseInput) ([]model.TestCase, error) {
	if len(inputs) == 0 {
		return nil, common.Errorf("no test cases given: %w", common.ErrBadRequest)
	}
	for _, in := range inputs {
		if in.ExpectedOutput == "" {
			return nil, common.Errorf("test case expected_output is required: %w", common.ErrValidation)
		}
	}

	if _, err := s.challengeRepo.FindChallengeByID(ctx, challengeID); err != nil {
		return nil, err
	}

	existing, err := s.challengeRepo.CountTestCases(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("failed to count test cases: %w", err)
	}

	testCases := buildTestCases(challengeID, inputs)
	for i := range testCases {
		testCases[i].OrderIndex = existing + i
	}
	if err := s.challengeRepo.AddTestCases(ctx, nil, challengeID, testCases); err != nil {
		return nil, common.Errorf("failed to add test cases: %w", err)
	}
	return testCases, nil
}

// Publish moves a draft challenge to published. A challenge without test
// cases can never be published since it would be ungradeable.
func (s *ChallengeService) Publish(ctx context.Context, challengeID string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.IsPublished() {
		return challenge, nil
	}

	count, err := s.challengeRepo.CountTestCases(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("failed to count test cases: %w", err)
	}
	if count == 0 {
		return nil, common.Errorf("challenge has no test cases: %w", common.ErrValidation)
	}

	if err := s.challengeRepo.UpdateChallengeStatus(ctx, nil, challengeID, model.ChallengePublished); err != nil {
		return nil, common.Errorf("failed to publish challenge: %w", err)
	}
	challenge.Status = model.ChallengePublished
	return challenge, nil
}

func (s *ChallengeService) Archive(ctx context.Context, challengeID string) error {
	if _, err := s.challengeRepo.FindChallengeByID(ctx, challengeID); err != nil {
		return err
	}
	return s.challengeRepo.UpdateChallengeStatus(ctx, nil, challengeID, model.ChallengeArchived)
}

func (s *ChallengeService) ListPublished(ctx context.Context, page, pageSize int) ([]model.Challenge, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.challengeRepo.ListChallenges(ctx, model.ChallengePublished, pageSize, (page-1)*pageSize)
}

// GetChallenge returns a challenge with its test cases, redacted for the
// caller's role: students see hidden cases only as placeholders with the
// input and expected output blanked out.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID, role string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsPublished() && !model.CanViewHiddenCases(role) {
		return nil, common.ErrNotFound // drafts do not exist for students
	}

	testCases, err := s.challengeRepo.GetTestCasesByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}
	challenge.TestCases = RedactTestCases(testCases, role)
	return challenge, nil
}

// RedactTestCases applies the visibility filter at serialization time. The
// stored rows are never forked per audience; hidden cases keep their id and
// flag but lose input and expected output for non-privileged roles.
func RedactTestCases(testCases []model.TestCase, role string) []model.TestCase {
	if model.CanViewHiddenCases(role) {
		return testCases
	}
	out := make([]model.TestCase, 0, len(testCases))
	for _, tc := range testCases {
		if tc.IsHidden {
			tc.Input = ""
			tc.ExpectedOutput = ""
		}
		out = append(out, tc)
	}
	return out
}

func buildTestCases(challengeID string, inputs []TestCaseInput) []model.TestCase {
	testCases := make([]model.TestCase, 0, len(inputs))
	for i, in := range inputs {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			ChallengeID:    challengeID,
			Input:          in.Input,
			ExpectedOutput: in.ExpectedOutput,
			IsHidden:       in.IsHidden,
			OrderIndex:     i,
		})
	}
	return testCases
}
