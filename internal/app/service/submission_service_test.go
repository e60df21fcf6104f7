package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/platform/config"
)

type stubChallengeRepo struct {
	challenges map[string]*model.Challenge
	testCases  map[string][]model.TestCase
}

func newStubChallengeRepo() *stubChallengeRepo {
	return &stubChallengeRepo{
		challenges: make(map[string]*model.Challenge),
		testCases:  make(map[string][]model.TestCase),
	}
}

func (f *stubChallengeRepo) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	f.challenges[c.ID] = c
	return nil
}
func (f *stubChallengeRepo) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	c, ok := f.challenges[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *c
	return &copied, nil
}
func (f *stubChallengeRepo) ListChallenges(ctx context.Context, status model.ChallengeStatus, limit, offset int) ([]model.Challenge, error) {
	return nil, nil
}
func (f *stubChallengeRepo) UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, id string, status model.ChallengeStatus) error {
	return nil
}
func (f *stubChallengeRepo) AddTestCases(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error {
	f.testCases[challengeID] = append(f.testCases[challengeID], testCases...)
	return nil
}
func (f *stubChallengeRepo) GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error) {
	return f.testCases[challengeID], nil
}
func (f *stubChallengeRepo) CountTestCases(ctx context.Context, challengeID string) (int, error) {
	return len(f.testCases[challengeID]), nil
}

type capturingSubmissionRepo struct {
	fakeSubmissionLister
	created []*model.Submission
}

func (f *capturingSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	copied := *sub
	f.created = append(f.created, &copied)
	return nil
}

type recordingEnqueuer struct {
	langs    map[model.Language]bool
	enqueued []string
}

func (f *recordingEnqueuer) Supports(lang model.Language) bool {
	return f.langs[lang]
}
func (f *recordingEnqueuer) Enqueue(ctx context.Context, submissionID string, lang model.Language) error {
	f.enqueued = append(f.enqueued, submissionID)
	return nil
}

func intakeFixture(t *testing.T) (*SubmissionService, *capturingSubmissionRepo, *stubChallengeRepo, *fakeExamRepo, *recordingEnqueuer) {
	t.Helper()
	config.AppConfig = &config.Config{MaxCodeSizeBytes: 10000}

	subRepo := &capturingSubmissionRepo{}
	chRepo := newStubChallengeRepo()
	examRepo := newFakeExamRepo()
	enq := &recordingEnqueuer{langs: map[model.Language]bool{model.LangPython: true}}

	svc := NewSubmissionService(subRepo, chRepo, examRepo, enq)
	return svc, subRepo, chRepo, examRepo, enq
}

func publishedChallenge(chRepo *stubChallengeRepo, id string) {
	chRepo.challenges[id] = &model.Challenge{ID: id, Status: model.ChallengePublished, TimeLimitMs: 1000, MemoryLimitKb: 65536}
	chRepo.testCases[id] = []model.TestCase{{ID: "tc1", ChallengeID: id, Input: "1", ExpectedOutput: "1"}}
}

func TestCreateSubmissionQueuesRow(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, chRepo, _, enq := intakeFixture(t)
	publishedChallenge(chRepo, "ch1")

	sub, err := svc.CreateSubmission(ctx, "alice", CreateSubmissionRequest{
		ChallengeID: "ch1",
		Language:    "python",
		Code:        "print(1)",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusQueued, sub.Status)
	require.Len(t, subRepo.created, 1)
	assert.Equal(t, model.StatusQueued, subRepo.created[0].Status)
	assert.Equal(t, []string{sub.ID}, enq.enqueued)
}

func TestCreateSubmissionZeroTestCases(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, chRepo, _, enq := intakeFixture(t)

	// Published but without a single test case; intake must refuse before
	// anything is written or queued.
	chRepo.challenges["ch1"] = &model.Challenge{ID: "ch1", Status: model.ChallengePublished}

	_, err := svc.CreateSubmission(ctx, "alice", CreateSubmissionRequest{
		ChallengeID: "ch1",
		Language:    "python",
		Code:        "print(1)",
	})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, subRepo.created)
	assert.Empty(t, enq.enqueued)
}

func TestCreateSubmissionUnsupportedLanguage(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, chRepo, _, enq := intakeFixture(t)
	publishedChallenge(chRepo, "ch1")

	for _, lang := range []string{"java", "brainfuck"} {
		_, err := svc.CreateSubmission(ctx, "alice", CreateSubmissionRequest{
			ChallengeID: "ch1",
			Language:    lang,
			Code:        "x",
		})
		assert.ErrorIs(t, err, common.ErrUnsupportedLanguage, "language %s", lang)
	}
	assert.Empty(t, subRepo.created)
	assert.Empty(t, enq.enqueued)
}

func TestCreateSubmissionCodeSizeCap(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, chRepo, _, _ := intakeFixture(t)
	publishedChallenge(chRepo, "ch1")

	_, err := svc.CreateSubmission(ctx, "alice", CreateSubmissionRequest{
		ChallengeID: "ch1",
		Language:    "python",
		Code:        strings.Repeat("a", config.AppConfig.MaxCodeSizeBytes+1),
	})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, subRepo.created)
}

func TestCreateSubmissionUnpublishedChallenge(t *testing.T) {
	ctx := context.Background()
	svc, subRepo, chRepo, _, _ := intakeFixture(t)
	chRepo.challenges["ch1"] = &model.Challenge{ID: "ch1", Status: model.ChallengeDraft}
	chRepo.testCases["ch1"] = []model.TestCase{{ID: "tc1"}}

	_, err := svc.CreateSubmission(ctx, "alice", CreateSubmissionRequest{
		ChallengeID: "ch1",
		Language:    "python",
		Code:        "x",
	})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, subRepo.created)
}

func TestCreateSubmissionAttemptPolicy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, subRepo, chRepo, examRepo, enq := intakeFixture(t)
	publishedChallenge(chRepo, "ch1")

	examRepo.exams["exam1"] = openExam("exam1", "course1", now)
	examRepo.assignments["exam1"] = []model.ExamChallenge{{ExamID: "exam1", ChallengeID: "ch1", Points: 100}}
	examRepo.attempts["att1"] = &model.ExamAttempt{
		ID: "att1", ExamID: "exam1", UserID: "alice",
		State: model.AttemptStarted, StartedAt: now,
	}
	attemptID := "att1"

	req := CreateSubmissionRequest{
		ChallengeID:   "ch1",
		Language:      "python",
		Code:          "print(1)",
		ExamAttemptID: &attemptID,
	}

	// Inside the attempt's duration the submission is tagged and queued.
	svc.now = func() time.Time { return now.Add(30 * time.Minute) }
	sub, err := svc.CreateSubmission(ctx, "alice", req)
	require.NoError(t, err)
	require.NotNil(t, sub.ExamAttemptID)
	assert.Equal(t, "att1", *sub.ExamAttemptID)

	// One minute past started_at + duration it is refused with no new row.
	svc.now = func() time.Time { return now.Add(61 * time.Minute) }
	_, err = svc.CreateSubmission(ctx, "alice", req)
	assert.ErrorIs(t, err, common.ErrAttemptExpired)
	assert.Len(t, subRepo.created, 1)
	assert.Len(t, enq.enqueued, 1)

	// Someone else's attempt is off limits regardless of timing.
	svc.now = func() time.Time { return now.Add(30 * time.Minute) }
	_, err = svc.CreateSubmission(ctx, "bob", req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// A challenge the exam never assigned cannot be tagged with the attempt.
	publishedChallenge(chRepo, "ch2")
	other := req
	other.ChallengeID = "ch2"
	_, err = svc.CreateSubmission(ctx, "alice", other)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}
