package worker

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecampus/internal/app/dispatch"
	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/platform/sandbox"
)

type memSubmissionRepo struct {
	mu          sync.Mutex
	subs        map[string]*model.Submission
	caseResults map[string][]model.CaseResult
	finalized   int
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{
		subs:        make(map[string]*model.Submission),
		caseResults: make(map[string][]model.CaseResult),
	}
}

func (f *memSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = sub
	return nil
}
func (f *memSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}
func (f *memSubmissionRepo) Claim(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok || sub.Status != model.StatusQueued {
		return false, nil
	}
	sub.Status = model.StatusRunning
	return true, nil
}
func (f *memSubmissionRepo) Finalize(ctx context.Context, tx *sql.Tx, id string, status model.SubmissionStatus, score, timeMsTotal int, diagnostic *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok || sub.Status != model.StatusRunning {
		return false, nil
	}
	sub.Status = status
	sub.Score = score
	sub.TimeMsTotal = timeMsTotal
	sub.Diagnostic = diagnostic
	f.finalized++
	return true, nil
}
func (f *memSubmissionRepo) CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cr := range results {
		f.caseResults[cr.SubmissionID] = append(f.caseResults[cr.SubmissionID], cr)
	}
	return nil
}
func (f *memSubmissionRepo) GetCaseResults(ctx context.Context, id string) ([]model.CaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caseResults[id], nil
}
func (f *memSubmissionRepo) ListCompletedByChallenge(ctx context.Context, challengeID string) ([]model.Submission, error) {
	return nil, nil
}
func (f *memSubmissionRepo) ListCompletedByChallenges(ctx context.Context, challengeIDs []string) ([]model.Submission, error) {
	return nil, nil
}
func (f *memSubmissionRepo) ListByAttempt(ctx context.Context, attemptID string) ([]model.Submission, error) {
	return nil, nil
}
func (f *memSubmissionRepo) ListByUserChallenge(ctx context.Context, userID, challengeID string, limit, offset int) ([]model.Submission, error) {
	return nil, nil
}

type memChallengeRepo struct {
	challenges map[string]*model.Challenge
	testCases  map[string][]model.TestCase
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{
		challenges: make(map[string]*model.Challenge),
		testCases:  make(map[string][]model.TestCase),
	}
}

func (f *memChallengeRepo) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	f.challenges[c.ID] = c
	return nil
}
func (f *memChallengeRepo) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	c, ok := f.challenges[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *c
	return &copied, nil
}
func (f *memChallengeRepo) ListChallenges(ctx context.Context, status model.ChallengeStatus, limit, offset int) ([]model.Challenge, error) {
	return nil, nil
}
func (f *memChallengeRepo) UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, id string, status model.ChallengeStatus) error {
	return nil
}
func (f *memChallengeRepo) AddTestCases(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error {
	f.testCases[challengeID] = append(f.testCases[challengeID], testCases...)
	return nil
}
func (f *memChallengeRepo) GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error) {
	return f.testCases[challengeID], nil
}
func (f *memChallengeRepo) CountTestCases(ctx context.Context, challengeID string) (int, error) {
	return len(f.testCases[challengeID]), nil
}

// echoRunner returns the stdin as stdout, which makes "echo" test cases
// pass and anything else fail.
type echoRunner struct{}

func (echoRunner) Compile(ctx context.Context, req sandbox.CompileRequest) (*sandbox.CompileResult, error) {
	return &sandbox.CompileResult{OK: true, ArtifactID: "artifact"}, nil
}
func (echoRunner) Run(ctx context.Context, req sandbox.RunRequest) (*sandbox.RunResult, error) {
	return &sandbox.RunResult{Stdout: req.Stdin, TimeMs: 7}, nil
}

type downRunner struct{ calls int }

func (r *downRunner) Compile(ctx context.Context, req sandbox.CompileRequest) (*sandbox.CompileResult, error) {
	r.calls++
	return nil, errors.New("connection refused")
}
func (r *downRunner) Run(ctx context.Context, req sandbox.RunRequest) (*sandbox.RunResult, error) {
	r.calls++
	return nil, errors.New("connection refused")
}

func poolFixture(t *testing.T, runner sandbox.Runner) (*Pool, *memSubmissionRepo, *memChallengeRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	subRepo := newMemSubmissionRepo()
	chRepo := newMemChallengeRepo()
	d := dispatch.NewDispatcher(rdb, subRepo, "submission_queue", time.Hour, []model.Language{model.LangPython})

	executor := &interpretedExecutor{lang: model.LangPython, runner: runner}
	pool := NewPool(model.LangPython, 2, rdb, d, executor, subRepo, chRepo, 2, time.Millisecond, nil)
	return pool, subRepo, chRepo
}

func seedChallenge(chRepo *memChallengeRepo) {
	chRepo.challenges["ch1"] = &model.Challenge{ID: "ch1", TimeLimitMs: 1000, MemoryLimitKb: 65536}
	chRepo.testCases["ch1"] = []model.TestCase{
		{ID: "tc1", ChallengeID: "ch1", Input: "1\n", ExpectedOutput: "1"},
		{ID: "tc2", ChallengeID: "ch1", Input: "2\n", ExpectedOutput: "2"},
	}
}

func TestProcessGradesSubmission(t *testing.T) {
	pool, subRepo, chRepo := poolFixture(t, echoRunner{})
	seedChallenge(chRepo)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", ChallengeID: "ch1", Language: model.LangPython, Status: model.StatusQueued}

	pool.process(context.Background(), "s1")

	sub := subRepo.subs["s1"]
	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 100, sub.Score)
	assert.Equal(t, 14, sub.TimeMsTotal)
	require.Len(t, subRepo.caseResults["s1"], 2)
	assert.True(t, subRepo.caseResults["s1"][0].Passed)
}

func TestProcessClaimIsExclusive(t *testing.T) {
	pool, subRepo, chRepo := poolFixture(t, echoRunner{})
	seedChallenge(chRepo)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", ChallengeID: "ch1", Language: model.LangPython, Status: model.StatusQueued}

	// The same id delivered to many workers at once is graded exactly once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.process(context.Background(), "s1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, subRepo.finalized)
	assert.Equal(t, model.StatusAccepted, subRepo.subs["s1"].Status)
	assert.Len(t, subRepo.caseResults["s1"], 2)
}

func TestProcessSandboxDownMarksError(t *testing.T) {
	runner := &downRunner{}
	pool, subRepo, chRepo := poolFixture(t, runner)
	seedChallenge(chRepo)
	subRepo.subs["s1"] = &model.Submission{ID: "s1", ChallengeID: "ch1", Language: model.LangPython, Status: model.StatusQueued}

	pool.process(context.Background(), "s1")

	sub := subRepo.subs["s1"]
	assert.Equal(t, model.StatusError, sub.Status)
	require.NotNil(t, sub.Diagnostic)
	assert.Equal(t, DiagSandboxUnavailable, *sub.Diagnostic)
	assert.Equal(t, 2, runner.calls) // bounded by retryMax
}

func TestProcessNoTestCases(t *testing.T) {
	pool, subRepo, chRepo := poolFixture(t, echoRunner{})
	chRepo.challenges["ch1"] = &model.Challenge{ID: "ch1", TimeLimitMs: 1000, MemoryLimitKb: 65536}
	subRepo.subs["s1"] = &model.Submission{ID: "s1", ChallengeID: "ch1", Language: model.LangPython, Status: model.StatusQueued}

	pool.process(context.Background(), "s1")

	sub := subRepo.subs["s1"]
	assert.Equal(t, model.StatusError, sub.Status)
	require.NotNil(t, sub.Diagnostic)
	assert.Equal(t, DiagNoTestCases, *sub.Diagnostic)
}
