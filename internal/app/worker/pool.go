package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"codecampus/internal/app/dispatch"
	"codecampus/internal/app/grading"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Stable diagnostic codes attached to ERROR submissions.
const (
	DiagSandboxUnavailable = "SANDBOX_UNAVAILABLE"
	DiagNoTestCases        = "NO_TEST_CASES"
	DiagInternal           = "INTERNAL_ERROR"
)

// CompletionListener is notified after a submission reaches a terminal
// state, e.g. to invalidate derived leaderboard caches.
type CompletionListener interface {
	OnSubmissionCompleted(ctx context.Context, sub *model.Submission, challenge *model.Challenge)
}

// Pool serves one language's queue with a fixed number of workers. Workers
// block only on the queue or on the sandboxed run; they never block on each
// other.
type Pool struct {
	lang           model.Language
	size           int
	rdb            *redis.Client
	dispatcher     *dispatch.Dispatcher
	executor       Executor
	submissionRepo repository.SubmissionRepository
	challengeRepo  repository.ChallengeRepository
	retryMax       int
	retryBackoff   time.Duration
	listener       CompletionListener // may be nil
}

func NewPool(
	lang model.Language,
	size int,
	rdb *redis.Client,
	dispatcher *dispatch.Dispatcher,
	executor Executor,
	subRepo repository.SubmissionRepository,
	chRepo repository.ChallengeRepository,
	retryMax int,
	retryBackoff time.Duration,
	listener CompletionListener,
) *Pool {
	if size < 1 {
		size = 1
	}
	if retryMax < 1 {
		retryMax = 1
	}
	return &Pool{
		lang:           lang,
		size:           size,
		rdb:            rdb,
		dispatcher:     dispatcher,
		executor:       executor,
		submissionRepo: subRepo,
		challengeRepo:  chRepo,
		retryMax:       retryMax,
		retryBackoff:   retryBackoff,
		listener:       listener,
	}
}

// Start launches the pool's workers and blocks until the context is
// cancelled and all workers have drained.
func (p *Pool) Start(ctx context.Context) {
	log.Printf("INFO: Starting %d worker(s) for language %s on queue %s", p.size, p.lang, p.dispatcher.QueueName(p.lang))
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			p.runLoop(ctx, workerNum)
		}(i)
	}
	wg.Wait()
	log.Printf("INFO: All %s workers stopped.", p.lang)
}

func (p *Pool) runLoop(ctx context.Context, workerNum int) {
	queueName := p.dispatcher.QueueName(p.lang)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			popped, err := p.rdb.BRPop(ctx, 5*time.Second, queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // timeout, queue empty
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				log.Printf("ERROR: [%s#%d] Failed to BRPop from %s: %v", p.lang, workerNum, queueName, err)
				time.Sleep(5 * time.Second)
				continue
			}
			if len(popped) < 2 || popped[1] == "" {
				log.Printf("WARN: [%s#%d] BRPop returned empty submission id.", p.lang, workerNum)
				continue
			}
			p.process(ctx, popped[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, submissionID string) {
	// The claim is the at-most-one-concurrent-execution guarantee: the
	// conditional QUEUED -> RUNNING update succeeds for exactly one worker.
	claimed, err := p.submissionRepo.Claim(ctx, submissionID)
	if err != nil {
		log.Printf("ERROR: Failed to claim submission %s: %v", submissionID, err)
		return
	}
	if !claimed {
		log.Printf("INFO: Submission %s already claimed elsewhere, skipping.", submissionID)
		return
	}
	p.dispatcher.ClearMarker(ctx, submissionID)

	sub, err := p.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		log.Printf("ERROR: Failed to load claimed submission %s: %v", submissionID, err)
		p.finalizeError(ctx, submissionID, DiagInternal)
		return
	}

	challenge, err := p.challengeRepo.FindChallengeByID(ctx, sub.ChallengeID)
	if err != nil {
		log.Printf("ERROR: Failed to load challenge %s for submission %s: %v", sub.ChallengeID, submissionID, err)
		p.finalizeError(ctx, submissionID, DiagInternal)
		return
	}

	testCases, err := p.challengeRepo.GetTestCasesByChallengeID(ctx, challenge.ID)
	if err != nil {
		log.Printf("ERROR: Failed to load test cases for challenge %s: %v", challenge.ID, err)
		p.finalizeError(ctx, submissionID, DiagInternal)
		return
	}
	if len(testCases) == 0 {
		// Intake guards against this; hitting it means the store changed
		// under us.
		log.Printf("ERROR: Challenge %s has no test cases for submission %s", challenge.ID, submissionID)
		p.finalizeError(ctx, submissionID, DiagNoTestCases)
		return
	}

	inputs, err := p.executeWithRetry(ctx, sub.Code, testCases, challenge.TimeLimitMs, challenge.MemoryLimitKb)
	if err != nil {
		log.Printf("ERROR: Sandbox unavailable for submission %s after %d attempt(s): %v", submissionID, p.retryMax, err)
		p.finalizeError(ctx, submissionID, DiagSandboxUnavailable)
		return
	}

	result := grading.Evaluate(inputs)
	p.finalizeGraded(ctx, sub, challenge, result)
}

// executeWithRetry retries infra faults a small bounded number of times.
// User-code faults come back inside the inputs and are never retried.
func (p *Pool) executeWithRetry(ctx context.Context, code string, testCases []model.TestCase, timeLimitMs, memoryLimitKb int) ([]grading.CaseInput, error) {
	var lastErr error
	for attempt := 1; attempt <= p.retryMax; attempt++ {
		inputs, err := p.executor.Execute(ctx, code, testCases, timeLimitMs, memoryLimitKb)
		if err == nil {
			return inputs, nil
		}
		lastErr = err
		log.Printf("WARN: Sandbox attempt %d/%d failed: %v", attempt, p.retryMax, err)
		if attempt < p.retryMax {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryBackoff):
			}
		}
	}
	return nil, lastErr
}

func (p *Pool) finalizeGraded(ctx context.Context, sub *model.Submission, challenge *model.Challenge, result grading.Result) {
	ok, err := p.submissionRepo.Finalize(ctx, nil, sub.ID, result.Status, result.Score, result.TimeMsTotal, nil)
	if err != nil {
		log.Printf("ERROR: Failed to finalize submission %s: %v", sub.ID, err)
		return
	}
	if !ok {
		log.Printf("WARN: Submission %s was not in RUNNING at finalize; leaving it untouched.", sub.ID)
		return
	}

	caseResults := make([]model.CaseResult, 0, len(result.Cases))
	for _, verdict := range result.Cases {
		cr := model.CaseResult{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			TestCaseID:   verdict.TestCaseID,
			Status:       verdict.Status,
			Passed:       verdict.Passed,
			TimeMs:       verdict.TimeMs,
		}
		if verdict.ActualOutput != "" {
			out := verdict.ActualOutput
			cr.ActualOutput = &out
		}
		if verdict.ErrorMessage != "" {
			msg := verdict.ErrorMessage
			cr.ErrorMessage = &msg
		}
		caseResults = append(caseResults, cr)
	}
	if err := p.submissionRepo.CreateCaseResults(ctx, nil, caseResults); err != nil {
		log.Printf("ERROR: Failed to store case results for submission %s: %v", sub.ID, err)
	}

	log.Printf("INFO: Submission %s graded: %s (score %d, %d ms).", sub.ID, result.Status, result.Score, result.TimeMsTotal)

	if p.listener != nil {
		sub.Status = result.Status
		sub.Score = result.Score
		sub.TimeMsTotal = result.TimeMsTotal
		p.listener.OnSubmissionCompleted(ctx, sub, challenge)
	}
}

func (p *Pool) finalizeError(ctx context.Context, submissionID, diagnostic string) {
	ok, err := p.submissionRepo.Finalize(ctx, nil, submissionID, model.StatusError, 0, 0, &diagnostic)
	if err != nil {
		log.Printf("ERROR: Failed to mark submission %s as ERROR (%s): %v", submissionID, diagnostic, err)
		return
	}
	if !ok {
		log.Printf("WARN: Submission %s already terminal while marking ERROR (%s).", submissionID, diagnostic)
	}
}
