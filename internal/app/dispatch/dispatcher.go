package dispatch

import (
	"context"
	"log"
	"time"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
	"codecampus/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// Dispatcher owns the per-language queue partitions. Nothing outside this
// package touches queue internals.
type Dispatcher struct {
	rdb            *redis.Client
	submissionRepo repository.SubmissionRepository
	queuePrefix    string
	markerTTL      time.Duration
	languages      map[model.Language]bool
}

func NewDispatcher(rdb *redis.Client, subRepo repository.SubmissionRepository, queuePrefix string, markerTTL time.Duration, supported []model.Language) *Dispatcher {
	langs := make(map[model.Language]bool, len(supported))
	for _, l := range supported {
		langs[l] = true
	}
	return &Dispatcher{
		rdb:            rdb,
		submissionRepo: subRepo,
		queuePrefix:    queuePrefix,
		markerTTL:      markerTTL,
		languages:      langs,
	}
}

// Supports reports whether an executor is configured for the language.
func (d *Dispatcher) Supports(lang model.Language) bool {
	return d.languages[lang]
}

// QueueName returns the redis list a language's submissions wait on, e.g.
// "submission_queue:python".
func (d *Dispatcher) QueueName(lang model.Language) string {
	return d.queuePrefix + ":" + string(lang)
}

func (d *Dispatcher) markerKey(submissionID string) string {
	return d.queuePrefix + ":enqueued:" + submissionID
}

// Enqueue places a submission on its language queue. It is idempotent: a
// submission already queued or running is a no-op, a terminal submission is
// rejected, and an unsupported language never touches the queue. FIFO is
// best-effort within one language; there is no ordering across languages.
func (d *Dispatcher) Enqueue(ctx context.Context, submissionID string, lang model.Language) error {
	if !d.Supports(lang) {
		return common.Errorf("language %s: %w", lang, common.ErrUnsupportedLanguage)
	}

	sub, err := d.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return common.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	if sub.Status.IsTerminal() {
		return common.Errorf("submission %s: %w", submissionID, common.ErrTerminalSubmission)
	}
	if sub.Status == model.StatusRunning {
		log.Printf("INFO: Submission %s already running, enqueue is a no-op.", submissionID)
		return nil
	}

	// SetNX marker dedupes concurrent enqueues of the same id; the worker
	// clears it on claim and the TTL covers markers that outlive their job.
	ok, err := d.rdb.SetNX(ctx, d.markerKey(submissionID), 1, d.markerTTL).Result()
	if err != nil {
		return common.Errorf("failed to set enqueue marker for %s: %w", submissionID, err)
	}
	if !ok {
		log.Printf("INFO: Submission %s already queued, enqueue is a no-op.", submissionID)
		return nil
	}

	if err := d.rdb.LPush(ctx, d.QueueName(lang), submissionID).Err(); err != nil {
		// Roll the marker back so a later enqueue can still deliver.
		d.rdb.Del(ctx, d.markerKey(submissionID))
		return common.Errorf("failed to push submission %s to queue %s: %w", submissionID, d.QueueName(lang), err)
	}

	log.Printf("INFO: Submission %s enqueued to %s.", submissionID, d.QueueName(lang))
	return nil
}

// ClearMarker releases the enqueue dedupe marker. Called by the worker once
// it has claimed the submission off the queue.
func (d *Dispatcher) ClearMarker(ctx context.Context, submissionID string) {
	if err := d.rdb.Del(ctx, d.markerKey(submissionID)).Err(); err != nil {
		log.Printf("WARN: Failed to clear enqueue marker for %s: %v", submissionID, err)
	}
}

// QueueLength reports how many submissions wait on a language's queue.
func (d *Dispatcher) QueueLength(ctx context.Context, lang model.Language) (int64, error) {
	return d.rdb.LLen(ctx, d.QueueName(lang)).Result()
}
