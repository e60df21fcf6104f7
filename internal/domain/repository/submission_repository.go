package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)

	// Claim is the atomic conditional transition QUEUED -> RUNNING. Exactly
	// one caller observes true for a given submission; everyone else no-ops.
	Claim(ctx context.Context, submissionID string) (bool, error)

	// Finalize writes a terminal status exactly once (RUNNING -> terminal).
	// Returns false when the submission was not in RUNNING, i.e. someone
	// else already finalized it or it was never claimed.
	Finalize(ctx context.Context, tx *sql.Tx, submissionID string, status model.SubmissionStatus, score, timeMsTotal int, diagnostic *string) (bool, error)

	CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error
	GetCaseResults(ctx context.Context, submissionID string) ([]model.CaseResult, error)

	ListCompletedByChallenge(ctx context.Context, challengeID string) ([]model.Submission, error)
	ListCompletedByChallenges(ctx context.Context, challengeIDs []string) ([]model.Submission, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]model.Submission, error)
	ListByUserChallenge(ctx context.Context, userID, challengeID string, limit, offset int) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, challenge_id, language, code, status, score, time_ms_total, exam_attempt_id, diagnostic, created_at, updated_at`

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, challenge_id, language, code, status, score, time_ms_total, exam_attempt_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ChallengeID, sub.Language, sub.Code, sub.Status, sub.Score, sub.TimeMsTotal, sub.ExamAttemptID)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ChallengeID, sub.Language, sub.Code, sub.Status, sub.Score, sub.TimeMsTotal, sub.ExamAttemptID)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ChallengeID, &sub.Language, &sub.Code, &sub.Status,
		&sub.Score, &sub.TimeMsTotal, &sub.ExamAttemptID, &sub.Diagnostic, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) Claim(ctx context.Context, submissionID string) (bool, error) {
	query := `UPDATE submissions SET status = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, model.StatusRunning, submissionID, model.StatusQueued)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Claim rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgSubmissionRepository) Finalize(ctx context.Context, tx *sql.Tx, submissionID string, status model.SubmissionStatus, score, timeMsTotal int, diagnostic *string) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("pgSubmissionRepository.Finalize: %s is not a terminal status", status)
	}
	query := `UPDATE submissions SET status = $1, score = $2, time_ms_total = $3, diagnostic = $4, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $5 AND status = $6`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, status, score, timeMsTotal, diagnostic, submissionID, model.StatusRunning)
	} else {
		res, err = r.db.ExecContext(ctx, query, status, score, timeMsTotal, diagnostic, submissionID, model.StatusRunning)
	}
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Finalize: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Finalize rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgSubmissionRepository) CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error {
	query := `INSERT INTO submission_case_results (id, submission_id, test_case_id, status, passed, time_ms, actual_output, error_message)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, cr := range results {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, cr.ID, cr.SubmissionID, cr.TestCaseID, cr.Status, cr.Passed, cr.TimeMs, cr.ActualOutput, cr.ErrorMessage)
		} else {
			_, err = r.db.ExecContext(ctx, query, cr.ID, cr.SubmissionID, cr.TestCaseID, cr.Status, cr.Passed, cr.TimeMs, cr.ActualOutput, cr.ErrorMessage)
		}
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateCaseResults: %w", err)
		}
	}
	return nil
}

func (r *pgSubmissionRepository) GetCaseResults(ctx context.Context, submissionID string) ([]model.CaseResult, error) {
	query := `SELECT id, submission_id, test_case_id, status, passed, time_ms, actual_output, error_message, created_at
	          FROM submission_case_results WHERE submission_id = $1 ORDER BY created_at ASC, test_case_id ASC`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetCaseResults: %w", err)
	}
	defer rows.Close()

	var results []model.CaseResult
	for rows.Next() {
		var cr model.CaseResult
		if err := rows.Scan(&cr.ID, &cr.SubmissionID, &cr.TestCaseID, &cr.Status, &cr.Passed, &cr.TimeMs, &cr.ActualOutput, &cr.ErrorMessage, &cr.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetCaseResults scan: %w", err)
		}
		results = append(results, cr)
	}
	return results, rows.Err()
}

func (r *pgSubmissionRepository) ListCompletedByChallenge(ctx context.Context, challengeID string) ([]model.Submission, error) {
	return r.ListCompletedByChallenges(ctx, []string{challengeID})
}

func (r *pgSubmissionRepository) ListCompletedByChallenges(ctx context.Context, challengeIDs []string) ([]model.Submission, error) {
	if len(challengeIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE challenge_id = ANY($1) AND status NOT IN ($2, $3)
	          ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, challengeIDs, model.StatusQueued, model.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListCompletedByChallenges: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *pgSubmissionRepository) ListByAttempt(ctx context.Context, attemptID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE exam_attempt_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByAttempt: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *pgSubmissionRepository) ListByUserChallenge(ctx context.Context, userID, challengeID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          WHERE user_id = $1 AND challenge_id = $2
	          ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, userID, challengeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByUserChallenge: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func scanSubmissions(rows *sql.Rows) ([]model.Submission, error) {
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ChallengeID, &sub.Language, &sub.Code, &sub.Status,
			&sub.Score, &sub.TimeMsTotal, &sub.ExamAttemptID, &sub.Diagnostic, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanSubmissions: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
