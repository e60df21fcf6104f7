package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"
)

type ExamRepository interface {
	CreateExam(ctx context.Context, tx *sql.Tx, exam *model.Exam) error
	FindExamByID(ctx context.Context, id string) (*model.Exam, error)
	AssignChallenge(ctx context.Context, tx *sql.Tx, assignment model.ExamChallenge) error
	GetExamChallenges(ctx context.Context, examID string) ([]model.ExamChallenge, error)

	CountAttempts(ctx context.Context, examID, userID string) (int, error)
	CreateAttempt(ctx context.Context, attempt *model.ExamAttempt) error
	GetAttemptByID(ctx context.Context, id string) (*model.ExamAttempt, error)

	// FinalizeAttempt is the conditional STARTED -> SUBMITTED transition;
	// exactly one caller observes true per attempt.
	FinalizeAttempt(ctx context.Context, attemptID string, score int, passed bool) (bool, error)

	ListSubmittedAttempts(ctx context.Context, examID string) ([]model.ExamAttempt, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
	GetCourseChallengeIDs(ctx context.Context, courseID string) ([]string, error)
}

type pgExamRepository struct {
	db *sql.DB
}

func NewPgExamRepository(db *sql.DB) ExamRepository {
	return &pgExamRepository{db: db}
}

func (r *pgExamRepository) CreateExam(ctx context.Context, tx *sql.Tx, e *model.Exam) error {
	query := `INSERT INTO exams (id, course_id, title, description, start_time, end_time, duration_minutes, max_attempts, passing_score, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, e.ID, e.CourseID, e.Title, e.Description, e.StartTime, e.EndTime, e.DurationMinutes, e.MaxAttempts, e.PassingScore, e.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, e.ID, e.CourseID, e.Title, e.Description, e.StartTime, e.EndTime, e.DurationMinutes, e.MaxAttempts, e.PassingScore, e.CreatedByID)
	}
	if err != nil {
		return fmt.Errorf("pgExamRepository.CreateExam: %w", err)
	}
	return nil
}

func (r *pgExamRepository) FindExamByID(ctx context.Context, id string) (*model.Exam, error) {
	query := `SELECT id, course_id, title, description, start_time, end_time, duration_minutes, max_attempts, passing_score, created_by, created_at, updated_at
	          FROM exams WHERE id = $1`

	exam := &model.Exam{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&exam.ID, &exam.CourseID, &exam.Title, &exam.Description, &exam.StartTime, &exam.EndTime,
		&exam.DurationMinutes, &exam.MaxAttempts, &exam.PassingScore, &exam.CreatedByID,
		&exam.CreatedAt, &exam.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExamRepository.FindExamByID: %w", err)
	}
	return exam, nil
}

func (r *pgExamRepository) AssignChallenge(ctx context.Context, tx *sql.Tx, a model.ExamChallenge) error {
	query := `INSERT INTO exam_challenges (exam_id, challenge_id, points) VALUES ($1, $2, $3)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, a.ExamID, a.ChallengeID, a.Points)
	} else {
		_, err = r.db.ExecContext(ctx, query, a.ExamID, a.ChallengeID, a.Points)
	}
	if err != nil {
		return fmt.Errorf("pgExamRepository.AssignChallenge: %w", err)
	}
	return nil
}

func (r *pgExamRepository) GetExamChallenges(ctx context.Context, examID string) ([]model.ExamChallenge, error) {
	query := `SELECT exam_id, challenge_id, points FROM exam_challenges WHERE exam_id = $1 ORDER BY challenge_id ASC`

	rows, err := r.db.QueryContext(ctx, query, examID)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.GetExamChallenges: %w", err)
	}
	defer rows.Close()

	var assignments []model.ExamChallenge
	for rows.Next() {
		var a model.ExamChallenge
		if err := rows.Scan(&a.ExamID, &a.ChallengeID, &a.Points); err != nil {
			return nil, fmt.Errorf("pgExamRepository.GetExamChallenges scan: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *pgExamRepository) CountAttempts(ctx context.Context, examID, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1 AND user_id = $2`,
		examID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgExamRepository.CountAttempts: %w", err)
	}
	return count, nil
}

func (r *pgExamRepository) CreateAttempt(ctx context.Context, a *model.ExamAttempt) error {
	// The legacy is_active column is kept in sync with the state enum so
	// older rows and reports remain readable.
	query := `INSERT INTO exam_attempts (id, exam_id, user_id, state, started_at, score, passed, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.ExamID, a.UserID, a.State, a.StartedAt, a.Score, a.Passed, a.State == model.AttemptStarted)
	if err != nil {
		return fmt.Errorf("pgExamRepository.CreateAttempt: %w", err)
	}
	return nil
}

func (r *pgExamRepository) GetAttemptByID(ctx context.Context, id string) (*model.ExamAttempt, error) {
	query := `SELECT id, exam_id, user_id, state, started_at, submitted_at, score, passed
	          FROM exam_attempts WHERE id = $1`

	attempt := &model.ExamAttempt{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&attempt.ID, &attempt.ExamID, &attempt.UserID, &attempt.State,
		&attempt.StartedAt, &attempt.SubmittedAt, &attempt.Score, &attempt.Passed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExamRepository.GetAttemptByID: %w", err)
	}
	return attempt, nil
}

func (r *pgExamRepository) FinalizeAttempt(ctx context.Context, attemptID string, score int, passed bool) (bool, error) {
	query := `UPDATE exam_attempts
	          SET state = $1, score = $2, passed = $3, submitted_at = CURRENT_TIMESTAMP, is_active = FALSE
	          WHERE id = $4 AND state = $5`
	res, err := r.db.ExecContext(ctx, query, model.AttemptSubmitted, score, passed, attemptID, model.AttemptStarted)
	if err != nil {
		return false, fmt.Errorf("pgExamRepository.FinalizeAttempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgExamRepository.FinalizeAttempt rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *pgExamRepository) ListSubmittedAttempts(ctx context.Context, examID string) ([]model.ExamAttempt, error) {
	query := `SELECT id, exam_id, user_id, state, started_at, submitted_at, score, passed
	          FROM exam_attempts WHERE exam_id = $1 AND state = $2 ORDER BY submitted_at ASC`

	rows, err := r.db.QueryContext(ctx, query, examID, model.AttemptSubmitted)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListSubmittedAttempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.State, &a.StartedAt, &a.SubmittedAt, &a.Score, &a.Passed); err != nil {
			return nil, fmt.Errorf("pgExamRepository.ListSubmittedAttempts scan: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *pgExamRepository) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM course_enrollments WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("pgExamRepository.IsEnrolled: %w", err)
	}
	return count > 0, nil
}

func (r *pgExamRepository) GetCourseChallengeIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM challenges WHERE course_id = $1 ORDER BY id ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.GetCourseChallengeIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgExamRepository.GetCourseChallengeIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
