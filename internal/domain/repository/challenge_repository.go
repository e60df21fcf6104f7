package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codecampus/internal/common"
	"codecampus/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error)
	ListChallenges(ctx context.Context, status model.ChallengeStatus, limit, offset int) ([]model.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, challengeID string, status model.ChallengeStatus) error

	AddTestCases(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error
	GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error)
	CountTestCases(ctx context.Context, challengeID string) (int, error)
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) CreateChallenge(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `INSERT INTO challenges (id, title, slug, description, difficulty, status, course_id, time_limit_ms, memory_limit_kb, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.Difficulty, c.Status, c.CourseID, c.TimeLimitMs, c.MemoryLimitKb, c.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.Difficulty, c.Status, c.CourseID, c.TimeLimitMs, c.MemoryLimitKb, c.CreatedByID)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("challenge with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgChallengeRepository.CreateChallenge: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) FindChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT id, title, slug, description, difficulty, status, course_id, time_limit_ms, memory_limit_kb, created_by, created_at, updated_at
	          FROM challenges WHERE id = $1`

	challenge := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&challenge.ID, &challenge.Title, &challenge.Slug, &challenge.Description, &challenge.Difficulty, &challenge.Status,
		&challenge.CourseID, &challenge.TimeLimitMs, &challenge.MemoryLimitKb, &challenge.CreatedByID,
		&challenge.CreatedAt, &challenge.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindChallengeByID: %w", err)
	}
	return challenge, nil
}

func (r *pgChallengeRepository) ListChallenges(ctx context.Context, status model.ChallengeStatus, limit, offset int) ([]model.Challenge, error) {
	query := `SELECT id, title, slug, description, difficulty, status, course_id, time_limit_ms, memory_limit_kb, created_by, created_at, updated_at
	          FROM challenges WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListChallenges: %w", err)
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Slug, &c.Description, &c.Difficulty, &c.Status,
			&c.CourseID, &c.TimeLimitMs, &c.MemoryLimitKb, &c.CreatedByID,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListChallenges scan: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (r *pgChallengeRepository) UpdateChallengeStatus(ctx context.Context, tx *sql.Tx, challengeID string, status model.ChallengeStatus) error {
	query := `UPDATE challenges SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, challengeID)
	} else {
		_, err = r.db.ExecContext(ctx, query, status, challengeID)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.UpdateChallengeStatus: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) AddTestCases(ctx context.Context, tx *sql.Tx, challengeID string, testCases []model.TestCase) error {
	query := `INSERT INTO test_cases (id, challenge_id, input, expected_output, is_hidden, order_index)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	for _, tc := range testCases {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, tc.ID, challengeID, tc.Input, tc.ExpectedOutput, tc.IsHidden, tc.OrderIndex)
		} else {
			_, err = r.db.ExecContext(ctx, query, tc.ID, challengeID, tc.Input, tc.ExpectedOutput, tc.IsHidden, tc.OrderIndex)
		}
		if err != nil {
			return fmt.Errorf("pgChallengeRepository.AddTestCases: %w", err)
		}
	}
	return nil
}

func (r *pgChallengeRepository) GetTestCasesByChallengeID(ctx context.Context, challengeID string) ([]model.TestCase, error) {
	query := `SELECT id, challenge_id, input, expected_output, is_hidden, order_index, created_at
	          FROM test_cases WHERE challenge_id = $1 ORDER BY order_index ASC`

	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ChallengeID, &tc.Input, &tc.ExpectedOutput, &tc.IsHidden, &tc.OrderIndex, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.GetTestCasesByChallengeID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, rows.Err()
}

func (r *pgChallengeRepository) CountTestCases(ctx context.Context, challengeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_cases WHERE challenge_id = $1`, challengeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgChallengeRepository.CountTestCases: %w", err)
	}
	return count, nil
}
