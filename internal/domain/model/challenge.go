package model

import "time"

type ChallengeDifficulty string
type ChallengeStatus string

const (
	DifficultyEasy   ChallengeDifficulty = "Easy"
	DifficultyMedium ChallengeDifficulty = "Medium"
	DifficultyHard   ChallengeDifficulty = "Hard"

	ChallengeDraft     ChallengeStatus = "draft"
	ChallengePublished ChallengeStatus = "published"
	ChallengeArchived  ChallengeStatus = "archived"
)

type Challenge struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description"`
	Difficulty    ChallengeDifficulty `json:"difficulty"`
	Status        ChallengeStatus     `json:"status"`
	CourseID      *string             `json:"course_id,omitempty"`
	TimeLimitMs   int                 `json:"time_limit_ms"`
	MemoryLimitKb int                 `json:"memory_limit_kb"`
	CreatedByID   string              `json:"created_by_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	TestCases     []TestCase          `json:"test_cases,omitempty"`
}

func (c *Challenge) IsPublished() bool {
	return c.Status == ChallengePublished
}

// TestCase is immutable once created for grading purposes; the hidden flag
// is a projection property applied at serialization time, never a storage
// fork.
type TestCase struct {
	ID             string    `json:"id"`
	ChallengeID    string    `json:"challenge_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	IsHidden       bool      `json:"is_hidden"`
	OrderIndex     int       `json:"order_index"`
	CreatedAt      time.Time `json:"created_at"`
}
