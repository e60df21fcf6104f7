package model

import "time"

// AttemptState replaces the legacy is_active boolean; the three states rule
// out unreachable combinations like "submitted but still active".
type AttemptState string

const (
	AttemptNotStarted AttemptState = "NOT_STARTED"
	AttemptStarted    AttemptState = "STARTED"
	AttemptSubmitted  AttemptState = "SUBMITTED"
)

type Exam struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"course_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"` // max time per student once started
	MaxAttempts     int             `json:"max_attempts"`
	PassingScore    *int            `json:"passing_score,omitempty"` // 0-100, nil means no requirement
	CreatedByID     string          `json:"created_by_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Challenges      []ExamChallenge `json:"challenges,omitempty"`
}

// ExamChallenge assigns a challenge to an exam with a point weight.
type ExamChallenge struct {
	ExamID      string `json:"exam_id"`
	ChallengeID string `json:"challenge_id"`
	Points      int    `json:"points"`
}

// InWindow reports whether attempts may be started at the given instant.
func (e *Exam) InWindow(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

// IsPassingScore checks a 0-100 score against the exam requirement. Without
// a configured passing score every attempt is considered non-failing.
func (e *Exam) IsPassingScore(score int) bool {
	if e.PassingScore == nil {
		return true
	}
	return score >= *e.PassingScore
}

type ExamAttempt struct {
	ID          string       `json:"id"`
	ExamID      string       `json:"exam_id"`
	UserID      string       `json:"user_id"`
	State       AttemptState `json:"state"`
	StartedAt   time.Time    `json:"started_at"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty"`
	Score       int          `json:"score"`
	Passed      bool         `json:"passed"`
}

// AcceptsSubmissions reports whether a submission tagged with this attempt
// may still be taken in: the attempt is running and its per-student duration
// has not elapsed.
func (a *ExamAttempt) AcceptsSubmissions(now time.Time, durationMinutes int) bool {
	if a.State != AttemptStarted {
		return false
	}
	deadline := a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
	return !now.After(deadline)
}

// Elapsed returns the attempt duration for leaderboard ranking; zero until
// the attempt is submitted.
func (a *ExamAttempt) Elapsed() time.Duration {
	if a.SubmittedAt == nil {
		return 0
	}
	return a.SubmittedAt.Sub(a.StartedAt)
}
