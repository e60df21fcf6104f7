package model

import "time"

type SubmissionStatus string

const (
	StatusQueued            SubmissionStatus = "QUEUED"
	StatusRunning           SubmissionStatus = "RUNNING"
	StatusAccepted          SubmissionStatus = "ACCEPTED"
	StatusWrongAnswer       SubmissionStatus = "WRONG_ANSWER"
	StatusRuntimeError      SubmissionStatus = "RUNTIME_ERROR"
	StatusTimeLimitExceeded SubmissionStatus = "TIME_LIMIT_EXCEEDED"
	StatusError             SubmissionStatus = "ERROR" // infra failure, carries a diagnostic code
)

// IsTerminal reports whether the status is final. Terminal submissions are
// immutable; any correction requires a brand-new submission.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusRuntimeError, StatusTimeLimitExceeded, StatusError:
		return true
	}
	return false
}

// CanTransitionTo encodes the submission lifecycle:
// QUEUED -> RUNNING -> one of the five terminal outcomes.
// The only legal entry point is QUEUED and RUNNING is only reachable via a
// successful claim.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning
	case StatusRunning:
		return next.IsTerminal()
	}
	return false
}

type Submission struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	ChallengeID   string           `json:"challenge_id"`
	Language      Language         `json:"language"`
	Code          string           `json:"code,omitempty"`
	Status        SubmissionStatus `json:"status"`
	Score         int              `json:"score"` // 0-100
	TimeMsTotal   int              `json:"time_ms_total"`
	ExamAttemptID *string          `json:"exam_attempt_id,omitempty"`
	Diagnostic    *string          `json:"diagnostic,omitempty"` // stable code set on ERROR, e.g. SANDBOX_UNAVAILABLE
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CaseResults   []CaseResult     `json:"case_results,omitempty"`
}

func (s *Submission) IsCompleted() bool {
	return s.Status.IsTerminal()
}

// CaseResult is the per (submission, test case) execution record. Written
// once by the grading engine, append-only afterwards.
type CaseResult struct {
	ID           string           `json:"id"`
	SubmissionID string           `json:"submission_id"`
	TestCaseID   string           `json:"test_case_id"`
	Status       SubmissionStatus `json:"status"`
	Passed       bool             `json:"passed"`
	TimeMs       int              `json:"time_ms"`
	ActualOutput *string          `json:"actual_output,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
