package model

type LeaderboardType string

const (
	LeaderboardChallenge LeaderboardType = "challenge"
	LeaderboardCourse    LeaderboardType = "course"
	LeaderboardExam      LeaderboardType = "exam"
)

func (t LeaderboardType) Valid() bool {
	switch t {
	case LeaderboardChallenge, LeaderboardCourse, LeaderboardExam:
		return true
	}
	return false
}

// LeaderboardEntry is a derived view, never authoritative storage.
// Recomputing with unchanged inputs yields an identical result.
type LeaderboardEntry struct {
	Rank                int    `json:"rank"`
	UserID              string `json:"user_id"`
	Score               int    `json:"score"`
	TimeMs              int    `json:"time_ms"`
	ChallengesCompleted int    `json:"challenges_completed,omitempty"`
}
