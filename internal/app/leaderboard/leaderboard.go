// Package leaderboard derives rankings from submission and attempt history.
// Every function here is pure: recomputing with unchanged inputs yields an
// identical result, so callers may cache or recompute freely.
package leaderboard

import (
	"sort"

	"codecampus/internal/domain/model"
)

type best struct {
	score  int
	timeMs int
	found  bool
}

func (b *best) consider(score, timeMs int) {
	if !b.found || score > b.score || (score == b.score && timeMs < b.timeMs) {
		b.score = score
		b.timeMs = timeMs
		b.found = true
	}
}

// Challenge ranks users by their best completed submission for one
// challenge: max score, tie-break min total time. Incomplete submissions
// are ignored.
func Challenge(subs []model.Submission) []model.LeaderboardEntry {
	bests := make(map[string]*best)
	for i := range subs {
		sub := &subs[i]
		if !sub.IsCompleted() {
			continue
		}
		b, ok := bests[sub.UserID]
		if !ok {
			b = &best{}
			bests[sub.UserID] = b
		}
		b.consider(sub.Score, sub.TimeMsTotal)
	}

	entries := make([]model.LeaderboardEntry, 0, len(bests))
	for userID, b := range bests {
		entries = append(entries, model.LeaderboardEntry{UserID: userID, Score: b.score, TimeMs: b.timeMs})
	}
	return rank(entries)
}

// Course ranks users across a course's assigned challenges: the sum of each
// challenge's best score and best time, plus how many of the challenges the
// user completed at least once.
func Course(challengeIDs []string, subs []model.Submission) []model.LeaderboardEntry {
	assigned := make(map[string]bool, len(challengeIDs))
	for _, id := range challengeIDs {
		assigned[id] = true
	}

	// user -> challenge -> best
	perUser := make(map[string]map[string]*best)
	for i := range subs {
		sub := &subs[i]
		if !sub.IsCompleted() || !assigned[sub.ChallengeID] {
			continue
		}
		byChallenge, ok := perUser[sub.UserID]
		if !ok {
			byChallenge = make(map[string]*best)
			perUser[sub.UserID] = byChallenge
		}
		b, ok := byChallenge[sub.ChallengeID]
		if !ok {
			b = &best{}
			byChallenge[sub.ChallengeID] = b
		}
		b.consider(sub.Score, sub.TimeMsTotal)
	}

	entries := make([]model.LeaderboardEntry, 0, len(perUser))
	for userID, byChallenge := range perUser {
		entry := model.LeaderboardEntry{UserID: userID}
		for _, b := range byChallenge {
			entry.Score += b.score
			entry.TimeMs += b.timeMs
			entry.ChallengesCompleted++
		}
		entries = append(entries, entry)
	}
	return rank(entries)
}

// Exam ranks submitted attempts by stored score, tie-break elapsed time
// ascending. Attempts without a submitted_at are never ranked.
func Exam(attempts []model.ExamAttempt) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		if a.SubmittedAt == nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID: a.UserID,
			Score:  a.Score,
			TimeMs: int(a.Elapsed().Milliseconds()),
		})
	}
	return rank(entries)
}

// rank orders entries by score desc, time asc, then user id as the final
// tie-break so the ordering is total and recomputation reproducible.
func rank(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeMs != entries[j].TimeMs {
			return entries[i].TimeMs < entries[j].TimeMs
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
