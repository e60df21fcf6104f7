package model

import "time"

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanViewHiddenCases reports whether a role gets the unredacted view of
// hidden test cases.
func CanViewHiddenCases(role string) bool {
	return role == RoleInstructor || role == RoleAdmin
}
