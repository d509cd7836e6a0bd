// Package models defines the core data structures for flashcards, their
// classification and the learners and staff that use them.
package models

import "time"

// Topic groups flashcards by theme.
type Topic struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Count is the number of flashcards referencing the topic. It is computed
	// at read time and only filled by list queries.
	Count int `json:"count"`
}

// Level is a proficiency tier. Its ID is one of AllowedLevels.
type Level struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Badge is an achievement that can be awarded to users.
type Badge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Icon        *string    `json:"icon"`
	Description *string    `json:"description"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
}

// User represents an application learner.
type User struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile is a user with the data the admin panel shows alongside.
type UserProfile struct {
	User
	Badges    []Badge  `json:"badges"`
	Bookmarks []string `json:"bookmarks"`
	Streak    Streak   `json:"streak"`
}

// UserPage is one page of users.
type UserPage struct {
	Items      []User `json:"data"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// AdminRole is the role of a staff account.
type AdminRole string

const (
	// RoleAdmin may manage everything, including staff accounts.
	RoleAdmin AdminRole = "admin"
	// RoleModerator may manage content only.
	RoleModerator AdminRole = "moderator"
)

// Valid reports whether r is a known role.
func (r AdminRole) Valid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// AdminUser is a staff account of the admin panel.
type AdminUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Streak counts consecutive study days of a user.
type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
	// LastUpdated is the last check-in day as YYYY-MM-DD, empty for a
	// streak that was never stored.
	LastUpdated string `json:"lastUpdated,omitempty"`
}
