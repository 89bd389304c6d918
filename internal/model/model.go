package model

import (
	"fmt"
	"time"
)

// Role is the single role carried by every profile.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type User struct {
	ID              string
	Email           string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile is the 1:1 role- and school-bearing record for a user.
type Profile struct {
	UserID    string
	Role      Role
	SchoolID  *string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

// OnboardingRecord marks a completed role-specific questionnaire. Its
// existence, not its contents, is what unblocks navigation.
type OnboardingRecord struct {
	UserID    string
	Survey    Role
	Answers   map[string]string
	CreatedAt time.Time
}

type JournalEntry struct {
	ID        string
	UserID    string
	Content   string
	Mood      *string
	CreatedAt time.Time
}

type MoodCheckin struct {
	ID        string
	UserID    string
	Score     int
	Mood      string
	CreatedAt time.Time
}

type ChatMessage struct {
	ID        string
	UserID    string
	Sender    string
	Content   string
	Flagged   bool
	CreatedAt time.Time
}

const (
	ChatSenderUser      = "user"
	ChatSenderAssistant = "assistant"
)
