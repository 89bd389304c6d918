package onboarding

import (
	"context"
	"strings"
	"time"

	"reflectify/server/internal/model"
)

const (
	ErrInvalidRole   = "invalid_role"
	ErrMissingSchool = "missing_school"
	ErrMissingAnswer = "missing_answer"
	ErrSaveFailed    = "onboarding_save_failed"
	ErrProfileUpdate = "profile_update_failed"
)

type Error struct {
	Code  string
	Field string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Code
	}
	return e.Code + ": " + e.Field
}

type Submission struct {
	SchoolID string
	Answers  map[string]string
}

// Validate checks that every step's required answers are present and
// non-blank. It reports the first missing field so the client can send the
// user back to the right step.
func Validate(role model.Role, sub Submission) error {
	steps, err := Steps(role)
	if err != nil {
		return &Error{Code: ErrInvalidRole}
	}
	if strings.TrimSpace(sub.SchoolID) == "" {
		return &Error{Code: ErrMissingSchool}
	}
	for _, step := range steps {
		for _, field := range step.Fields {
			if strings.TrimSpace(sub.Answers[field]) == "" {
				return &Error{Code: ErrMissingAnswer, Field: field}
			}
		}
	}
	return nil
}

type Store interface {
	CreateOnboardingRecord(ctx context.Context, record model.OnboardingRecord) (bool, error)
	AttachSchool(ctx context.Context, userID, schoolID string) error
}

// Submit persists the completion record and attaches the chosen school to the
// profile. Submitting twice is a no-op on gate state: the record insert is
// idempotent, and an existing record already reads as complete. A failed
// insert leaves the gate un-advanced so the user can retry.
func Submit(ctx context.Context, store Store, userID string, role model.Role, sub Submission) error {
	if err := Validate(role, sub); err != nil {
		return err
	}

	record := model.OnboardingRecord{
		UserID:    userID,
		Survey:    role,
		Answers:   sub.Answers,
		CreatedAt: time.Now().UTC(),
	}
	inserted, err := store.CreateOnboardingRecord(ctx, record)
	if err != nil {
		return &Error{Code: ErrSaveFailed}
	}
	if !inserted {
		// Already onboarded; nothing further to change.
		return nil
	}

	if err := store.AttachSchool(ctx, userID, strings.TrimSpace(sub.SchoolID)); err != nil {
		return &Error{Code: ErrProfileUpdate}
	}
	return nil
}
