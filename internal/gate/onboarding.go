package gate

import (
	"context"

	"reflectify/server/internal/model"
)

type OnboardingState int

const (
	OnboardingLoading OnboardingState = iota
	OnboardingNeeded
	OnboardingComplete
)

func (s OnboardingState) String() string {
	switch s {
	case OnboardingNeeded:
		return "needs_onboarding"
	case OnboardingComplete:
		return "complete"
	default:
		return "loading"
	}
}

// RecordChecker is the existence query against the onboarding record store.
type RecordChecker interface {
	HasOnboardingRecord(ctx context.Context, userID string, survey model.Role) (bool, error)
}

// ResolveOnboarding decides whether the questionnaire still blocks the user.
// Admins complete immediately and never touch the record store. When the
// existence query fails the gate fails open to the questionnaire: a transient
// store error must not lock anyone out, even if it re-prompts someone who has
// already onboarded. The error is returned alongside so the caller can log it.
func ResolveOnboarding(ctx context.Context, checker RecordChecker, sess Session) (OnboardingState, error) {
	if sess.Loading || sess.UserID == "" || sess.Profile == nil {
		return OnboardingLoading, nil
	}
	if sess.Profile.Role == model.RoleAdmin {
		return OnboardingComplete, nil
	}
	exists, err := checker.HasOnboardingRecord(ctx, sess.UserID, sess.Profile.Role)
	if err != nil {
		return OnboardingNeeded, err
	}
	if exists {
		return OnboardingComplete, nil
	}
	return OnboardingNeeded, nil
}
