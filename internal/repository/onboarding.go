package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"reflectify/server/internal/model"
)

func onboardingTable(survey model.Role) (string, error) {
	switch survey {
	case model.RoleStudent:
		return "student_onboarding", nil
	case model.RoleTeacher:
		return "teacher_onboarding", nil
	default:
		return "", fmt.Errorf("no onboarding table for survey %q", survey)
	}
}

// HasOnboardingRecord answers the existence query that gates navigation.
func (s *Store) HasOnboardingRecord(ctx context.Context, userID string, survey model.Role) (bool, error) {
	table, err := onboardingTable(survey)
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// CreateOnboardingRecord inserts the completion marker. A second submission
// is a no-op: the reported bool says whether a row was actually inserted.
func (s *Store) CreateOnboardingRecord(ctx context.Context, record model.OnboardingRecord) (bool, error) {
	table, err := onboardingTable(record.Survey)
	if err != nil {
		return false, err
	}
	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO `+table+` (user_id, answers, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, record.UserID, answers, record.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
