package onboarding

import (
	"fmt"

	"reflectify/server/internal/model"
)

// Step is one screen of the questionnaire. Fields are the answer keys the
// step requires before the client may advance.
type Step struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

var studentSteps = []Step{
	{
		Name:   "about_you",
		Title:  "About you",
		Fields: []string{"grade_level", "age_band"},
	},
	{
		Name:   "wellbeing_baseline",
		Title:  "How you're doing",
		Fields: []string{"sleep_quality", "stress_level", "mood_today"},
	},
	{
		Name:   "support",
		Title:  "Support around you",
		Fields: []string{"trusted_adult", "wellbeing_goal"},
	},
}

var teacherSteps = []Step{
	{
		Name:   "classroom",
		Title:  "Your classroom",
		Fields: []string{"subjects", "years_teaching", "class_size"},
	},
	{
		Name:   "wellbeing_focus",
		Title:  "Wellbeing focus",
		Fields: []string{"class_concerns", "checkin_frequency"},
	},
}

// Steps returns the questionnaire for a role. Admins have none.
func Steps(role model.Role) ([]Step, error) {
	switch role {
	case model.RoleStudent:
		return studentSteps, nil
	case model.RoleTeacher:
		return teacherSteps, nil
	default:
		return nil, fmt.Errorf("no survey for role %q", role)
	}
}
