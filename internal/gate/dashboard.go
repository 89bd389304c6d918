package gate

import (
	"fmt"

	"reflectify/server/internal/model"
)

type Dashboard string

const (
	DashboardStudent Dashboard = "student"
	DashboardTeacher Dashboard = "teacher"
	DashboardAdmin   Dashboard = "admin"
)

// SelectDashboard maps a role to its dashboard. The switch is exhaustive over
// the role enumeration so an added role fails loudly instead of rendering a
// wrong screen.
func SelectDashboard(role model.Role) (Dashboard, error) {
	switch role {
	case model.RoleStudent:
		return DashboardStudent, nil
	case model.RoleTeacher:
		return DashboardTeacher, nil
	case model.RoleAdmin:
		return DashboardAdmin, nil
	default:
		return "", fmt.Errorf("no dashboard for role %q", role)
	}
}
