package crew

import "time"

type Role string

const (
	RoleCrew       Role = "crew"       // Field crew member
	RoleSupervisor Role = "supervisor" // Reviews timesheets, overtime and forced check-ins
	RoleAdmin      Role = "admin"      // Full access
)

type Member struct {
	ID                 string
	Email              string
	PasswordHash       *string
	FullName           string
	Role               Role
	OvertimeHourlyRate *float64 // nil means no overtime benefit
	MealVoucherEnabled bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSupervisor checks if the member can review other members' records
func (m *Member) IsSupervisor() bool {
	return m.Role == RoleSupervisor || m.Role == RoleAdmin
}

// HasOvertimeBenefit checks if overtime can be requested
func (m *Member) HasOvertimeBenefit() bool {
	return m.OvertimeHourlyRate != nil && *m.OvertimeHourlyRate > 0
}

// IsSupervisorRole checks a role taken from token claims
func IsSupervisorRole(role string) bool {
	return Role(role) == RoleSupervisor || Role(role) == RoleAdmin
}
