package domain

// Role is the closed set of account roles.
type Role string

const (
	RoleUser           Role = "user"
	RoleContentCreator Role = "content_creator"
	RoleStateAdmin     Role = "state_admin"
	RoleCountryAdmin   Role = "country_admin"
	RoleSuperadmin     Role = "superadmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContentCreator, RoleStateAdmin, RoleCountryAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// Capability is a permission checked by handlers instead of comparing role strings.
type Capability string

const (
	CapViewAdminQuizzes    Capability = "view_admin_quizzes"
	CapCreateQuizzes       Capability = "create_quizzes"
	CapModerateQuizzes     Capability = "moderate_quizzes"
	CapViewGlobalAnalytics Capability = "view_global_analytics"
	CapViewFraudLogs       Capability = "view_fraud_logs"
	CapViewAuditLogs       Capability = "view_audit_logs"
)

var capabilities = map[Capability][]Role{
	CapViewAdminQuizzes:    {RoleContentCreator, RoleStateAdmin, RoleCountryAdmin, RoleSuperadmin},
	CapCreateQuizzes:       {RoleContentCreator, RoleStateAdmin, RoleCountryAdmin, RoleSuperadmin},
	CapModerateQuizzes:     {RoleStateAdmin, RoleCountryAdmin, RoleSuperadmin},
	CapViewGlobalAnalytics: {RoleSuperadmin},
	CapViewFraudLogs:       {RoleSuperadmin},
	CapViewAuditLogs:       {RoleSuperadmin},
}

// Can reports whether role holds capability.
func Can(role Role, c Capability) bool {
	for _, r := range capabilities[c] {
		if r == role {
			return true
		}
	}
	return false
}

// Scope is the regional restriction applied to an admin's quiz views.
type Scope struct {
	TargetState   string
	TargetCountry string
}

// Allows reports whether a quiz falls inside the scope.
func (s Scope) Allows(q Quiz) bool {
	if s.TargetState != "" && q.TargetState != s.TargetState {
		return false
	}
	if s.TargetCountry != "" && q.TargetCountry != s.TargetCountry {
		return false
	}
	return true
}

// ScopeFor derives the regional scope of a user. Unscoped roles get the zero Scope.
func ScopeFor(u User) Scope {
	switch u.Role {
	case RoleStateAdmin:
		return Scope{TargetState: u.Region}
	case RoleCountryAdmin:
		return Scope{TargetCountry: u.Region}
	}
	return Scope{}
}
