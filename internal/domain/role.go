package domain

// Role is the closed set of operator roles. Authorization is a plain
// (role, action) lookup, no reflection or dynamic dispatch.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleSeller    Role = "SELLER"
	RoleValidator Role = "VALIDATOR"
)

type Action string

const (
	ActionIssueTicket     Action = "issue_ticket"
	ActionValidateScan    Action = "validate_scan"
	ActionVoidTicket      Action = "void_ticket"
	ActionManageEvents    Action = "manage_events"
	ActionViewValidations Action = "view_validations"
)

// ParseRole maps a claim string onto a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleSeller, RoleValidator:
		return Role(s), true
	}
	return "", false
}

// Can reports whether the role is allowed to perform the action.
func (r Role) Can(a Action) bool {
	if r == RoleAdmin {
		return true
	}
	switch r {
	case RoleSeller:
		return a == ActionIssueTicket
	case RoleValidator:
		return a == ActionValidateScan || a == ActionViewValidations
	}
	return false
}
