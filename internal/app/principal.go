package app

import "quizify-service/internal/domain"

// Principal is the authenticated caller. It is built once per request from a verified token
// and passed explicitly to every use case.
type Principal struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	switch p.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleParticipant:
		return false
	}
	return false
}

// HasRole reports whether the principal's role is one of allowed.
func (p Principal) HasRole(allowed ...domain.Role) bool {
	for _, role := range allowed {
		if p.Role == role {
			return true
		}
	}
	return false
}
