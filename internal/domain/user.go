package domain

import "time"

// UserRole enumerates staff roles.
type UserRole string

const (
	UserRoleAgent   UserRole = "agent"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAgent, UserRoleManager, UserRoleAdmin:
		return true
	}
	return false
}

// User is a staff member who reports, owns and works tickets. Studio
// customers are not users; they only appear as contact fields on a ticket.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is a signed staff access token and the claims it carries.
type Token struct {
	Value     string
	SubjectID string
	Role      UserRole
	ExpiresAt time.Time
}
