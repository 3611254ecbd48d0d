package models

// Role is the access level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user account in the system.
type User struct {
	ID           int64
	Email        string
	PasswordHash string // Never expose this to the client
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	Image        string // Stored filename in the "users" namespace, empty if none
}
