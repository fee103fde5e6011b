package types

import "time"

// Role is the authorization level of an account.
type Role string

// Supported roles.
const (
	// RoleAdministrator may create and delete documents.
	RoleAdministrator Role = "administrator"

	// RoleManager is the default role assigned at provisioning time.
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleManager:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// Users are provisioned ahead of time and never mutated by the API.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was provisioned.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
