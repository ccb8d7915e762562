package model

import (
	"time"

	"github.com/google/uuid"
)

// Role names the closed set of actors in the claim pipeline. Roles
// are stored upper-case in the `users` table and in the JWT "role"
// claim. There is no mechanism for defining additional roles at
// runtime.
type Role string

const (
	RoleLecturer    Role = "LECTURER"    // submits monthly claims
	RoleCoordinator Role = "COORDINATOR" // verifies pending claims
	RoleManager     Role = "MANAGER"     // approves verified claims
	RoleHR          Role = "HR"          // activates accounts, runs reports
)

// ValidRole reports whether s names one of the four known roles.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleLecturer, RoleCoordinator, RoleManager, RoleHR:
		return true
	}
	return false
}

// User represents an account record as stored in the `users` table.
// Passwords are kept only as bcrypt hashes. A lecturer created
// through self-registration starts with IsApproved=false and cannot
// authenticate until HR flips the flag; accounts created by HR are
// approved immediately.
//
// Fields:
//  ID              – opaque primary key (UUID).
//  Name            – display name.
//  Email           – unique email, stored lower-cased.
//  PasswordHash    – bcrypt hash of the password.
//  Role            – one of the Role constants.
//  HourlyRateCents – lecturer pay rate in cents per hour.
//  IsApproved      – login permission; only meaningful for lecturers.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uuid.UUID // users.id
	Name            string    // users.name
	Email           string    // users.email
	PasswordHash    string    // users.password_hash
	Role            Role      // users.role
	HourlyRateCents int64     // users.hourly_rate_cents
	IsApproved      bool      // users.is_approved
	CreatedAt       time.Time // users.created_at
	UpdatedAt       time.Time // users.updated_at
}
