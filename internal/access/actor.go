package access

import (
	"github.com/google/uuid"
)

// Role is the closed set of actor roles. Anything outside the set parses to
// RoleNone, which holds no scope at all; an unrecognized role can never fall
// through to full access.
type Role string

const (
	RoleNone         Role = ""
	RoleAdmin        Role = "admin"
	RoleStaff        Role = "staff"
	RoleNurse        Role = "nurse"
	RolePractitioner Role = "practitioner"
	RolePatient      Role = "patient"
)

// ParseRole maps a wire role string onto the closed set. "doctor" is accepted
// as a legacy alias for practitioner.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "staff":
		return RoleStaff
	case "nurse":
		return RoleNurse
	case "practitioner", "doctor":
		return RolePractitioner
	case "patient":
		return RolePatient
	}
	return RoleNone
}

// Actor is the authenticated caller as resolved by the upstream gateway.
// For patient actors ID is the patient record id. PractitionerID is set only
// for practitioner actors and is immutable for the life of the account; it is
// the sole scoping key for their data access.
type Actor struct {
	ID             uuid.UUID
	Role           Role
	PractitionerID uuid.UUID
}

// fullScope roles see and mutate every record.
func (a Actor) fullScope() bool {
	switch a.Role {
	case RoleAdmin, RoleStaff, RoleNurse:
		return true
	}
	return false
}
