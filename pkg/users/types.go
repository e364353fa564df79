package users

import "fmt"

// Role is the closed set of user kinds recognised by the server
type Role int

const (
	// RoleTechnician may register users and kill sessions
	RoleTechnician Role = iota + 1
	// RoleProfessor carries a qualification attribute
	RoleProfessor
	// RoleStudent carries an enrollment year attribute
	RoleStudent
)

// ParseRole converts a role name to a Role. The Portuguese names used by
// older data files are accepted as aliases.
func ParseRole(s string) (Role, error) {
	switch s {
	case "Technician", "Tecnico":
		return RoleTechnician, nil
	case "Professor":
		return RoleProfessor, nil
	case "Student", "Aluno":
		return RoleStudent, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleTechnician:
		return "Technician"
	case RoleProfessor:
		return "Professor"
	case RoleStudent:
		return "Student"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the three recognised roles
func (r Role) Valid() bool {
	return r >= RoleTechnician && r <= RoleStudent
}

// CanRegister returns true if the role may create users
func (r Role) CanRegister() bool {
	return r == RoleTechnician
}

// CanKill returns true if the role may disconnect other users
func (r Role) CanKill() bool {
	return r == RoleTechnician
}

// RequiresAttribute returns true if records of this role carry an attribute
func (r Role) RequiresAttribute() bool {
	return r == RoleProfessor || r == RoleStudent
}

// AttributeLabel names the role attribute in user listings
func (r Role) AttributeLabel() string {
	switch r {
	case RoleProfessor:
		return "Qualification"
	case RoleStudent:
		return "Enrollment year"
	default:
		return ""
	}
}

// User represents a registered account
type User struct {
	Username  string
	Password  string
	Role      Role
	Attribute string // empty for technicians
}

// Source represents durable storage for the user directory
type Source interface {
	// LoadUsers returns every stored user in storage order
	LoadUsers() ([]*User, error)
	// SaveUsers replaces the stored set with users
	SaveUsers(users []*User) error
}
