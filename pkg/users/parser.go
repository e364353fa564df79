package users

import (
	"fmt"
	"strings"
)

// ParseRecord parses one stored user line: "username password role [attribute]"
func ParseRecord(line string) (*User, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 fields, got %d", ErrInvalidFormat, len(fields))
	}

	role, err := ParseRole(fields[2])
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: fields[0],
		Password: fields[1],
		Role:     role,
	}
	if role.RequiresAttribute() {
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: %s record without attribute", ErrInvalidFormat, role)
		}
		u.Attribute = fields[3]
	}
	return u, nil
}

// FormatRecord renders u in the stored line format
func FormatRecord(u *User) string {
	line := u.Username + " " + u.Password + " " + u.Role.String()
	if u.Attribute != "" {
		line += " " + u.Attribute
	}
	return line
}
