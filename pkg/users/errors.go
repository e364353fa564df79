package users

import "errors"

var (
	// ErrInvalidFormat is returned when required fields are missing
	ErrInvalidFormat = errors.New("invalid format")

	// ErrUnauthorized is returned when the requester's role lacks a capability
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when the username or password is incorrect
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrDuplicateUser is returned when registering an existing username
	ErrDuplicateUser = errors.New("user already registered")

	// ErrInvalidRole is returned for role names outside the known set
	ErrInvalidRole = errors.New("invalid user type")
)
