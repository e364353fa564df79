package command

import (
	"errors"

	"github.com/mmcdole/campuschat/pkg/users"
)

var (
	// ErrTargetNotFound is returned when KILL names a user that is not online
	ErrTargetNotFound = errors.New("target not found")

	// ErrNotAuthenticated is returned for commands that need a login
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotPermitted is returned for commands the console does not accept
	ErrNotPermitted = errors.New("not permitted")

	// Directory errors surfaced unchanged
	ErrInvalidFormat      = users.ErrInvalidFormat
	ErrUnauthorized       = users.ErrUnauthorized
	ErrInvalidCredentials = users.ErrInvalidCredentials
	ErrDuplicateUser      = users.ErrDuplicateUser
	ErrInvalidRole        = users.ErrInvalidRole
)

// Failure is a recoverable command error. It is written to the caller as
// "<Verb> FAIL: <Reason>" and never ends the session.
type Failure struct {
	Verb   string
	Kind   error
	Reason string
}

func (f *Failure) Error() string {
	return f.Verb + " FAIL: " + f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

func fail(verb string, kind error, reason string) *Failure {
	return &Failure{Verb: verb, Kind: kind, Reason: reason}
}
