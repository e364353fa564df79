package command

import (
	"github.com/mmcdole/campuschat/pkg/presence"
	"github.com/mmcdole/campuschat/pkg/users"
)

// Caller is the issuing side of a command: a network session or the server
// console. A Caller is owned by a single goroutine.
type Caller struct {
	ID      string
	Out     presence.Channel
	Console bool

	user *users.User
}

// NewCaller creates an unauthenticated network caller writing to out
func NewCaller(id string, out presence.Channel) *Caller {
	return &Caller{ID: id, Out: out}
}

// NewConsoleCaller creates an unauthenticated console caller. Its output
// channel is local and never registered for routing.
func NewConsoleCaller(id string, out presence.Channel) *Caller {
	return &Caller{ID: id, Out: out, Console: true}
}

// Authenticated reports whether a login succeeded on this caller
func (c *Caller) Authenticated() bool {
	return c.user != nil
}

// Username returns the authenticated username, or "" before login
func (c *Caller) Username() string {
	if c.user == nil {
		return ""
	}
	return c.user.Username
}

// User returns the authenticated user, or nil before login
func (c *Caller) User() *users.User {
	return c.user
}

func (c *Caller) origin() string {
	if c.Console {
		return "console"
	}
	return "network"
}
