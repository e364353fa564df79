package client

import "strings"

type block int

const (
	blockNone block = iota
	blockUsers
	blockHelp
)

// renderer turns server lines into terminal output. Multi-line replies are
// framed by USERS_LIST/END_USERS_LIST and HELP:/blank line.
type renderer struct {
	println func(string)
	block   block
}

// render prints one server line and reports whether the session is over
func (r *renderer) render(line string) bool {
	switch r.block {
	case blockUsers:
		if line == "END_USERS_LIST" {
			r.block = blockNone
			return false
		}
		r.println(line)
		return false
	case blockHelp:
		if line == "" {
			r.block = blockNone
			return false
		}
		r.println(line)
		return false
	}

	switch {
	case line == "USERS_LIST":
		r.println("Registered users:")
		r.block = blockUsers
	case strings.HasPrefix(line, "HELP:"):
		r.println("Available commands:")
		r.block = blockHelp
	case strings.HasPrefix(line, "KILLED"):
		r.println(line)
		return true
	case strings.HasPrefix(line, "LOGOUT SUCCESS"):
		r.println(line)
		return true
	default:
		r.println(line)
	}
	return false
}
