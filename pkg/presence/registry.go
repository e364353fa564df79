// Package presence tracks which users are connected and owns the routing
// of lines to their connections. A username is bound to at most one
// connection; logging in again elsewhere ends the older one.
package presence

import (
	"sort"
	"sync"

	"github.com/mmcdole/campuschat/pkg/logging"
)

// Channel is the outbound side of a user's connection
type Channel interface {
	WriteLine(line string) error
	Close() error
}

// Status is the presence state shown in user listings
type Status int

const (
	StatusOffline Status = iota
	StatusOnline
	StatusConsole
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusConsole:
		return "Online-on-console"
	default:
		return "Offline"
	}
}

// Registry maps logged-in usernames to their channels and records which
// technicians are logged in on the server console. Writes that must not race
// with a logout or kill happen while the registry lock is held.
type Registry struct {
	mu      sync.Mutex
	online  map[string]Channel
	console map[string]struct{}
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		online:  make(map[string]Channel),
		console: make(map[string]struct{}),
	}
}

// MarkOnline registers ch for username, replacing any previous channel
func (r *Registry) MarkOnline(username string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[username] = ch
}

// MarkOffline removes username's channel; absent entries are ignored
func (r *Registry) MarkOffline(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.online, username)
}

// Release removes username only while it is still bound to ch, so a session
// ending late cannot evict a newer login from another connection.
func (r *Registry) Release(username string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.online[username]; ok && cur == ch {
		delete(r.online, username)
		return true
	}
	return false
}

// ChannelFor returns the channel registered for username
func (r *Registry) ChannelFor(username string) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.online[username]
	return ch, ok
}

// IsOnline reports whether username has a live network session
func (r *Registry) IsOnline(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.online[username]
	return ok
}

// SupersededReason is sent to a session whose username logs in elsewhere
const SupersededReason = "You logged in from another connection."

// Login registers ch for username and writes the lines returned by preamble
// before any other writer can reach ch through the registry. A different
// channel already bound to username is sent "KILLED: <SupersededReason>" and
// closed. Login returns how many preamble lines were written; on error the
// lines from that count on were not.
func (r *Registry) Login(username string, ch Channel, preamble func() []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.online[username]; ok && prev != ch {
		r.killLocked(username, SupersededReason)
	}
	r.online[username] = ch
	if preamble == nil {
		return 0, nil
	}

	written := 0
	for _, line := range preamble() {
		if err := ch.WriteLine(line); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Deliver writes line to username's channel when online. Otherwise, or when
// the write fails, fallback runs under the same lock. It reports whether the
// line reached a live channel.
func (r *Registry) Deliver(username, line string, fallback func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.online[username]; ok {
		err := ch.WriteLine(line)
		if err == nil {
			return true
		}
		logging.App.Warn("Direct delivery failed, queueing instead", "recipient", username, "error", err)
	}
	if fallback != nil {
		fallback()
	}
	return false
}

// Kill removes username, notifies it with "KILLED: <reason>" and closes its
// channel. It returns false if username was not online.
func (r *Registry) Kill(username, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.killLocked(username, reason)
}

func (r *Registry) killLocked(username, reason string) bool {
	ch, ok := r.online[username]
	if !ok {
		return false
	}
	delete(r.online, username)

	if err := ch.WriteLine("KILLED: " + reason); err != nil {
		logging.App.Debug("Could not notify killed user", "username", username, "error", err)
	}
	if err := ch.Close(); err != nil {
		logging.App.Debug("Error closing killed connection", "username", username, "error", err)
	}
	return true
}

// KillAll kills every user in a snapshot taken at call time and returns the
// usernames actually killed. Users who log in after the snapshot survive.
func (r *Registry) KillAll(reason string) []string {
	var killed []string
	for _, username := range r.Snapshot() {
		if r.Kill(username, reason) {
			killed = append(killed, username)
		}
	}
	return killed
}

// Snapshot returns the currently online usernames, sorted
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.online))
	for name := range r.online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of online network users
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.online)
}

// CloseAll closes every registered channel and empties the map
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, ch := range r.online {
		_ = ch.Close()
		delete(r.online, name)
	}
}

// MarkConsoleAuthenticated records username as logged in on the console
func (r *Registry) MarkConsoleAuthenticated(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console[username] = struct{}{}
}

// ClearConsoleAuthenticated removes username from the console set
func (r *Registry) ClearConsoleAuthenticated(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.console, username)
}

// IsConsoleAuthenticated reports whether username is logged in on the console
func (r *Registry) IsConsoleAuthenticated(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.console[username]
	return ok
}

// Status returns username's presence; a network session wins over the console
func (r *Registry) Status(username string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.online[username]; ok {
		return StatusOnline
	}
	if _, ok := r.console[username]; ok {
		return StatusConsole
	}
	return StatusOffline
}
