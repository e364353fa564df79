// Package command implements the chat protocol: it parses command lines,
// applies role checks and drives the user directory, offline queue and
// presence registry on behalf of a Caller.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/metrics"
	"github.com/mmcdole/campuschat/pkg/offline"
	"github.com/mmcdole/campuschat/pkg/presence"
	"github.com/mmcdole/campuschat/pkg/users"
)

// Command verbs
const (
	VerbLogin     = "LOGIN"
	VerbHelp      = "HELP"
	VerbRegister  = "REGISTER"
	VerbMessage   = "MESSAGE"
	VerbLogout    = "LOGOUT"
	VerbListUsers = "LIST_USERS"
	VerbKill      = "KILL"
)

const (
	// InvalidCommand is the reply to an unknown verb from a logged-in caller
	InvalidCommand = "Invalid command. Type HELP for the list of available commands."
	// KillReason is sent to every killed session
	KillReason = "You were disconnected by a technician."
)

// Router dispatches command lines. It holds no per-caller state, so one
// Router serves every session and the console concurrently.
type Router struct {
	users    *users.Directory
	queue    *offline.Queue
	presence *presence.Registry
	metrics  *metrics.Metrics
}

// NewRouter creates a Router over the shared registries. m may be nil.
func NewRouter(directory *users.Directory, queue *offline.Queue, registry *presence.Registry, m *metrics.Metrics) *Router {
	return &Router{
		users:    directory,
		queue:    queue,
		presence: registry,
		metrics:  m,
	}
}

// Handle runs one command line for c and writes the replies to c.Out.
// It returns true when c's session must end (LOGOUT or being killed on
// the network side).
func (r *Router) Handle(c *Caller, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	verb := fields[0]

	logging.App.Debug("Received command", "session", c.ID, "user", c.Username(), "verb", verb, "origin", c.origin())

	var (
		err  error
		done bool
	)
	switch {
	case verb == VerbLogin:
		err = r.login(c, fields)
	case verb == VerbHelp:
		r.help(c)
	case !c.Authenticated():
		err = fail("AUTH", ErrNotAuthenticated, "You must be logged in to run commands.")
	case verb == VerbRegister:
		err = r.register(c, fields)
	case verb == VerbMessage:
		err = r.message(c, line)
	case verb == VerbLogout:
		done = r.logout(c)
	case verb == VerbListUsers:
		r.listUsers(c)
	case verb == VerbKill:
		done, err = r.kill(c, fields)
	default:
		verb = "INVALID"
		r.reply(c, InvalidCommand)
	}

	r.metrics.Command(verb, c.origin())
	r.audit(c, verb, err)

	var f *Failure
	if errors.As(err, &f) {
		r.reply(c, f.Error())
	}
	return done
}

// Disconnect releases whatever c holds in the presence registry. Sessions
// call it exactly once when they terminate.
func (r *Router) Disconnect(c *Caller) {
	if c.user == nil {
		return
	}
	if c.Console {
		r.presence.ClearConsoleAuthenticated(c.user.Username)
	} else if r.presence.Release(c.user.Username, c.Out) {
		logging.App.Debug("Released presence", "session", c.ID, "user", c.user.Username)
	}
	c.user = nil
}

func (r *Router) reply(c *Caller, lines ...string) {
	for _, line := range lines {
		if err := c.Out.WriteLine(line); err != nil {
			logging.App.Debug("Reply not delivered", "session", c.ID, "error", err)
			return
		}
	}
}

func (r *Router) audit(c *Caller, verb string, err error) {
	status := "success"
	var details []interface{}
	if err != nil {
		status = "fail"
		var f *Failure
		if errors.As(err, &f) {
			details = append(details, "reason", f.Reason)
		}
	}
	details = append(details, "session", c.ID, "origin", c.origin())
	logging.Access.LogCommand(verb, c.Username(), status, details...)
}

func (r *Router) help(c *Caller) {
	if c.Console {
		r.reply(c, consoleHelp...)
		return
	}
	r.reply(c, networkHelp...)
}

func (r *Router) login(c *Caller, fields []string) error {
	if len(fields) < 3 {
		return fail(VerbLogin, ErrInvalidFormat, "Invalid format. Use: "+usageLogin)
	}
	username, password := fields[1], fields[2]

	u, err := r.users.Authenticate(username, password)
	if err == nil && c.Console && u.Role != users.RoleTechnician {
		err = ErrUnauthorized
	}
	if err != nil {
		r.metrics.Login(false)
		if c.Console {
			return fail(VerbLogin, err, "Invalid username or password, or you lack technician permissions.")
		}
		return fail(VerbLogin, err, "Invalid username or password.")
	}
	r.metrics.Login(true)

	// Switching identity on the same connection gives up the old one first
	if c.user != nil && c.user.Username != u.Username {
		r.Disconnect(c)
	}

	if c.Console {
		c.user = u
		r.presence.MarkConsoleAuthenticated(u.Username)
		r.reply(c, "LOGIN SUCCESS")
		logging.App.Info("Console login", "user", u.Username)
		return nil
	}

	var drained []string
	written, err := r.presence.Login(u.Username, c.Out, func() []string {
		drained = r.queue.Drain(u.Username)
		return append([]string{"LOGIN SUCCESS"}, drained...)
	})
	c.user = u
	if err != nil {
		// Anything not written goes back in front of the queue
		sent := written - 1
		if sent < 0 {
			sent = 0
		}
		r.queue.Requeue(u.Username, drained[sent:])
		logging.App.Warn("Login reply not delivered", "session", c.ID, "user", u.Username, "requeued", len(drained)-sent, "error", err)
		drained = drained[:sent]
	}
	r.metrics.Message("drained", len(drained))
	logging.App.Info("User logged in", "session", c.ID, "user", u.Username, "role", u.Role, "offline_messages", len(drained))
	return nil
}

func (r *Router) register(c *Caller, fields []string) error {
	if len(fields) < 4 {
		return fail(VerbRegister, ErrInvalidFormat, "Invalid format. Use: "+usageRegister)
	}
	username, password, roleName := fields[1], fields[2], fields[3]
	attribute := ""
	if len(fields) > 4 {
		attribute = fields[4]
	}

	_, err := r.users.Register(c.user.Role, username, password, roleName, attribute)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateUser):
		return fail(VerbRegister, err, "User already registered.")
	case errors.Is(err, ErrUnauthorized):
		return fail(VerbRegister, err, "Only technicians can register new users.")
	case errors.Is(err, ErrInvalidRole):
		return fail(VerbRegister, err, "Invalid user type. Use: Technician, Professor or Student.")
	case errors.Is(err, ErrInvalidFormat):
		role, _ := users.ParseRole(roleName)
		switch role {
		case users.RoleProfessor:
			return fail(VerbRegister, err, "Professors must provide a qualification.")
		case users.RoleStudent:
			return fail(VerbRegister, err, "Students must provide an enrollment year.")
		}
		return fail(VerbRegister, err, "Invalid format. Use: "+usageRegister)
	default:
		return fail(VerbRegister, err, err.Error())
	}

	r.queue.Ensure(username)
	r.metrics.Registered()
	r.reply(c, "REGISTER SUCCESS")
	return nil
}

func (r *Router) message(c *Caller, line string) error {
	if c.Console {
		return fail(VerbMessage, ErrNotPermitted, "not permitted from the server console")
	}

	// Only the first two spaces delimit; the text keeps its own spacing
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return fail(VerbMessage, ErrInvalidFormat, "Invalid format. Use: "+usageMessage)
	}
	recipient, text := parts[1], parts[2]

	formatted := fmt.Sprintf("MESSAGE %s: %s", c.user.Username, text)
	delivered := r.presence.Deliver(recipient, formatted, func() {
		r.queue.Enqueue(recipient, formatted)
	})

	if delivered {
		r.metrics.Message("direct", 1)
	} else {
		r.metrics.Message("queued", 1)
	}
	logging.App.Debug("Routed message", "from", c.user.Username, "to", recipient, "direct", delivered)
	return nil
}

func (r *Router) logout(c *Caller) bool {
	username := c.user.Username
	r.Disconnect(c)
	r.reply(c, "LOGOUT SUCCESS")
	logging.App.Info("User logged out", "session", c.ID, "user", username, "origin", c.origin())

	// The console goes back to its login prompt instead of ending
	return !c.Console
}

func (r *Router) listUsers(c *Caller) {
	all := r.users.List()
	lines := make([]string, 0, len(all)+2)
	lines = append(lines, "USERS_LIST")
	for _, u := range all {
		lines = append(lines, FormatUserLine(u, r.presence.Status(u.Username)))
	}
	lines = append(lines, "END_USERS_LIST")
	r.reply(c, lines...)
}

// FormatUserLine renders one LIST_USERS entry:
// "<user> (<role>) - [<label>: <attr> - ]<status>"
func FormatUserLine(u users.User, status presence.Status) string {
	line := fmt.Sprintf("%s (%s) - ", u.Username, u.Role)
	if label := u.Role.AttributeLabel(); label != "" {
		line += fmt.Sprintf("%s: %s - ", label, u.Attribute)
	}
	return line + status.String()
}

func (r *Router) kill(c *Caller, fields []string) (bool, error) {
	if !c.user.Role.CanKill() {
		return false, fail(VerbKill, ErrUnauthorized, "Only technicians can use this command.")
	}
	if len(fields) < 2 {
		return false, fail(VerbKill, ErrInvalidFormat, "Invalid format. Use: "+usageKill)
	}

	target := fields[1]
	if target == "ALL" {
		killed := r.presence.KillAll(KillReason)
		r.metrics.Killed(len(killed))
		logging.App.Info("Killed all sessions", "by", c.user.Username, "count", len(killed))

		selfKilled := false
		for _, name := range killed {
			if !c.Console && name == c.user.Username {
				selfKilled = true
			}
		}
		r.reply(c, "KILL SUCCESS: All users were disconnected.")
		return selfKilled, nil
	}

	if !r.presence.Kill(target, KillReason) {
		return false, fail(VerbKill, ErrTargetNotFound, fmt.Sprintf("User %s is not online.", target))
	}
	r.metrics.Killed(1)
	logging.App.Info("Killed session", "by", c.user.Username, "target", target)

	r.reply(c, fmt.Sprintf("KILL SUCCESS: User %s was disconnected.", target))
	return !c.Console && target == c.user.Username, nil
}
