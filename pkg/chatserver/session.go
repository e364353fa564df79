package chatserver

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/mmcdole/campuschat/pkg/command"
	"github.com/mmcdole/campuschat/pkg/logging"
)

// Session is one accepted connection. It reads lines until LOGOUT, a kill
// or a read failure and dispatches each through the router.
type Session struct {
	ID     string
	conn   *LineConn
	caller *command.Caller
	server *Server
}

func newSession(s *Server, conn *LineConn) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		conn:   conn,
		caller: command.NewCaller(id, conn),
		server: s,
	}
}

// Username returns the logged-in user, or "" before login
func (sess *Session) Username() string {
	return sess.caller.Username()
}

func (sess *Session) run() {
	defer sess.teardown()

	for {
		line, err := sess.conn.ReadLine()
		if err != nil {
			sess.logReadError(err)
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sess.server.router.Handle(sess.caller, line) {
			sess.server.logger.Debug("Session finished by command", "session", sess.ID, "user", sess.Username())
			return
		}
	}
}

func (sess *Session) logReadError(err error) {
	switch {
	case errors.Is(err, io.EOF):
		sess.server.logger.Debug("Client disconnected", "session", sess.ID, "user", sess.Username())
	case errors.Is(err, net.ErrClosed):
		sess.server.logger.Debug("Connection closed", "session", sess.ID, "user", sess.Username())
	case errors.Is(err, ErrLineTooLong):
		sess.server.logger.Warn("Dropping client sending oversized line", "session", sess.ID, "remote", sess.conn.RemoteAddr(), "error", err)
	default:
		sess.server.logger.Warn("Read failed", "session", sess.ID, "user", sess.Username(), "error", err)
	}
}

// teardown runs exactly once, from the session goroutine
func (sess *Session) teardown() {
	username := sess.Username()
	sess.server.router.Disconnect(sess.caller)
	if err := sess.conn.Close(); err != nil {
		sess.server.logger.Debug("Error closing connection", "session", sess.ID, "error", err)
	}
	sess.server.removeSession(sess)

	logging.Access.LogSession("disconnect", sess.ID, "user", username, "remote", sess.conn.RemoteAddr())
}
