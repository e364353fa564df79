// Package chatserver accepts chat connections and runs one session per
// connection on top of the command router.
package chatserver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	golog "github.com/fclairamb/go-log"

	"github.com/mmcdole/campuschat/pkg/command"
	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/metrics"
	"github.com/mmcdole/campuschat/pkg/offline"
	"github.com/mmcdole/campuschat/pkg/presence"
	"github.com/mmcdole/campuschat/pkg/users"
)

// Config holds chat server configuration
type Config struct {
	ListenAddr    string
	Port          int
	MaxLineLength int           // Longest accepted command line in bytes
	WriteTimeout  time.Duration // Bound on a single write to a client
}

// Server owns the listener, the live sessions and the shared registries
type Server struct {
	config   *Config
	users    *users.Directory
	queue    *offline.Queue
	presence *presence.Registry
	router   *command.Router
	metrics  *metrics.Metrics
	logger   golog.Logger

	listener  net.Listener
	startTime time.Time
	active    atomic.Int32
	shutdown  chan struct{}
	stopOnce  sync.Once

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// New creates a chat server over the given registries. m may be nil.
func New(config *Config, directory *users.Directory, queue *offline.Queue, registry *presence.Registry, m *metrics.Metrics) (*Server, error) {
	if config == nil {
		return nil, errors.New("server config is required")
	}
	if directory == nil || queue == nil || registry == nil {
		return nil, errors.New("user directory, offline queue and presence registry are required")
	}

	return &Server{
		config:    config,
		users:     directory,
		queue:     queue,
		presence:  registry,
		router:    command.NewRouter(directory, queue, registry, m),
		metrics:   m,
		logger:    logging.App.With("component", "server"),
		startTime: time.Now(),
		shutdown:  make(chan struct{}),
		sessions:  make(map[string]*Session),
	}, nil
}

// Router returns the command router shared by sessions and the console
func (s *Server) Router() *command.Router {
	return s.router
}

// Addr returns the listening address once the server is serving
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe listens on the configured address and serves until Shutdown
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.config.ListenAddr, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Chat server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	sess := newSession(s, NewLineConn(conn, s.config.MaxLineLength, s.config.WriteTimeout))

	s.mu.Lock()
	select {
	case <-s.shutdown:
		s.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	s.sessions[sess.ID] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	s.active.Add(1)
	s.metrics.ConnectionOpened()
	logging.Access.LogSession("connect", sess.ID, "remote", conn.RemoteAddr())
	s.logger.Debug("New connection", "session", sess.ID, "remote", conn.RemoteAddr())

	go sess.run()
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.mu.Unlock()

	if ok {
		s.active.Add(-1)
		s.metrics.ConnectionClosed()
		s.wg.Done()
	}
}

// Shutdown stops accepting, closes every connection, waits for sessions to
// finish and writes both stores out.
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() {
		close(s.shutdown)
	})

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	s.logger.Info("Closing client sessions", "count", len(open))
	s.presence.CloseAll()
	for _, sess := range open {
		_ = sess.conn.Close()
	}
	s.wg.Wait()

	var errs []error
	if err := s.users.Flush(); err != nil {
		s.metrics.PersistError("users")
		errs = append(errs, fmt.Errorf("saving users: %w", err))
	}
	if err := s.queue.Flush(); err != nil {
		s.metrics.PersistError("offline")
		errs = append(errs, fmt.Errorf("saving offline messages: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("Chat server stopped")
	return nil
}

// GetActiveConnections returns the number of open client connections
func (s *Server) GetActiveConnections() int32 {
	return s.active.Load()
}

// GetStartTime returns when the server was created
func (s *Server) GetStartTime() time.Time {
	return s.startTime
}

// GetOnlineUsers returns the number of users logged in over the network
func (s *Server) GetOnlineUsers() int {
	return s.presence.Count()
}
