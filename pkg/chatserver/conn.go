package chatserver

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLineTooLong is returned by ReadLine when a peer sends a line longer
// than the configured maximum
var ErrLineTooLong = errors.New("line too long")

// LineConn wraps a net.Conn with newline framing. Writes are serialised by
// a mutex because a connection is written by its own session, by other
// sessions delivering messages and by technicians killing it.
type LineConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	maxLine      int
	writeTimeout time.Duration

	mu        sync.Mutex // Protects writes to conn
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewLineConn wraps conn. A zero writeTimeout disables write deadlines.
func NewLineConn(conn net.Conn, maxLine int, writeTimeout time.Duration) *LineConn {
	return &LineConn{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, 4096),
		maxLine:      maxLine,
		writeTimeout: writeTimeout,
	}
}

// ReadLine returns the next line without its terminator. A trailing
// carriage return is stripped. Reads are only issued by the owning session.
func (c *LineConn) ReadLine() (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return "", err
		}
		sb.Write(chunk)
		if c.maxLine > 0 && sb.Len() > c.maxLine {
			return "", fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, c.maxLine)
		}
		if !isPrefix {
			break
		}
	}
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

// WriteLine writes line followed by a newline
func (c *LineConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

// Close closes the underlying connection, unblocking any pending read or
// write. Closing twice is harmless.
func (c *LineConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the remote network address
func (c *LineConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
