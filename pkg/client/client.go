// Package client is the interactive line client for the chat server. It
// forwards typed commands, renders server replies and reconnects after
// connection failures.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/campuschat/pkg/logging"
)

const logoutGrace = 2 * time.Second

// Config holds client configuration
type Config struct {
	Addr  string
	Retry RetryPolicy
	// Dial opens a connection; net.Dialer.DialContext when nil
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Client connects one user terminal to the server
type Client struct {
	config *Config
	in     io.Reader

	outMu sync.Mutex
	out   io.Writer

	mu       sync.Mutex
	conn     net.Conn
	stopping bool

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a client reading commands from in and printing to out
func New(config *Config, in io.Reader, out io.Writer) *Client {
	if config.Dial == nil {
		var d net.Dialer
		config.Dial = d.DialContext
	}
	return &Client{
		config: config,
		in:     in,
		out:    out,
		done:   make(chan struct{}),
	}
}

// IsAdminCommand reports whether line is an administrative command that
// this client refuses to send
func IsAdminCommand(line string) bool {
	return strings.HasPrefix(line, "REGISTER") || strings.HasPrefix(line, "KILL")
}

// Run connects and relays input until the server ends the session, the
// input is exhausted or ctx is done. Failing to make the first connection
// is an error; later connection failures trigger reconnection.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.config.Dial(ctx, "tcp", c.config.Addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.config.Addr, err)
	}
	c.attach(ctx, conn)
	defer c.closeConn()

	lines := make(chan string)
	go c.scanInput(lines)

	for {
		c.print("> ")
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if c.handleInput(line) {
				c.awaitLogout(ctx)
				return nil
			}
		}
	}
}

func (c *Client) scanInput(lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-c.done:
			return
		}
	}
}

// handleInput sends one typed line. It returns true once LOGOUT was sent.
func (c *Client) handleInput(line string) bool {
	if IsAdminCommand(line) {
		c.println("Command not permitted in this module: " + line)
		return false
	}
	if err := c.send(line); err != nil {
		c.println("Command not sent: " + err.Error())
		return false
	}
	return strings.HasPrefix(line, "LOGOUT")
}

func (c *Client) awaitLogout(ctx context.Context) {
	c.mu.Lock()
	c.stopping = true
	c.mu.Unlock()

	select {
	case <-c.done:
	case <-ctx.Done():
	case <-time.After(logoutGrace):
	}
}

func (c *Client) send(line string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("not connected")
	}
	_, err := conn.Write([]byte(line + "\n"))
	return err
}

// attach makes conn current and starts a reader bound to it
func (c *Client) attach(ctx context.Context, conn net.Conn) {
	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	go c.readLoop(ctx, conn)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	c.stopping = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) stop() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the server ended the session
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop(ctx context.Context, conn net.Conn) {
	r := &renderer{println: c.println}
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			c.readFailed(ctx, err)
			return
		}
		if r.render(strings.TrimRight(line, "\r\n")) {
			c.stop()
			return
		}
	}
}

func (c *Client) readFailed(ctx context.Context, err error) {
	c.mu.Lock()
	stopping := c.stopping
	c.mu.Unlock()

	switch {
	case stopping || ctx.Err() != nil || errors.Is(err, net.ErrClosed):
		c.stop()
	case errors.Is(err, io.EOF):
		c.println("Connection closed by server.")
		c.stop()
	default:
		c.println("Connection error: " + err.Error())
		c.reconnect(ctx)
	}
}

func (c *Client) reconnect(ctx context.Context) {
	var conn net.Conn
	err := c.config.Retry.Retry(ctx, func() error {
		c.println("Trying to reconnect...")
		var err error
		conn, err = c.config.Dial(ctx, "tcp", c.config.Addr)
		return err
	}, func(n int, err error) {
		logging.App.Debug("Reconnect attempt failed", "attempt", n, "addr", c.config.Addr, "error", err)
		c.println(fmt.Sprintf("Reconnect failed, retrying in %s...", c.config.Retry.delay()))
	})
	if err != nil {
		c.stop()
		return
	}

	logging.App.Info("Reconnected", "addr", c.config.Addr)
	c.println("Reconnected. Log in again to resume.")
	c.attach(ctx, conn)
}

func (c *Client) print(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprint(c.out, s)
}

func (c *Client) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, s)
}
