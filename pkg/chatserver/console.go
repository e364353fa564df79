package chatserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mmcdole/campuschat/pkg/command"
)

const consoleLoginPrompt = "LOGIN <username> <password>: "

// consoleOutput is the console's reply channel. It is never registered in
// the presence registry, so nothing is routed to it.
type consoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *consoleOutput) WriteLine(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := fmt.Fprintln(o.w, line)
	return err
}

func (o *consoleOutput) Close() error {
	return nil
}

func (o *consoleOutput) prompt(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprint(o.w, p)
}

// Console runs the administrative console: a privileged caller that reads
// commands from a local stream and requires a technician login.
type Console struct {
	router *command.Router
	in     io.Reader
	out    *consoleOutput
	caller *command.Caller
}

// NewConsole creates a console reading commands from in and writing
// replies and prompts to out
func NewConsole(router *command.Router, in io.Reader, out io.Writer) *Console {
	o := &consoleOutput{w: out}
	return &Console{
		router: router,
		in:     in,
		out:    o,
		caller: command.NewConsoleCaller("console", o),
	}
}

// Run reads console input until it is exhausted or ctx is done. A blocked
// read is only interrupted by closing the input.
func (c *Console) Run(ctx context.Context) error {
	defer c.router.Disconnect(c.caller)

	scanner := bufio.NewScanner(c.in)
	for {
		c.out.prompt(c.promptText())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading console input: %w", err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.router.Handle(c.caller, line)
	}
}

func (c *Console) promptText() string {
	if !c.caller.Authenticated() {
		return consoleLoginPrompt
	}
	return c.caller.Username() + "> "
}
