package chatserver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/campuschat/pkg/presence"
)

func TestConsole_Run(t *testing.T) {
	env := startServer(t)

	bob := env.dial(t)
	bob.login("bob", "pw3")

	input := strings.Join([]string{
		"LOGIN bob pw3",
		"LOGIN tsmith pw1",
		"",
		"MESSAGE bob hello",
		"KILL bob",
		"LOGOUT",
	}, "\n") + "\n"

	var out bytes.Buffer
	console := NewConsole(env.server.Router(), strings.NewReader(input), &out)
	require.NoError(t, console.Run(context.Background()))

	bob.expect("KILLED: You were disconnected by a technician.")
	bob.expectClosed()

	text := out.String()
	assert.True(t, strings.HasPrefix(text, consoleLoginPrompt))
	assert.Contains(t, text, "LOGIN FAIL: Invalid username or password, or you lack technician permissions.")
	assert.Contains(t, text, "LOGIN SUCCESS\ntsmith> ")
	assert.Contains(t, text, "MESSAGE FAIL: not permitted from the server console")
	assert.Contains(t, text, "KILL SUCCESS: User bob was disconnected.")
	assert.Contains(t, text, "LOGOUT SUCCESS\n"+consoleLoginPrompt)

	assert.Equal(t, presence.StatusOffline, env.presence.Status("tsmith"))
}

func TestConsole_StatusWhileLoggedIn(t *testing.T) {
	env := startServer(t)

	var out bytes.Buffer
	console := NewConsole(env.server.Router(), strings.NewReader("LOGIN tsmith pw1\nLIST_USERS\n"), &out)
	require.NoError(t, console.Run(context.Background()))

	assert.Contains(t, out.String(), "tsmith (Technician) - Online-on-console")
	// Input exhausted, the console logged out on exit
	assert.Equal(t, presence.StatusOffline, env.presence.Status("tsmith"))
}
