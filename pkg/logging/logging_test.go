package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	golog "github.com/fclairamb/go-log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ golog.Logger = (*AppLogger)(nil)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", LogLevelInfo},
		{"info", LogLevelInfo},
		{"DEBUG", LogLevelDebug},
		{" warning ", LogLevelWarn},
		{"error", LogLevelError},
		{"panic", LogLevelPanic},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestAppLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAppLoggerTo(&buf, LogLevelInfo)

	l.Debug("hidden")
	l.Info("User logged in", "user", "alice", "reason", "two words")
	l.Error("Failed", "error", "disk\nfull")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "info: User logged in user=alice reason=\"two words\"")
	assert.Contains(t, lines[1], "error: Failed error=\"disk full\"")
	assert.False(t, l.IsDebug())
}

func TestAppLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewAppLoggerTo(&buf, LogLevelDebug)
	child := parent.With("component", "server")

	child.Debug("Accepted", "session", "abc")
	parent.Info("Plain")

	out := buf.String()
	assert.Contains(t, out, "debug: Accepted component=server session=abc")
	assert.NotContains(t, strings.Split(out, "\n")[1], "component=")
}

func TestAccessLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAccessLoggerTo(&buf)

	l.LogCommand("LOGIN", "alice", "fail", "reason", "Invalid username or password.", "origin", "network")
	l.LogCommand("HELP", "", "success")
	l.LogSession("connect", "s-1", "remote", "127.0.0.1:5000")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `op=LOGIN user=alice status=fail reason="Invalid username or password." origin=network`)
	assert.Contains(t, lines[1], "op=HELP status=success")
	assert.NotContains(t, lines[1], "user=")
	assert.Contains(t, lines[2], "event=connect session=s-1 remote=127.0.0.1:5000")
}

func TestInitialize(t *testing.T) {
	prevApp, prevAccess := App, Access
	t.Cleanup(func() { App, Access = prevApp, prevAccess })

	dir := t.TempDir()
	require.NoError(t, Initialize(&Config{
		AccessLogPath: filepath.Join(dir, "logs", "access.log"),
		AppLogPath:    filepath.Join(dir, "logs", "app.log"),
		Level:         LogLevelWarn,
	}))
	defer App.Close()

	App.Info("dropped")
	App.Warn("kept")
	Access.LogCommand("LIST_USERS", "tsmith", "success")

	appLog, err := os.ReadFile(filepath.Join(dir, "logs", "app.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(appLog), "dropped")
	assert.Contains(t, string(appLog), "warn: kept")

	accessLog, err := os.ReadFile(filepath.Join(dir, "logs", "access.log"))
	require.NoError(t, err)
	assert.Contains(t, string(accessLog), "op=LIST_USERS user=tsmith")
}

func TestRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := NewRotatingWriter(path, 64, time.Hour)
	require.NoError(t, err)
	defer w.Close()

	line := []byte(strings.Repeat("x", 40) + "\n")
	for i := 0; i < 3; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var archives int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.log.") {
			archives++
		}
	}
	assert.GreaterOrEqual(t, archives, 1)

	live, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, len(live), 64)
}

func TestRotatingWriter_Prune(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	for i := 0; i < keepArchives+3; i++ {
		name := filepath.Join(dir, "app.log.20200101-0000"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(name, []byte("old"), 0644))
	}

	w, err := NewRotatingWriter(path, 8, time.Hour)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("0123456789\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var archives []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.log.") {
			archives = append(archives, e.Name())
		}
	}
	assert.Len(t, archives, keepArchives)
	assert.NotContains(t, archives, "app.log.20200101-0000a")
}

func TestRotatingWriter_SameSecondRollsKeepEveryLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := NewRotatingWriter(path, 8, time.Hour)
	require.NoError(t, err)

	line := []byte("0123456789\n")
	for i := 0; i < 3; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var total int
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		total += len(data)
	}
	assert.Equal(t, 3*len(line), total)
}

func TestRotatingWriter_ReattachesAfterMove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := NewRotatingWriter(path, 1024, time.Hour)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("before\n"))
	require.NoError(t, err)

	moved := filepath.Join(dir, "moved.log")
	require.NoError(t, os.Rename(path, moved))

	w.mu.Lock()
	require.NoError(t, w.reattachIfMoved())
	w.mu.Unlock()

	_, err = w.Write([]byte("after\n"))
	require.NoError(t, err)

	live, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(live))

	old, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "before\n", string(old))
}
