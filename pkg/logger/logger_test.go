package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	l, err := New(domain.LoggingConfig{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	l.Debug("hello", zap.String("k", "v"))
	require.NoError(t, l.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)
	assert.Contains(t, string(content), `"k":"v"`)
	assert.Contains(t, string(content), `"logger":"misc-installer"`)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(domain.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = New(domain.LoggingConfig{Format: "xml"})
	assert.Error(t, err)

	l, err := New(domain.LoggingConfig{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("install")
	require.NoError(t, err)
	assert.Equal(t, CategoryInstall, c)

	_, err = ParseCategory("web_access")
	assert.Error(t, err)
}

func TestMultiLogger_WritesReadableEvents(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	defer ml.Close()

	ml.LogQueueEvent("install_queued", zap.String("framework", "drjava"))
	ml.LogAppError("install failed", zap.Error(errors.New("boom")))
	require.NoError(t, ml.Sync())

	reader := NewLogReader(dir)
	entries, err := reader.ReadTodayLogs(CategoryQueue, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "install_queued", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "drjava", entries[0].Fields["framework"])
	assert.NotEmpty(t, entries[0].Timestamp)

	found, err := reader.SearchLogs(CategoryError, time.Now(), "BOOM", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestInstallLog_HeaderAndFooter(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenInstallLog(dir, "id-1", "processing")
	require.NoError(t, err)

	l.Command("dpkg-query -W openjdk-7-jdk")
	l.Printf("resolved %s", "http://x/p.tgz")
	require.NoError(t, l.Finish(false, "checksum mismatch"))

	entries, err := NewLogReader(dir).ReadTodayLogs(CategoryInstall, 0)
	require.NoError(t, err)

	var lines []string
	for _, e := range entries {
		lines = append(lines, e.Message)
	}
	text := strings.Join(lines, "\n")
	assert.Contains(t, text, "Install processing: id-1 ===")
	assert.Contains(t, text, "$ dpkg-query -W openjdk-7-jdk")
	assert.Contains(t, text, "resolved http://x/p.tgz")
	assert.Contains(t, text, "FAILED: checksum mismatch")
	assert.Contains(t, text, "=== END ===")
}

func TestInstallLog_NilIsNoop(t *testing.T) {
	var l *InstallLog
	l.Printf("ignored")
	assert.NoError(t, l.Finish(true, "ok"))

	adapter := NewSingleLoggerAdapter(zap.NewNop())
	assert.Nil(t, adapter.OpenInstallLog("id", "drjava"))
}

func TestLogReader_TailLogs(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	reader.pollInterval = 10 * time.Millisecond

	path := reader.GetTodayLogPath(CategoryQueue)
	require.NoError(t, os.WriteFile(path, []byte(`{"message":"old"}`+"\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 1)
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(ctx, CategoryQueue, entries) }()

	// Give the tail a moment to seek to the end before appending
	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"message":"new","level":"info"}` + "\n")
	require.NoError(t, err)
	f.Close()

	select {
	case e := <-entries:
		assert.Equal(t, "new", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry received")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestLogReader_ReadInstallLog(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"id-1", "id-2"} {
		l, err := OpenInstallLog(dir, id, "drjava")
		require.NoError(t, err)
		l.Printf("output of %s", id)
		require.NoError(t, l.Finish(true, "done "+id))
	}

	reader := NewLogReader(dir)
	section, err := reader.ReadInstallLog(time.Now(), "id-2")
	require.NoError(t, err)
	assert.Contains(t, section, "Install drjava: id-2 ===")
	assert.Contains(t, section, "output of id-2")
	assert.Contains(t, section, "SUCCESS: done id-2")
	assert.NotContains(t, section, "id-1")
	assert.True(t, strings.HasSuffix(section, "=== END ===\n"))

	_, err = reader.ReadInstallLog(time.Now(), "id-3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
