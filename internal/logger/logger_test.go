package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCloser adapts a buffer to io.WriteCloser.
type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
	_ = Close()
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	if buf.String() != "[DEBUG] test message arg\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")

	if buf.Len() > 0 {
		t.Error("expected no output when verbose is disabled")
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Push")

	if buf.String() != "\n=== Push ===\n" {
		t.Errorf("unexpected section output: %q", buf.String())
	}
}

func TestInfo(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("quiet %d", 1)
	assert.Empty(t, buf.String(), "info is console-silent unless verbose")

	SetVerbose(true)
	Info("info message %d", 42)
	assert.Equal(t, "[INFO] info message 42\n", buf.String())
}

func TestWarnAndError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("warning message")
	Error("error %s", "message")

	assert.Equal(t, "[WARN] warning message\n[ERROR] error message\n", buf.String())
}

func TestFileSink_ReceivesInfoWithoutVerbose(t *testing.T) {
	defer reset()
	oldNow := now
	defer func() { now = oldNow }()
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var console, sink bytes.Buffer
	SetOutput(&console)
	setFileWriter(nopCloser{&sink})

	Info("uploaded %s", "paper.pdf")
	Debug("hidden")

	assert.Empty(t, console.String())
	assert.Equal(t, "2026-01-02T03:04:05Z [INFO] uploaded paper.pdf\n", sink.String())
}

func TestSetFile_WritesRotatingFile(t *testing.T) {
	defer reset()

	var console bytes.Buffer
	SetOutput(&console)
	path := filepath.Join(t.TempDir(), "sync.log")

	SetFile(path, 1, 1)
	Warn("kept for later")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "[WARN] kept for later\n"))
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			SetVerbose(true)
			Debug("concurrent %d", i)
			IsVerbose()
			SetVerbose(false)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
	// Test passes if no race conditions
}
