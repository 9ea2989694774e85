package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLogLevel()
	SetOutput(&buf)
	SetLogLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		current.Store(int32(prev))
	})
	return &buf
}

func TestWithFieldAppendsSortedFields(t *testing.T) {
	buf := capture(t, "DEBUG")

	WithField("pid", "uuid:1").WithField("batch", 7).Infof("exported %d files", 3)

	assert.Contains(t, buf.String(), "[INFO] exported 3 files batch=7 pid=uuid:1")
}

func TestWithFieldDoesNotShareState(t *testing.T) {
	buf := capture(t, "DEBUG")

	base := WithField("profile", "NDK")
	base.WithField("pid", "uuid:2").Warnf("first")
	base.Warnf("second")

	assert.Contains(t, buf.String(), "[WARN] first pid=uuid:2 profile=NDK")
	assert.Contains(t, buf.String(), "[WARN] second profile=NDK\n")
}

func TestLevelFilter(t *testing.T) {
	buf := capture(t, "WARN")

	Infof("hidden")
	Errorf("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[ERROR] shown")
}
