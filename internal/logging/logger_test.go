package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
		"info":    logrus.InfoLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, GetLevel(in), "level %q", in)
	}
}

func TestSetupWritesToFile(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	base := filepath.Join(t.TempDir(), "vertical")
	closer := Setup(SetupParams{LogFileName: base, LogLevel: "debug"})

	logrus.WithField("component", "test").Debug("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(base + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "component=test")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupWithoutFile(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	closer := Setup(SetupParams{LogLevel: "warn"})
	assert.NoError(t, closer.Close())
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}
