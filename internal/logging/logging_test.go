package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetTagsCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Get(CategorySession).Infow("something happened", "key", "value")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "session", fields["category"])
	assert.Equal(t, "value", fields["key"])
}

func TestSetLoggerNilResetsToNop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	SetLogger(nil)

	Get(CategoryStore).Warnw("dropped")
	assert.Zero(t, logs.Len())
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	// Before Init or SetLogger, library use must not panic or print.
	assert.NotNil(t, Get(CategoryResolver))
	Get(CategoryResolver).Debugw("quiet")
	Sync()
}
