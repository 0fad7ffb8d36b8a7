package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies the global logger is returned for bare contexts.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, global, FromContext(context.Background()))
}

// TestWithName_ScopesLogger checks that named and key-value scoped loggers reach the core.
func TestWithName_ScopesLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "gmpublish")
	ctx = WithKV(ctx, "username", "gordon")

	InfoKV(ctx, "Connected", "attempt", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "gmpublish", entries[0].LoggerName)
	require.Equal(t, "Connected", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "gordon", fields["username"])
	require.EqualValues(t, 1, fields["attempt"])
}
