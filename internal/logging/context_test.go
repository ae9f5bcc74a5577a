package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, DefinitionID(ctx))
	assert.Empty(t, RunID(ctx))
	assert.Empty(t, NodeID(ctx))

	ctx = WithIDs(ctx, "def-1", "run-1", "node-1")
	assert.Equal(t, "def-1", DefinitionID(ctx))
	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "node-1", NodeID(ctx))
}

func TestLogWithAddsOnlyPresentIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithRunID(context.Background(), "run-9")
	LogWith(ctx, logger).Info("refreshed")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-9")
	assert.NotContains(t, out, "definition_id")
	assert.NotContains(t, out, "node_id")
}

func TestCorrelationHandlerInjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithIDs(context.Background(), "def-2", "run-2", "")
	logger.InfoContext(ctx, "graph rebuilt")

	out := buf.String()
	assert.Contains(t, out, "definition_id=def-2")
	assert.Contains(t, out, "run_id=run-2")
	assert.NotContains(t, out, "node_id")
}

func TestCorrelationHandlerWithAttrsKeepsWrapping(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))
	logger := base.With(slog.String("component", "poller"))

	logger.InfoContext(WithRunID(context.Background(), "run-3"), "tick")

	out := buf.String()
	assert.Contains(t, out, "component=poller")
	assert.Contains(t, out, "run_id=run-3")
}
