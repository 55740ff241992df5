package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansInheritTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "page_event", "")
	require.NotEmpty(t, root.TraceID)

	_, child := StartChildSpan(ctx, "site_lookup")
	child.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestDetachedChildSpan(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "extract_content")
	span.End()
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, SpanFromContext(ctx))
}

func TestLogWritesTree(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "root", "trace-1")
	root.SetAttr("page_id", 42)
	_, child := StartChildSpan(ctx, "child")
	child.End()
	root.End()
	root.Log(log)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=root")
	assert.Contains(t, lines[0], "page_id=42")
	assert.Contains(t, lines[1], "span=child")
	assert.Contains(t, lines[1], "depth=1")
}
