package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ContextProvider returns attributes attached to every record, such as the
// run id and the frame being rendered.
type ContextProvider func(ctx context.Context) []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider(ctx)...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// RunContext holds the attributes shared by every record of one run.
// It is safe for concurrent use.
type RunContext struct {
	mu    sync.RWMutex
	runID string
	frame int
}

// NewRunContext starts with no frame in progress.
func NewRunContext(runID string) *RunContext {
	return &RunContext{runID: runID, frame: -1}
}

// SetFrame records the most recently emitted frame.
func (c *RunContext) SetFrame(i int) {
	c.mu.Lock()
	c.frame = i
	c.mu.Unlock()
}

// Provider returns a ContextProvider reading from c.
func (c *RunContext) Provider() ContextProvider {
	return func(context.Context) []slog.Attr {
		c.mu.RLock()
		defer c.mu.RUnlock()
		attrs := []slog.Attr{slog.String("run", c.runID)}
		if c.frame >= 0 {
			attrs = append(attrs, slog.Int("frame", c.frame))
		}
		return attrs
	}
}
