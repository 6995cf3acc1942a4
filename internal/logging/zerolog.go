package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// NewZerolog builds the structured logger used by the storage and metrics
// managers, writing JSON lines to w.
func NewZerolog(w io.Writer, level string, runID string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if runID != "" {
		ctx = ctx.Str("run", runID)
	}
	return ctx.Logger()
}

// RenderLogger adapts zerolog.Logger to the render.Logger interface.
type RenderLogger struct {
	logger zerolog.Logger
}

// NewRenderLogger creates a new RenderLogger wrapping a zerolog.Logger.
func NewRenderLogger(logger zerolog.Logger) *RenderLogger {
	return &RenderLogger{logger: logger}
}

// Debug logs a debug message with optional key-value pairs.
func (l *RenderLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

// Info logs an info message with optional key-value pairs.
func (l *RenderLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

// Error logs an error message with optional key-value pairs.
func (l *RenderLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
