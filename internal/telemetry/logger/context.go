package logger

import "context"

type contextKey string

const (
	loggerKey       contextKey = "statekeep.logger"
	checkpointIDKey contextKey = "statekeep.checkpoint_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithCheckpointID records the checkpoint a context belongs to.
func WithCheckpointID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, checkpointIDKey, id)
}

// CheckpointIDFromContext returns the checkpoint id, or "".
func CheckpointIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(checkpointIDKey).(string)
	return id
}

// L returns the context's logger, tagged with its checkpoint id if any.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := CheckpointIDFromContext(ctx); id != "" {
		l = l.With("checkpoint", id)
	}
	return l
}
