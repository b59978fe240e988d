package utils

import (
	"context"
	"log/slog"

	"github.com/spboyer/bagcheck/internal/checkpoint"
)

// CheckPointToSlog logs the state of a graded checkpoint at debug level.
func CheckPointToSlog(cp *checkpoint.CheckPoint) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"id", cp.ID(),
		"status", cp.Status().String(),
		"max", cp.Max(),
	}

	if cp.Status() == checkpoint.StatusGraded {
		score := cp.Score()
		attrs = addIf(attrs, "score", &score)
	}
	if code := cp.Code(); code != "" {
		attrs = addIf(attrs, "code", &code)
	}

	slog.Debug("Checkpoint", attrs...)
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
