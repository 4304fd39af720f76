// Package observability provides production-grade observability features
// for nostrstore: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds store context to a logger.
// Returns a new logger with the path and op fields.
func EnrichLogger(logger *slog.Logger, path, op string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("db_path", path),
		slog.String("op", op),
	)
}

// LogOpen logs a successful store open.
func LogOpen(logger *slog.Logger, path string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("store opened",
		slog.String("db_path", path),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogReconcile logs the outcome of startup reconciliation.
func LogReconcile(logger *slog.Logger, loaded, discarded int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("reconciliation completed",
		slog.Int("events_loaded", loaded),
		slog.Int("events_discarded", discarded),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogReconcileError logs a partial reconciliation failure. The remaining
// superset of valid rows is corrected on the next startup, so this is a
// warning, not a fatal condition.
func LogReconcileError(logger *slog.Logger, err error, remaining int) {
	if logger == nil {
		return
	}
	logger.Warn("reconciliation purge incomplete",
		slog.String("error", err.Error()),
		slog.Int("ids_remaining", remaining),
	)
}

// LogSave logs a save decision at debug level.
func LogSave(logger *slog.Logger, eventID string, stored bool, discarded int) {
	if logger == nil {
		return
	}
	logger.Debug("event indexed",
		slog.String("event_id", eventID),
		slog.Bool("stored", stored),
		slog.Int("discarded", discarded),
	)
}

// LogBulkImport logs a batch import.
func LogBulkImport(logger *slog.Logger, offered, accepted int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("bulk import completed",
		slog.Int("events_offered", offered),
		slog.Int("events_accepted", accepted),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogWipe logs a completed wipe.
func LogWipe(logger *slog.Logger, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("store wiped",
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
