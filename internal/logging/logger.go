// Package logging provides leveled logging and diagnostic tracing for graphrat.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DiagnosticLogger for structured JSONL run events (.graphrat/diagnostics.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/graphrat/internal/sim"
)

// LevelTrace is a custom slog level below Debug for per-step logging.
const LevelTrace = slog.LevelDebug - 4

// FileName is the diagnostics file created inside the log directory.
const FileName = "diagnostics.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DiagnosticLogger writes structured run events to a JSONL file.
// It is safe for concurrent use. A nil DiagnosticLogger is safe to use;
// all methods are no-ops on nil receiver.
//
// DiagnosticLogger implements sim.Observer: fallbacks are always written,
// completed steps only at trace level.
type DiagnosticLogger struct {
	mu    sync.Mutex
	file  *os.File
	trace bool
}

// NewDiagnosticLogger creates a diagnostic logger writing to dir/diagnostics.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewDiagnosticLogger(dir string, level string) *DiagnosticLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &DiagnosticLogger{file: f, trace: lvl <= LevelTrace}
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (dl *DiagnosticLogger) Log(event map[string]any) {
	if dl == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return
	}
	_, _ = dl.file.Write(data)
}

// RunStarted records the parameters of a run about to start.
func (dl *DiagnosticLogger) RunStarted(runID int64, nodes, rats, steps int, mode string, batchSize, threads int) {
	dl.Log(map[string]any{
		"event":      "run_started",
		"run_id":     runID,
		"nodes":      nodes,
		"rats":       rats,
		"steps":      steps,
		"mode":       mode,
		"batch_size": batchSize,
		"threads":    threads,
	})
}

// RunFinished records the outcome of a run. err may be nil.
func (dl *DiagnosticLogger) RunFinished(runID int64, res sim.Result, err error) {
	event := map[string]any{
		"event":      "run_finished",
		"run_id":     runID,
		"steps":      res.Steps,
		"elapsed_ms": res.Elapsed.Milliseconds(),
		"fallbacks":  res.Fallbacks,
		"mrps":       res.MegaRatsPerSecond(),
	}
	if err != nil {
		event["error"] = err.Error()
	}
	dl.Log(event)
}

// MoveFallback records a move that fell through the cumulative weights.
func (dl *DiagnosticLogger) MoveFallback(f sim.Fallback) {
	dl.Log(map[string]any{
		"event":  "move_fallback",
		"rat":    f.Rat,
		"node":   f.Node,
		"degree": f.Degree,
		"target": f.Target,
		"total":  f.Total,
		"limit":  f.Limit,
	})
}

// StepCompleted records step timing at trace level.
func (dl *DiagnosticLogger) StepCompleted(step int, elapsed time.Duration) {
	if dl == nil || !dl.trace {
		return
	}
	dl.Log(map[string]any{
		"event":      "step_completed",
		"step":       step,
		"elapsed_us": elapsed.Microseconds(),
	})
}

// BatchCommitted is a no-op.
func (dl *DiagnosticLogger) BatchCommitted(int) {}

// Close closes the underlying file. Safe to call on nil receiver.
func (dl *DiagnosticLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return
	}
	dl.file.Close()
	dl.file = nil
}
