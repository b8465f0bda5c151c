package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
)

// AuditFileName is the audit log written under the project's .graphrat directory.
const AuditFileName = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It captures metadata about the call, never file contents.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	RunID      int64             `json:"run_id,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens <root>/.graphrat/audit.jsonl for append.
// If the file cannot be created, a warning is printed to stderr and nil is
// returned; auditing is never fatal.
func NewAuditLogger(root string) *AuditLogger {
	dir := store.LocalPath(root)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as one JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	_, _ = a.file.Write(data)
}

// Close closes the log file. Closing twice is safe.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Parameters whose values are logged verbatim.
var safeValueParams = map[string]bool{
	"steps":          true,
	"seed":           true,
	"mode":           true,
	"batch_fraction": true,
	"threads":        true,
	"record":         true,
	"include_counts": true,
	"format":         true,
	"run_id":         true,
	"id":             true,
	"limit":          true,
}

// Parameters whose presence is logged but whose values (paths) are not.
var presenceOnlyParams = map[string]bool{
	"graph": true,
	"rats":  true,
}

// sanitizeToolParams reduces tool arguments to loggable metadata. Zero
// values are skipped; unknown keys are dropped. "_param_count" always
// records how many non-zero arguments were given.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)
	count := 0
	for key, val := range params {
		if isZero(val) {
			continue
		}
		count++
		switch {
		case safeValueParams[key]:
			result[key] = fmt.Sprintf("%v", val)
		case presenceOnlyParams[key]:
			result[key] = "(set)"
		}
	}
	result["_param_count"] = strconv.Itoa(count)
	return result
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case uint32:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

// auditTool logs one tool invocation.
func (s *Server) auditTool(toolName string, start time.Time, err error, runID int64, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		RunID:      runID,
		Params:     params,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.auditLogger.Log(entry)
}
