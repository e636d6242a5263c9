// Package audit implements the append-only audit log the hook pipeline
// writes to before and after every tool invocation (spec.md §4.3). Rotation
// is grounded on batalabs-muxd's use of gopkg.in/natefinch/lumberjack.v2 for
// its own log file (batalabs-muxd/internal/config/logger.go), generalized
// here from free-text lines to structured JSON lines.
package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// EventToolCall is the pre-call audit event kind.
	EventToolCall = "tool_call"
	// EventToolResult is the post-call audit event kind.
	EventToolResult = "tool_result"

	maxLogBytes  = 10 * 1024 * 1024 // 10 MiB
	maxBackups   = 5
	summaryLimit = 200
)

// Entry is one audit log line. Fields are tagged `omitempty` so the pre-call
// shape (no IsError) and post-call shape (no InputHash/InputSummary) each
// render only their own fields, per spec.md §4.3.
type Entry struct {
	Event        string            `json:"event"`
	Tool         string            `json:"tool"`
	ToolUseID    string            `json:"tool_use_id"`
	InputHash    string            `json:"input_hash,omitempty"`
	InputSummary map[string]string `json:"input_summary,omitempty"`
	IsError      *bool             `json:"is_error,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Writer appends Entry lines to a rotating JSONL file. Writes are serialised
// by mu to preserve line atomicity and call ordering, per spec.md §4.3's
// "process-wide lock" requirement.
type Writer struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// New opens (creating if needed) the audit log at path with the rotation
// policy from spec.md §4.3: 10 MiB per file, 5 backups retained.
func New(path string) *Writer {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogBytes / (1024 * 1024),
		MaxBackups: maxBackups,
		Compress:   false,
	}
	return &Writer{out: lj, enc: json.NewEncoder(lj)}
}

// Close flushes and closes the underlying rotating file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}

// ToolCall appends a pre-call entry for tool/toolUseID with input hashed and
// summarized per spec.md §4.3.
func (w *Writer) ToolCall(tool, toolUseID string, input map[string]any, now time.Time) error {
	return w.append(Entry{
		Event:        EventToolCall,
		Tool:         tool,
		ToolUseID:    toolUseID,
		InputHash:    InputHash(input),
		InputSummary: SummarizeInput(input),
		Timestamp:    now,
	})
}

// ToolResult appends a post-call entry for tool/toolUseID.
func (w *Writer) ToolResult(tool, toolUseID string, isError bool, now time.Time) error {
	return w.append(Entry{
		Event:     EventToolResult,
		Tool:      tool,
		ToolUseID: toolUseID,
		IsError:   &isError,
		Timestamp: now,
	})
}

func (w *Writer) append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(e)
}

// InputHash computes the first 16 hex characters of SHA-256 over the
// canonical (lexicographically-keyed) JSON encoding of input (spec.md
// §4.3). Go's encoding/json already emits map keys in sorted order, so
// marshaling a map[string]any is already canonical.
func InputHash(input map[string]any) string {
	canon, err := json.Marshal(sortedMap(input))
	if err != nil {
		canon = []byte("null")
	}
	sum := sha256.Sum256(canon)
	return fmt.Sprintf("%x", sum)[:16]
}

// SummarizeInput truncates every input value's string form to 200 characters
// (plus an ellipsis suffix when truncated), per spec.md §4.3.
func SummarizeInput(input map[string]any) map[string]string {
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = truncate(stringify(v), summaryLimit)
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// sortedMap re-keys a map[string]any into an ordered structure so two
// equivalent maps always marshal identically regardless of Go's (already
// sorted, but explicit here for clarity) map iteration order.
func sortedMap(input map[string]any) map[string]any {
	if input == nil {
		return map[string]any{}
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(input))
	for _, k := range keys {
		out[k] = input[k]
	}
	return out
}
