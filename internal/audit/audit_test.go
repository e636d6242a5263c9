package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputHash_IsStableRegardlessOfKeyOrder(t *testing.T) {
	a := map[string]any{"project_id": "t", "status": "open"}
	b := map[string]any{"status": "open", "project_id": "t"}
	assert.Equal(t, InputHash(a), InputHash(b))
	assert.Len(t, InputHash(a), 16)
}

func TestInputHash_DiffersOnDifferentInput(t *testing.T) {
	a := map[string]any{"project_id": "t1"}
	b := map[string]any{"project_id": "t2"}
	assert.NotEqual(t, InputHash(a), InputHash(b))
}

func TestSummarizeInput_TruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", 250)
	out := SummarizeInput(map[string]any{"description": long, "id": "t-1"})
	assert.Equal(t, strings.Repeat("x", 200)+"...", out["description"])
	assert.Equal(t, "t-1", out["id"])
}

func TestSummarizeInput_LeavesShortValuesUntouched(t *testing.T) {
	out := SummarizeInput(map[string]any{"id": "t-1"})
	assert.Equal(t, "t-1", out["id"])
}

func TestWriter_AppendsOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	w := New(path)
	now := time.Unix(1_700_000_000, 0).UTC()

	require.NoError(t, w.ToolCall("get_issue", "tu_1", map[string]any{"issue_id": "t-1"}, now))
	require.NoError(t, w.ToolResult("get_issue", "tu_1", false, now.Add(time.Second)))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, EventToolCall, lines[0].Event)
	assert.Equal(t, "get_issue", lines[0].Tool)
	assert.Equal(t, "tu_1", lines[0].ToolUseID)
	assert.NotEmpty(t, lines[0].InputHash)
	assert.Nil(t, lines[0].IsError)

	assert.Equal(t, EventToolResult, lines[1].Event)
	require.NotNil(t, lines[1].IsError)
	assert.False(t, *lines[1].IsError)
	assert.Empty(t, lines[1].InputHash)
}

func TestWriter_PostCallRecordsErrorFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	w := New(path)
	now := time.Now()

	require.NoError(t, w.ToolResult("create_issue", "tu_2", true, now))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var e Entry
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &e))
	require.NotNil(t, e.IsError)
	assert.True(t, *e.IsError)
}
