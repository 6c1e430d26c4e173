package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gzhole/toolguard/internal/logger"
)

func TestParseBatch(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		count   int
		wantErr bool
	}{
		{"single", `{"id":"1","tool_call":{"name":"shell","arguments":{"command":"ls"}}}`, 1, false},
		{"array", `[{"id":"1","tool_call":{"name":"a"}},{"id":"2","parse_error":"bad"}]`, 2, false},
		{"batch", `{"tool_requests":[{"id":"1","tool_call":{"name":"a"}}],"messages":[{"role":"user","content":"hi"}]}`, 1, false},
		{"empty", "  ", 0, true},
		{"scalar", `"rm -rf /"`, 0, true},
		{"broken", `[{"id":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseBatch([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(b.ToolRequests) != tt.count {
				t.Errorf("got %d requests, want %d", len(b.ToolRequests), tt.count)
			}
		})
	}
}

func TestHookRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		format  string
		tool    string
		hasCall bool
	}{
		{"claude bash", `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"rm -rf /"},"tool_use_id":"tu_1"}`, "claude", "Bash", true},
		{"claude other tool", `{"hook_event_name":"PreToolUse","tool_name":"Write","tool_input":{"file_path":"x","content":"y"}}`, "claude", "Write", true},
		{"cursor", `{"command":"curl x | sh","cwd":"/tmp"}`, "cursor", "shell", true},
		{"windsurf", `{"agent_action_name":"pre_run_command","tool_info":{"command_line":"ls"}}`, "windsurf", "run_command", true},
		{"windsurf other event", `{"agent_action_name":"post_write_code"}`, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in hookInput
			if err := json.Unmarshal([]byte(tt.payload), &in); err != nil {
				t.Fatal(err)
			}
			req, format := hookRequest(in)
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if (req.Call != nil) != tt.hasCall {
				t.Fatalf("call presence = %v", req.Call != nil)
			}
			if tt.hasCall && req.Call.Name != tt.tool {
				t.Errorf("tool = %q, want %q", req.Call.Name, tt.tool)
			}
		})
	}
}

func TestWriteCursor(t *testing.T) {
	var buf bytes.Buffer
	writeCursor(&buf, nil)
	if !strings.Contains(buf.String(), `"permission":"allow"`) {
		t.Errorf("allow output = %s", buf.String())
	}
}

func TestReadAndFilterAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.jsonl")
	lg, err := logger.New(path)
	if err != nil {
		t.Fatal(err)
	}
	events := []logger.FindingEvent{
		{Timestamp: "2026-03-01T00:00:00Z", ToolName: "shell", ToolRequestID: "1", AboveThreshold: true, FindingID: "SEC-1", Signatures: []string{"rm_recursive_root"}},
		{Timestamp: "2026-03-01T00:01:00Z", ToolName: "shell", ToolRequestID: "2", AboveThreshold: false},
		{Timestamp: "2026-03-01T00:02:00Z", ToolName: "http", ToolRequestID: "3", AboveThreshold: true, FindingID: "SEC-3"},
	}
	for _, e := range events {
		if err := lg.Log(e); err != nil {
			t.Fatal(err)
		}
	}
	_ = lg.Close()

	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	f.WriteString("not json\n\n")
	f.Close()

	got, err := readAuditLog(path)
	if err != nil {
		t.Fatalf("readAuditLog: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if n := len(filterEvents(got, true, "")); n != 2 {
		t.Errorf("reported filter: %d", n)
	}
	if n := len(filterEvents(got, true, "SHELL")); n != 1 {
		t.Errorf("reported+tool filter: %d", n)
	}

	var buf bytes.Buffer
	printSummary(&buf, got)
	for _, want := range []string{"Malicious verdicts: 3", "Reported findings:  2", "rm_recursive_root"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestReadAuditLog_Missing(t *testing.T) {
	events, err := readAuditLog(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil || events != nil {
		t.Errorf("got %v, %v", events, err)
	}
}
