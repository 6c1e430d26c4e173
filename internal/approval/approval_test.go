package approval

import (
	"bytes"
	"strings"
	"testing"
)

func asker(input string, interactive bool) (Asker, *bytes.Buffer) {
	var out bytes.Buffer
	return Asker{
		In:          strings.NewReader(input),
		Out:         &out,
		Interactive: func() bool { return interactive },
	}, &out
}

var flagged = Prompt{
	FindingID:     "SEC-abc",
	ToolRequestID: "req-1",
	ToolName:      "shell",
	Confidence:    0.95,
	Explanation:   "Security threat: Recursive file deletion targeting root or home directory (Risk: Critical) - Found: 'rm -rf /'",
}

func TestAsk_Decisions(t *testing.T) {
	tests := []struct {
		input    string
		approved bool
		action   string
	}{
		{"a\n", true, "approve_once"},
		{"YES\n", true, "approve_once"},
		{"d\n", false, "deny"},
		{"maybe\nn\n", false, "deny"},
		{"", false, "error_reading_input"},
		{"y", true, "approve_once"},
	}
	for _, tt := range tests {
		a, _ := asker(tt.input, true)
		got := a.Ask(flagged)
		if got.Approved != tt.approved || got.UserAction != tt.action {
			t.Errorf("input %q: got %+v, want approved=%v action=%s", tt.input, got, tt.approved, tt.action)
		}
	}
}

func TestAsk_NonInteractiveDenies(t *testing.T) {
	a, out := asker("a\n", false)
	got := a.Ask(flagged)
	if got.Approved || got.UserAction != "auto_deny_non_interactive" {
		t.Errorf("got %+v", got)
	}
	if out.Len() != 0 {
		t.Errorf("non-interactive ask should not print, got %q", out.String())
	}
}

func TestAsk_ShowsFinding(t *testing.T) {
	a, out := asker("d\n", true)
	a.Ask(flagged)
	for _, want := range []string{"Tool: shell (request req-1)", "Finding: SEC-abc", "Confidence: 0.95", "Recursive file deletion"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("prompt missing %q:\n%s", want, out.String())
		}
	}
}

func TestAsk_InvalidInputReprompts(t *testing.T) {
	a, out := asker("x\na\n", true)
	if got := a.Ask(flagged); !got.Approved {
		t.Errorf("got %+v", got)
	}
	if !strings.Contains(out.String(), "Invalid input") {
		t.Errorf("expected re-prompt, got:\n%s", out.String())
	}
}
