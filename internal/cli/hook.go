package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/security"
	"github.com/gzhole/toolguard/internal/toolcall"
)

// hookInput covers the pre-execution payloads IDE agents send.
// Claude Code: {"hook_event_name": "PreToolUse", "tool_name": "Bash", "tool_input": {...}}
// Cursor:      {"command": "...", "cwd": "..."}
// Windsurf:    {"agent_action_name": "pre_run_command", "tool_info": {"command_line": "..."}}
type hookInput struct {
	HookEventName string         `json:"hook_event_name"`
	ToolName      string         `json:"tool_name"`
	ToolInput     map[string]any `json:"tool_input"`
	ToolUseID     string         `json:"tool_use_id"`

	Command string `json:"command"`
	Cwd     string `json:"cwd"`

	AgentActionName string   `json:"agent_action_name"`
	ExecutionID     string   `json:"execution_id"`
	ToolInfo        toolInfo `json:"tool_info"`
}

type toolInfo struct {
	CommandLine string `json:"command_line"`
	Cwd         string `json:"cwd"`
}

type cursorHookOutput struct {
	Continue     bool   `json:"continue"`
	Permission   string `json:"permission"`
	UserMessage  string `json:"user_message,omitempty"`
	AgentMessage string `json:"agent_message,omitempty"`
}

// ExitError asks main to exit with Code after printing nothing further.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Pre-execution hook for Claude Code, Cursor and Windsurf",
	Long: `Reads an IDE hook JSON payload from stdin, scans the proposed tool call
and answers in the format the IDE expects:

  Claude Code  exit code 2 with the reason on stderr blocks the call
  Windsurf     exit code 2 with the reason on stderr blocks the command
  Cursor       JSON with permission "deny" or "allow"

Unparsable input and internal errors fail open.`,
	RunE: hookCommand,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func hookCommand(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[ToolGuard] warning: could not parse hook input: %v\n", err)
		return nil
	}

	req, format := hookRequest(input)
	if req.Call == nil {
		if format == "cursor" {
			writeCursor(cmd.OutOrStdout(), nil)
		}
		return nil
	}

	finding, err := evaluateHook(cmd.Context(), req)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[ToolGuard] warning: %v\n", err)
		finding = nil
	}

	switch format {
	case "cursor":
		writeCursor(cmd.OutOrStdout(), finding)
		return nil
	default:
		if finding == nil {
			return nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "BLOCKED by ToolGuard (%s)\n%s\n", finding.FindingID, finding.Explanation)
		return &ExitError{Code: 2}
	}
}

// hookRequest converts the IDE payload into a tool request and names the
// response format.
func hookRequest(in hookInput) (toolcall.Request, string) {
	switch {
	case in.HookEventName != "":
		if in.ToolName == "" {
			return toolcall.Request{}, "claude"
		}
		return toolcall.Request{
			ID:   in.ToolUseID,
			Call: &toolcall.Call{Name: in.ToolName, Arguments: in.ToolInput},
		}, "claude"
	case in.Command != "":
		return toolcall.Request{ID: "cursor", Call: &toolcall.Call{
			Name:      "shell",
			Arguments: map[string]any{"command": in.Command},
		}}, "cursor"
	case in.AgentActionName == "pre_run_command" && strings.TrimSpace(in.ToolInfo.CommandLine) != "":
		return toolcall.Request{ID: in.ExecutionID, Call: &toolcall.Call{
			Name:      "run_command",
			Arguments: map[string]any{"command": in.ToolInfo.CommandLine},
		}}, "windsurf"
	default:
		return toolcall.Request{}, ""
	}
}

func evaluateHook(ctx context.Context, req toolcall.Request) (*security.Finding, error) {
	s, err := newSession(true)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	findings := s.manager.AnalyzeToolRequests(ctx, []toolcall.Request{req}, nil)
	if len(findings) == 0 {
		return nil, nil
	}
	return &findings[0], nil
}

func writeCursor(w io.Writer, f *security.Finding) {
	out := cursorHookOutput{Continue: true, Permission: "allow"}
	if f != nil {
		out.Permission = "deny"
		out.UserMessage = "BLOCKED by ToolGuard: " + firstLine(f.Explanation)
		out.AgentMessage = f.Explanation
	}
	data, _ := json.Marshal(out)
	fmt.Fprintln(w, string(data))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
