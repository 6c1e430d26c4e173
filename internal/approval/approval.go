package approval

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Result struct {
	Approved   bool
	UserAction string
}

// Prompt describes a flagged tool call awaiting a decision.
type Prompt struct {
	FindingID     string
	ToolRequestID string
	ToolName      string
	Confidence    float64
	Explanation   string
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Asker reads decisions from In and writes the prompt to Out.
type Asker struct {
	In          io.Reader
	Out         io.Writer
	Interactive func() bool
}

// Ask prompts on the controlling terminal.
func Ask(p Prompt) Result {
	return Asker{In: os.Stdin, Out: os.Stderr, Interactive: IsInteractive}.Ask(p)
}

// Ask denies without prompting when the session is not interactive.
func (a Asker) Ask(p Prompt) Result {
	if a.Interactive != nil && !a.Interactive() {
		return Result{Approved: false, UserAction: "auto_deny_non_interactive"}
	}

	w := a.Out
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== TOOL CALL FLAGGED ===")
	fmt.Fprintf(w, "Tool: %s (request %s)\n", p.ToolName, p.ToolRequestID)
	if p.FindingID != "" {
		fmt.Fprintf(w, "Finding: %s\n", p.FindingID)
	}
	fmt.Fprintf(w, "Confidence: %.2f\n", p.Confidence)
	fmt.Fprintln(w, "")
	for _, line := range strings.Split(p.Explanation, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  [a] Approve once - let this tool call run")
	fmt.Fprintln(w, "  [d] Deny - drop this tool call")
	fmt.Fprintln(w, "")

	reader := bufio.NewReader(a.In)
	for {
		fmt.Fprint(w, "Your choice [a/d]: ")
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return Result{Approved: false, UserAction: "error_reading_input"}
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "a", "approve", "yes", "y":
			return Result{Approved: true, UserAction: "approve_once"}
		case "d", "deny", "no", "n":
			return Result{Approved: false, UserAction: "deny"}
		default:
			if err != nil {
				return Result{Approved: false, UserAction: "error_reading_input"}
			}
			fmt.Fprintln(w, "Invalid input. Please enter 'a' to approve or 'd' to deny.")
		}
	}
}
