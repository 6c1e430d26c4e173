package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/approval"
	"github.com/gzhole/toolguard/internal/security"
	"github.com/gzhole/toolguard/internal/toolcall"
)

var (
	checkFile string
	checkAsk  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Analyse a batch of proposed tool calls",
	Long: `Read tool requests as JSON (a single request, an array of requests, or
{"tool_requests": [...], "messages": [...]}) from --file or stdin and print
the findings as JSON.

With --ask, each finding is shown on the terminal for approval; the command
exits non-zero when any call is denied.

  echo '[{"id":"1","tool_call":{"name":"shell","arguments":{"command":"rm -rf /"}}}]' | toolguard check`,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Read requests from file instead of stdin")
	checkCmd.Flags().BoolVar(&checkAsk, "ask", false, "Prompt for approval of each finding")
	rootCmd.AddCommand(checkCmd)
}

type checkBatch struct {
	ToolRequests []toolcall.Request `json:"tool_requests"`
	Messages     []toolcall.Message `json:"messages,omitempty"`
}

type checkResult struct {
	Findings []security.Finding `json:"findings"`
	Denied   []string           `json:"denied,omitempty"`
}

func checkCommand(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if checkFile != "" {
		data, err = os.ReadFile(checkFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	batch, err := parseBatch(data)
	if err != nil {
		return err
	}

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	result := checkResult{
		Findings: s.manager.AnalyzeToolRequests(cmd.Context(), batch.ToolRequests, batch.Messages),
	}
	if checkAsk {
		for _, f := range result.Findings {
			r := approval.Ask(approval.Prompt{
				FindingID:     f.FindingID,
				ToolRequestID: f.ToolRequestID,
				ToolName:      f.ToolName,
				Confidence:    f.Confidence,
				Explanation:   f.Explanation,
			})
			s.log.Info("user decision", "finding_id", f.FindingID, "tool_request_id", f.ToolRequestID, "user_action", r.UserAction)
			if !r.Approved {
				result.Denied = append(result.Denied, f.ToolRequestID)
			}
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if len(result.Denied) > 0 {
		return fmt.Errorf("%d tool call(s) denied", len(result.Denied))
	}
	return nil
}

// parseBatch accepts a single request, an array of requests, or a batch object.
func parseBatch(data []byte) (checkBatch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return checkBatch{}, fmt.Errorf("no tool requests given")
	}

	var batch checkBatch
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &batch.ToolRequests); err != nil {
			return checkBatch{}, fmt.Errorf("invalid tool request array: %w", err)
		}
	case '{':
		if err := json.Unmarshal(data, &batch); err != nil {
			return checkBatch{}, fmt.Errorf("invalid tool request batch: %w", err)
		}
		if batch.ToolRequests == nil {
			var single toolcall.Request
			if err := json.Unmarshal(data, &single); err != nil {
				return checkBatch{}, fmt.Errorf("invalid tool request: %w", err)
			}
			batch.ToolRequests = []toolcall.Request{single}
		}
	default:
		return checkBatch{}, fmt.Errorf("expected a JSON object or array")
	}
	return batch, nil
}
