package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/logger"
)

var (
	logReported bool
	logTool     string
	logLast     int
	logSummary  bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the findings audit log",
	Long: `View the ToolGuard findings log with filtering and summary options.

Examples:
  toolguard log                  # Show all entries
  toolguard log --last 20        # Show last 20 entries
  toolguard log --reported       # Only verdicts that produced a finding
  toolguard log --tool shell     # Only entries for one tool
  toolguard log --summary        # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().BoolVar(&logReported, "reported", false, "Show only entries above the threshold")
	logCmd.Flags().StringVar(&logTool, "tool", "", "Filter by tool name")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := readAuditLog(cfg.Audit.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, logReported, logTool)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}
	printEvents(out, filtered)
	return nil
}

func readAuditLog(path string) ([]logger.FindingEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.FindingEvent
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.FindingEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, sc.Err()
}

func filterEvents(events []logger.FindingEvent, reportedOnly bool, tool string) []logger.FindingEvent {
	if !reportedOnly && tool == "" {
		return events
	}
	var filtered []logger.FindingEvent
	for _, e := range events {
		if reportedOnly && !e.AboveThreshold {
			continue
		}
		if tool != "" && !strings.EqualFold(e.ToolName, tool) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.FindingEvent) {
	for _, e := range events {
		tag := "[below threshold]"
		if e.AboveThreshold {
			tag = "[" + e.FindingID + "]"
		}
		fmt.Fprintf(w, "%s %s %s confidence=%.2f %s\n",
			formatTimestamp(e.Timestamp), e.ToolName, e.ToolRequestID, e.Confidence, tag)
		if len(e.Signatures) > 0 {
			fmt.Fprintf(w, "     Signatures: %s\n", strings.Join(e.Signatures, ", "))
		}
		if e.MLConfidence != nil {
			fmt.Fprintf(w, "     Classifier: %.2f\n", *e.MLConfidence)
		}
		for _, line := range strings.Split(e.Explanation, "\n") {
			fmt.Fprintf(w, "     %s\n", line)
		}
		if e.UserAction != "" {
			fmt.Fprintf(w, "     User: %s\n", e.UserAction)
		}
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.FindingEvent) {
	reported := 0
	bySignature := map[string]int{}
	byTool := map[string]int{}
	for _, e := range all {
		if e.AboveThreshold {
			reported++
		}
		byTool[e.ToolName]++
		for _, id := range e.Signatures {
			bySignature[id]++
		}
	}

	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "  ToolGuard Findings Summary")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintf(w, "  Malicious verdicts: %d\n", len(all))
	fmt.Fprintf(w, "  Reported findings:  %d\n", reported)
	fmt.Fprintf(w, "  Below threshold:    %d\n", len(all)-reported)
	fmt.Fprintf(w, "  First event:        %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last event:         %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	printCounts(w, "Top signatures", bySignature)
	printCounts(w, "By tool", byTool)
	fmt.Fprintln(w)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > 10 {
		keys = keys[:10]
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-28s %d\n", k, counts[k])
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
