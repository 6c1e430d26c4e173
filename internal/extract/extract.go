// Package extract flattens a tool call into the text stream the signature
// matcher and the classifier consume.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gzhole/toolguard/internal/toolcall"
)

// DefaultMaxDepth bounds how far into nested arguments extraction descends.
const DefaultMaxDepth = 10

// commandKeys name argument fields that usually carry executable content.
var commandKeys = map[string]bool{
	"command": true,
	"script":  true,
	"code":    true,
	"shell":   true,
	"bash":    true,
	"cmd":     true,
}

func isCommandKey(k string) bool {
	return commandKeys[strings.ToLower(k)]
}

// item is a pending node of the argument walk.
type item struct {
	value any
	depth int
	label string // set when the value sits under a command-bearing key
}

// Content extracts call with the default depth bound.
func Content(call toolcall.Call) string {
	return ContentDepth(call, DefaultMaxDepth)
}

// ContentDepth renders "Tool: <name>" followed by the argument payload walked
// depth-first. The walk uses an explicit stack; values nested deeper than
// maxDepth are dropped.
func ContentDepth(call toolcall.Call, maxDepth int) string {
	lines := []string{"Tool: " + call.Name}
	if len(call.Arguments) == 0 {
		return lines[0]
	}

	stack := []item{{value: call.Arguments}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.depth > maxDepth {
			continue
		}

		switch v := it.value.(type) {
		case nil:
		case string:
			lines = appendString(lines, it.label, v)
		case bool:
			lines = appendScalar(lines, it.label, strconv.FormatBool(v))
		case float64:
			lines = appendScalar(lines, it.label, strconv.FormatFloat(v, 'f', -1, 64))
		case json.Number:
			lines = appendScalar(lines, it.label, v.String())
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
			lines = appendScalar(lines, it.label, fmt.Sprint(v))
		case map[string]any:
			if it.label != "" {
				lines = append(lines, it.label+":")
			}
			stack = pushMap(stack, v, it.depth+1)
		case map[string]string:
			m := make(map[string]any, len(v))
			for k, s := range v {
				m[k] = s
			}
			if it.label != "" {
				lines = append(lines, it.label+":")
			}
			stack = pushMap(stack, m, it.depth+1)
		case []string:
			list := make([]any, len(v))
			for i, s := range v {
				list[i] = s
			}
			lines, stack = visitList(lines, stack, it, list)
		case []any:
			lines, stack = visitList(lines, stack, it, v)
		default:
			lines = appendString(lines, it.label, fmt.Sprintf("%v", v))
		}
	}
	return strings.Join(lines, "\n")
}

// pushMap queues map entries so they pop in sorted key order.
func pushMap(stack []item, m map[string]any, depth int) []item {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i := len(keys) - 1; i >= 0; i-- {
		child := item{value: m[keys[i]], depth: depth}
		if isCommandKey(keys[i]) {
			child.label = keys[i]
		}
		stack = append(stack, child)
	}
	return stack
}

// visitList handles a list value. An argv-style list of strings under a
// command-bearing key is rendered as one command line so signatures can see
// it whole; everything else is walked element by element.
func visitList(lines []string, stack []item, it item, list []any) ([]string, []item) {
	if it.label != "" {
		if argv, ok := argvLine(list); ok {
			return appendString(lines, it.label, argv), stack
		}
		lines = append(lines, it.label+":")
	}
	for i := len(list) - 1; i >= 0; i-- {
		stack = append(stack, item{value: list[i], depth: it.depth + 1})
	}
	return lines, stack
}

func argvLine(list []any) (string, bool) {
	parts := make([]string, 0, len(list))
	for _, el := range list {
		s, ok := el.(string)
		if !ok {
			return "", false
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), len(parts) > 0
}

func appendScalar(lines []string, label, s string) []string {
	if label != "" {
		return append(lines, label+": "+s)
	}
	return append(lines, s)
}

// appendString emits s verbatim, followed by a sanitized copy when it hides
// invisible characters and, under command-bearing keys, a shell-normalized
// copy when quoting changes what a reader would see.
func appendString(lines []string, label, s string) []string {
	if strings.TrimSpace(s) == "" {
		return lines
	}
	lines = appendScalar(lines, label, s)

	visible, stripped := StripInvisible(s)
	if stripped {
		lines = appendScalar(lines, suffixLabel(label, "sanitized"), visible)
	}
	if label != "" {
		if norm, ok := NormalizeShell(visible); ok && norm != strings.TrimSpace(visible) {
			lines = appendScalar(lines, suffixLabel(label, "normalized"), norm)
		}
	}
	return lines
}

func suffixLabel(label, suffix string) string {
	if label == "" {
		return suffix
	}
	return label + " (" + suffix + ")"
}
