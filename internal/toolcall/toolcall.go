// Package toolcall holds the shapes the agent loop hands to the scanner:
// proposed tool calls and the conversation they were proposed in.
package toolcall

// Call is a single tool invocation with its decoded argument payload.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Request wraps a Call with the identifier the agent assigned to it. When the
// upstream loop failed to parse the call, Call is nil and ParseError says why.
type Request struct {
	ID         string `json:"id"`
	Call       *Call  `json:"tool_call,omitempty"`
	ParseError string `json:"parse_error,omitempty"`
}

// Parsed returns the call if the upstream payload parsed successfully.
func (r Request) Parsed() (*Call, bool) {
	if r.Call == nil || r.ParseError != "" {
		return nil, false
	}
	return r.Call, true
}

// Message is one conversation turn. Scanning does not use message content
// yet; the batch API accepts it so context-aware checks can be added without
// changing callers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
