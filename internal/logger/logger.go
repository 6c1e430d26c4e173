package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gzhole/toolguard/internal/redact"
)

// defaultMaxLogBytes is the size at which the audit file is rotated to <path>.1.
const defaultMaxLogBytes = 10 << 20

// contentPreviewRunes bounds the tool content kept in an audit record.
const contentPreviewRunes = 200

// FindingEvent is one JSONL audit record for a malicious verdict on a tool call.
type FindingEvent struct {
	Timestamp      string   `json:"timestamp"`
	FindingID      string   `json:"finding_id,omitempty"`
	ToolRequestID  string   `json:"tool_request_id"`
	ToolName       string   `json:"tool_name"`
	Confidence     float64  `json:"confidence"`
	Threshold      float64  `json:"threshold"`
	AboveThreshold bool     `json:"above_threshold"`
	Explanation    string   `json:"explanation"`
	Signatures     []string `json:"signatures,omitempty"`
	MLConfidence   *float64 `json:"ml_confidence,omitempty"`
	ContentPreview string   `json:"content_preview,omitempty"`
	UserAction     string   `json:"user_action,omitempty"`
}

// AuditLogger appends FindingEvents to a file. Safe for concurrent use.
type AuditLogger struct {
	path     string
	file     *os.File
	size     int64
	maxBytes int64
	mu       sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// rotate renames the current file to <path>.1, replacing any previous backup.
func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

func (l *AuditLogger) Log(event FindingEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Explanation = redact.Redact(event.Explanation)
	if event.ContentPreview != "" {
		event.ContentPreview = redact.Preview(event.ContentPreview, contentPreviewRunes)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if l.size > 0 && l.size+int64(len(data)) > l.maxBytes {
		if err := l.rotate(); err != nil {
			return err
		}
	}
	n, err := l.file.Write(data)
	l.size += int64(n)
	return err
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// NewSlog builds the process logger: a text handler on w at the named level
// (debug, info, warn or error; anything else means info).
func NewSlog(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
