package tone

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FeedbackSink receives escalated classifications for offline analysis.
type FeedbackSink interface {
	Record(label Label, message string) error
}

// FileSink appends one line per escalation, format "LABEL | message".
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Record(label Label, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create feedback log directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s | %s\n", strings.ToUpper(string(label)), strings.TrimSpace(message))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append feedback log: %w", err)
	}

	return nil
}

var _ FeedbackSink = (*FileSink)(nil)

// NopSink discards feedback; used when no log is configured and in tests.
type NopSink struct{}

func (NopSink) Record(Label, string) error { return nil }

var _ FeedbackSink = NopSink{}
