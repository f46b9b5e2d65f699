package email

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileEmailSender appends a readable copy of every outgoing message to a local file.
// Entries carry the template id so a developer can grep for e.g. password_reset links.
type FileEmailSender struct {
	filePath string
	mu       sync.Mutex
	now      func() time.Time
}

// NewFileEmailSender creates the file's directory if needed.
func NewFileEmailSender(filePath string) (Sender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}
	return &FileEmailSender{filePath: filePath, now: time.Now}, nil
}

func (s *FileEmailSender) entry(to []string, subject string, rawMessage []byte) string {
	templateID, body := parseMessage(rawMessage)
	if templateID == "" {
		templateID = "-"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s | to=%s | template=%s | subject=%s ===\n",
		s.now().UTC().Format(time.RFC3339), strings.Join(to, ","), templateID, subject)
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n")
	return b.String()
}

func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	entry := s.entry(to, subject, rawMessage)

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write email to log file: %w", err)
	}
	log.Printf("Email to %s copied to %s", strings.Join(to, ","), s.filePath)
	return nil
}
