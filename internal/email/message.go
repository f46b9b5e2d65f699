package email

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
)

// TemplateHeader names the template a message was rendered from. Mock senders key on it.
const TemplateHeader = "X-Template-ID"

// BuildMessage renders a plain-text RFC 5322 message.
func BuildMessage(from, to, subject, body, templateID string, now time.Time) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	if templateID != "" {
		sb.WriteString(fmt.Sprintf("%s: %s\r\n", TemplateHeader, templateID))
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// parseMessage splits a raw message into its template id and body.
func parseMessage(raw []byte) (templateID, body string) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", string(raw)
	}
	b, err := io.ReadAll(msg.Body)
	if err != nil {
		return msg.Header.Get(TemplateHeader), ""
	}
	return msg.Header.Get(TemplateHeader), strings.TrimRight(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
}
