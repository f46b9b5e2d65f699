package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"greendrake/realty/internal/config"
)

const mockEmailTTL = 5 * time.Minute

// MockEmail is what RedisSender stores for each message.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId"`
	SentAt     string `json:"sentAt"`
}

// RedisSender implements the Sender interface by storing emails in Redis
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

func mockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// Send stores the email under mockemail:<to>:<template> for integration tests to read back.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID, body := parseMessage(rawMessage)
	if templateID == "" {
		templateID = "unknown"
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	jsonData, err := json.Marshal(MockEmail{
		To:         strings.Join(to, ", "),
		From:       s.cfg.SmtpFromAddress,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := mockEmailKey(primaryTo, templateID)
	if err := s.client.Set(ctx, key, jsonData, mockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, mockEmailTTL, strings.Join(to, ", "), subject)
	return nil
}

// ErrNoMockEmail is returned by GetMockEmail when nothing was stored for the key.
var ErrNoMockEmail = errors.New("no mock email stored")

// GetMockEmail reads back the last message RedisSender stored for to and templateID.
func GetMockEmail(ctx context.Context, client *redis.Client, to, templateID string) (*MockEmail, error) {
	data, err := client.Get(ctx, mockEmailKey(to, templateID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoMockEmail
		}
		return nil, fmt.Errorf("failed to read mock email: %w", err)
	}
	var m MockEmail
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mock email: %w", err)
	}
	return &m, nil
}
