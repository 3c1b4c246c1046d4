package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/loomhq/loom/pkg/adapter"
)

const requestTimeout = 15 * time.Second

// Chat posts exactly one message per execution to an incoming webhook.
type Chat struct {
	WebhookURL string
	Text       string
	Username   string
	Channel    string

	client *http.Client
}

// New builds a chat adapter from resolved configuration.
func New(config map[string]any) (*Chat, error) {
	webhookURL, _ := config["webhook_url"].(string)
	text, _ := config["text"].(string)

	if webhookURL == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "chat requires a webhook_url")
	}

	if text == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "chat requires a message text")
	}

	username, _ := config["username"].(string)
	channel, _ := config["channel"].(string)

	return &Chat{
		WebhookURL: webhookURL,
		Text:       text,
		Username:   username,
		Channel:    channel,
		client:     &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *Chat) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "chat")
	logger.Info("Posting chat notification")

	payload := map[string]any{"text": c.Text}
	if c.Username != "" {
		payload["username"] = c.Username
	}

	if c.Channel != "" {
		payload["channel"] = c.Channel
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to encode chat message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to build chat request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "chat webhook unreachable", err)
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)

	if httpErr := adapter.FromHTTPStatus(resp.StatusCode, string(responseBody)); httpErr != nil {
		return nil, httpErr
	}

	logger.Info("Chat notification delivered", "status_code", resp.StatusCode)

	return map[string]any{
		"delivered":   true,
		"status_code": resp.StatusCode,
	}, nil
}
