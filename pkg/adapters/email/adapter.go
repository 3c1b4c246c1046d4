package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loomhq/loom/pkg/adapter"
)

const requestTimeout = 30 * time.Second

// Email sends exactly one message per execution through an HTTP
// delivery API.
type Email struct {
	APIURL  string
	APIKey  string
	From    string
	To      []string
	Subject string
	Body    string
	HTML    string

	client *http.Client
}

// New builds an email adapter from resolved configuration.
func New(config map[string]any) (*Email, error) {
	apiURL, _ := config["api_url"].(string)
	apiKey, _ := config["api_key"].(string)
	from, _ := config["from"].(string)
	subject, _ := config["subject"].(string)

	if apiURL == "" || apiKey == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "email requires api_url and api_key")
	}

	if from == "" || subject == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "email requires from and subject")
	}

	to, err := recipients(config["to"])
	if err != nil {
		return nil, err
	}

	body, _ := config["body"].(string)
	html, _ := config["html"].(string)

	return &Email{
		APIURL:  strings.TrimSuffix(apiURL, "/"),
		APIKey:  apiKey,
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
		HTML:    html,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

func recipients(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, adapter.NewError(adapter.KindInvalidConfig, "email requires at least one recipient")
		}

		return []string{v}, nil
	case []any:
		to := make([]string, 0, len(v))

		for _, item := range v {
			address, ok := item.(string)
			if !ok || address == "" {
				return nil, adapter.NewError(adapter.KindInvalidConfig, "email recipients must be strings")
			}

			to = append(to, address)
		}

		if len(to) == 0 {
			return nil, adapter.NewError(adapter.KindInvalidConfig, "email requires at least one recipient")
		}

		return to, nil
	default:
		return nil, adapter.NewError(adapter.KindInvalidConfig, "email requires at least one recipient")
	}
}

func (e *Email) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "email", "recipients", len(e.To))
	logger.Info("Sending email")

	payload := map[string]any{
		"from":    e.From,
		"to":      e.To,
		"subject": e.Subject,
		"text":    e.Body,
	}
	if e.HTML != "" {
		payload["html"] = e.HTML
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to encode email request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.APIURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to build email request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "email delivery api unreachable", err)
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)

	if httpErr := adapter.FromHTTPStatus(resp.StatusCode, string(responseBody)); httpErr != nil {
		return nil, httpErr
	}

	output := map[string]any{
		"accepted": e.To,
		"subject":  e.Subject,
	}

	var decoded map[string]any
	if err := json.Unmarshal(responseBody, &decoded); err == nil {
		if id, ok := decoded["id"]; ok {
			output["message_id"] = id
		}
	}

	logger.Info("Email accepted for delivery", "status_code", resp.StatusCode)

	return output, nil
}
