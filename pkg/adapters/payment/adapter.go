package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomhq/loom/pkg/adapter"
)

const requestTimeout = 30 * time.Second

// Payment performs exactly one charge or refund per execution. The
// idempotency key is forwarded to the provider so that executor-level
// retries of transient failures never double-charge.
type Payment struct {
	Operation      string
	APIURL         string
	APIKey         string
	Amount         int64
	Currency       string
	Customer       string
	ChargeID       string
	IdempotencyKey string

	client *http.Client
}

// New builds a payment adapter from resolved configuration.
func New(config map[string]any) (*Payment, error) {
	operation, _ := config["operation"].(string)
	apiURL, _ := config["api_url"].(string)
	apiKey, _ := config["api_key"].(string)

	if operation != "charge" && operation != "refund" {
		return nil, adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("unknown payment operation %q", operation))
	}

	if apiURL == "" || apiKey == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "payment requires api_url and api_key")
	}

	currency, _ := config["currency"].(string)
	if currency == "" {
		currency = "usd"
	}

	var amount int64
	if raw, ok := config["amount"].(float64); ok {
		amount = int64(raw)
	}

	if operation == "charge" && amount <= 0 {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "charge requires a positive amount")
	}

	chargeID, _ := config["charge_id"].(string)
	if operation == "refund" && chargeID == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "refund requires a charge_id")
	}

	idempotencyKey, _ := config["idempotency_key"].(string)
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	customer, _ := config["customer"].(string)

	return &Payment{
		Operation:      operation,
		APIURL:         strings.TrimSuffix(apiURL, "/"),
		APIKey:         apiKey,
		Amount:         amount,
		Currency:       currency,
		Customer:       customer,
		ChargeID:       chargeID,
		IdempotencyKey: idempotencyKey,
		client:         &http.Client{Timeout: requestTimeout},
	}, nil
}

func (p *Payment) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "payment", "operation", p.Operation)
	logger.Info("Executing payment operation")

	path, payload := p.request()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to encode payment request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to build payment request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Idempotency-Key", p.IdempotencyKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindUnreachable, "payment provider unreachable", err)
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)

	if httpErr := adapter.FromHTTPStatus(resp.StatusCode, string(responseBody)); httpErr != nil {
		return nil, httpErr
	}

	output := map[string]any{
		"operation":       p.Operation,
		"idempotency_key": p.IdempotencyKey,
	}

	var decoded map[string]any
	if err := json.Unmarshal(responseBody, &decoded); err == nil {
		for key, value := range decoded {
			output[key] = value
		}
	}

	logger.Info("Payment operation completed", "status_code", resp.StatusCode)

	return output, nil
}

func (p *Payment) request() (string, map[string]any) {
	if p.Operation == "refund" {
		return "/refunds", map[string]any{
			"charge": p.ChargeID,
			"amount": p.Amount,
		}
	}

	return "/charges", map[string]any{
		"amount":   p.Amount,
		"currency": p.Currency,
		"customer": p.Customer,
	}
}
