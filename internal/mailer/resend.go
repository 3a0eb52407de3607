package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopcore/backend/pkg/httpclient"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendConfig configures the Resend API sender.
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// ResendMailer sends email through the Resend HTTP API, protected by a
// circuit breaker so a provider outage cannot pile up blocked requests.
type ResendMailer struct {
	client  *httpclient.CircuitBreakerClient
	cfg     ResendConfig
	logger  *slog.Logger
	baseURL string
}

// NewResendMailer builds the production sender. APIKey and From must be set.
func NewResendMailer(cfg ResendConfig, logger *slog.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("resend from address is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultResendBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Timeout
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("resend"),
		logger,
	)

	return &ResendMailer{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers one message and returns the provider message id.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(resendRequest{
		From:    m.cfg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", &DeliveryError{Kind: KindUnknown, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", &DeliveryError{Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			kind = KindUnknown
		}
		return "", &DeliveryError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", &DeliveryError{Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", classifyAPIError(resp.StatusCode, body)
	}

	var out resendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &DeliveryError{Kind: KindUnknown, Err: fmt.Errorf("decoding response: %w", err)}
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("message_id", out.ID),
	)
	return out.ID, nil
}

func classifyAPIError(status int, body []byte) *DeliveryError {
	var apiErr resendError
	_ = json.Unmarshal(body, &apiErr)
	errMsg := apiErr.Message
	if errMsg == "" {
		errMsg = string(body)
	}
	err := fmt.Errorf("resend api status %d: %s", status, errMsg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &DeliveryError{Kind: KindAuth, Err: err}
	case status == http.StatusTooManyRequests:
		return &DeliveryError{Kind: KindRateLimited, Err: err}
	case status == http.StatusUnprocessableEntity && apiErr.Name == "validation_error":
		return &DeliveryError{Kind: KindSender, Err: err}
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return &DeliveryError{Kind: KindConfig, Err: err}
	default:
		return &DeliveryError{Kind: KindUnknown, Err: err}
	}
}
