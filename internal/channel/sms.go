package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/phone"
)

// SMSSender delivers texts through an HTTP JSON gateway.
type SMSSender struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
	log     *logger.Logger
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type smsResponse struct {
	ID string `json:"id"`
}

// NewSMSSender returns nil when no gateway is configured; callers treat a
// nil sender as channel-unavailable.
func NewSMSSender(cfg config.SMSConfig, log *logger.Logger) *SMSSender {
	if cfg.GetSMSGatewayURL() == "" {
		return nil
	}

	return &SMSSender{
		baseURL: strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:  cfg.GetSMSGatewayKey(),
		from:    cfg.GetSMSFromNumber(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (s *SMSSender) Channel() string { return SMS }

func (s *SMSSender) Send(ctx context.Context, to, _ string, body string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("sms gateway not configured")
	}

	payload := smsRequest{
		From: s.from,
		To:   phone.NormalizeE164(to),
		Body: body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/messages", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Some gateways reply with an empty body on success.
		parsed.ID = ""
	}

	s.log.Info("sms sent", "to", payload.To)
	return parsed.ID, nil
}
