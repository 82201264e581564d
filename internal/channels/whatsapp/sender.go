package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// SenderConfig controls the Twilio REST sender.
type SenderConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string // e.g. "whatsapp:+14155238886"
	BaseURL    string
	HTTPClient *http.Client
}

// Sender sends WhatsApp messages through the Twilio Messages API. Inline
// TwiML replies don't need it; it exists for human-takeover and proactive
// sends.
type Sender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewSender creates a configured Twilio WhatsApp sender.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("whatsapp: twilio credentials are required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, errors.New("whatsapp: twilio from number is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Sender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       FormatNumber(cfg.FromNumber),
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// FormatNumber normalizes a phone number into the "whatsapp:+E164" form
// Twilio expects.
func FormatNumber(phone string) string {
	cleaned := strings.TrimSpace(strings.TrimPrefix(phone, "whatsapp:"))
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	return "whatsapp:" + cleaned
}

// Send delivers a WhatsApp message and returns the provider message SID.
func (s *Sender) Send(ctx context.Context, to, body string) (string, error) {
	tracer := otel.Tracer("jawab.internal.channels.whatsapp")
	ctx, span := tracer.Start(ctx, "sender.send")
	defer span.End()

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", FormatNumber(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("whatsapp: failed to build send request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("whatsapp: send request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("whatsapp: failed to read send response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return "", fmt.Errorf("whatsapp: twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whatsapp: failed to decode send response: %w", err)
	}
	return result.SID, nil
}
