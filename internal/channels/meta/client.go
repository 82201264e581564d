package meta

import (
	"bytes"
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
)

const defaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// ClientConfig controls the Graph API client.
type ClientConfig struct {
	AccessToken        string
	InstagramAccountID string
	BaseURL            string
	HTTPClient         *http.Client
}

// Client wraps the Graph API endpoints the adapter needs: DM send, comment
// reply, quick replies, typing indicators, and profile lookup.
type Client struct {
	accessToken        string
	instagramAccountID string
	baseURL            string
	httpClient         *http.Client
}

// NewClient creates a configured Graph API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("meta: page access token is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		accessToken:        cfg.AccessToken,
		instagramAccountID: cfg.InstagramAccountID,
		baseURL:            baseURL,
		httpClient:         httpClient,
	}, nil
}

// WithAccessToken returns a shallow copy using a tenant-specific page token.
func (c *Client) WithAccessToken(token string) *Client {
	if strings.TrimSpace(token) == "" {
		return c
	}
	clone := *c
	clone.accessToken = token
	return &clone
}

type graphResponse struct {
	ID        string `json:"id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*graphResponse, error) {
	tracer := otel.Tracer("jawab.internal.channels.meta")
	ctx, span := tracer.Start(ctx, "client.post")
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("meta: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("meta: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("meta: graph request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("meta: failed to read graph response: %w", err)
	}

	var result graphResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("meta: failed to decode graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "unknown error"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("meta: graph returned status %d: %s", resp.StatusCode, msg)
	}
	return &result, nil
}

func (c *Client) messagesEndpoint(platform string) string {
	if platform == "instagram_dm" && c.instagramAccountID != "" {
		return fmt.Sprintf("%s/%s/messages", c.baseURL, c.instagramAccountID)
	}
	return c.baseURL + "/me/messages"
}

// SendDirectMessage sends a DM over Messenger or Instagram and returns the
// provider message id.
func (c *Client) SendDirectMessage(ctx context.Context, recipientID, text, platform string) (string, error) {
	result, err := c.post(ctx, c.messagesEndpoint(platform), map[string]any{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	})
	if err != nil {
		return "", err
	}
	return result.MessageID, nil
}

// QuickReply is one tappable option attached to a DM.
type QuickReply struct {
	Title   string
	Payload string
}

// SendQuickReplies sends a DM with tappable reply options.
func (c *Client) SendQuickReplies(ctx context.Context, recipientID, text, platform string, replies []QuickReply) (string, error) {
	qrs := make([]map[string]string, 0, len(replies))
	for _, qr := range replies {
		qrs = append(qrs, map[string]string{
			"content_type": "text",
			"title":        qr.Title,
			"payload":      qr.Payload,
		})
	}
	result, err := c.post(ctx, c.messagesEndpoint(platform), map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message": map[string]any{
			"text":          text,
			"quick_replies": qrs,
		},
		"messaging_type": "RESPONSE",
	})
	if err != nil {
		return "", err
	}
	return result.MessageID, nil
}

// ReplyToComment posts a public reply under a comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	result, err := c.post(ctx, fmt.Sprintf("%s/%s/replies", c.baseURL, url.PathEscape(commentID)), map[string]string{
		"message": text,
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// SendTypingIndicator toggles the typing state in a DM thread. Errors are
// returned but callers treat the indicator as best effort.
func (c *Client) SendTypingIndicator(ctx context.Context, recipientID, action string) error {
	_, err := c.post(ctx, c.baseURL+"/me/messages", map[string]any{
		"recipient":     map[string]string{"id": recipientID},
		"sender_action": action,
	})
	return err
}

// Profile is the subset of a user profile the dashboard shows.
type Profile struct {
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// GetUserProfile fetches a sender's display name and avatar.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=name,profile_pic&access_token=%s",
		c.baseURL, url.PathEscape(userID), url.QueryEscape(c.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("meta: failed to build profile request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta: profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meta: profile lookup returned status %d", resp.StatusCode)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("meta: failed to decode profile: %w", err)
	}
	return &profile, nil
}
