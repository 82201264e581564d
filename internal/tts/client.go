package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Default ElevenLabs voices per language. Rachel for English, Sara for
// Arabic; tenants can override with their own voice id.
const (
	DefaultEnglishVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultArabicVoiceID  = "pFZP5JQG7iQjIQuC4Bku"
)

var ttsTracer = otel.Tracer("jawab.internal.tts")

// ClientConfig controls the ElevenLabs client.
type ClientConfig struct {
	APIKey         string
	DefaultVoiceID string
	BaseURL        string
	HTTPClient     *http.Client
}

// Client synthesizes speech with the ElevenLabs API.
type Client struct {
	apiKey         string
	defaultVoiceID string
	baseURL        string
	httpClient     *http.Client
}

// NewClient creates a configured ElevenLabs client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tts: elevenlabs api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:         cfg.APIKey,
		defaultVoiceID: cfg.DefaultVoiceID,
		baseURL:        baseURL,
		httpClient:     httpClient,
	}, nil
}

// VoiceForLanguage picks a voice id for a detected language ("ar" or "en").
// An explicit tenant voice id wins over the language default.
func (c *Client) VoiceForLanguage(language, tenantVoiceID string) string {
	if tenantVoiceID != "" {
		return tenantVoiceID
	}
	if c.defaultVoiceID != "" {
		return c.defaultVoiceID
	}
	if language == "ar" {
		return DefaultArabicVoiceID
	}
	return DefaultEnglishVoiceID
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

// Synthesize renders text to MP3 audio with the given voice. The
// multilingual model handles both Arabic and English.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	ctx, span := ttsTracer.Start(ctx, "tts.synthesize")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts: text is required")
	}
	if voiceID == "" {
		voiceID = c.VoiceForLanguage("en", "")
	}

	payload, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tts: synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("tts: elevenlabs returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read audio: %w", err)
	}
	return audio, nil
}
