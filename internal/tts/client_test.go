package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{
		APIKey:     "xi-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestSynthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	})

	audio, err := client.Synthesize(context.Background(), "مرحباً بك", "voice-9")
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "/v1/text-to-speech/voice-9", gotPath)
	assert.Equal(t, "xi-key", gotKey)
	assert.Equal(t, "eleven_multilingual_v2", gotBody["model_id"])

	settings := gotBody["voice_settings"].(map[string]any)
	assert.Equal(t, 0.5, settings["stability"])
	assert.Equal(t, 0.75, settings["similarity_boost"])
}

func TestSynthesize_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	})

	_, err := client.Synthesize(context.Background(), "hello", "voice-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSynthesize_EmptyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Synthesize(context.Background(), "  ", "voice-9")
	assert.Error(t, err)
}

func TestVoiceForLanguage(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "xi-key"})
	require.NoError(t, err)

	assert.Equal(t, "tenant-voice", client.VoiceForLanguage("ar", "tenant-voice"))
	assert.Equal(t, DefaultArabicVoiceID, client.VoiceForLanguage("ar", ""))
	assert.Equal(t, DefaultEnglishVoiceID, client.VoiceForLanguage("en", ""))

	withDefault, err := NewClient(ClientConfig{APIKey: "xi-key", DefaultVoiceID: "configured"})
	require.NoError(t, err)
	assert.Equal(t, "configured", withDefault.VoiceForLanguage("en", ""))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}
