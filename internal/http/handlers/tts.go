package handlers

import (
	"context"
	"net/http"

	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

type speechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	VoiceForLanguage(language, tenantVoiceID string) string
}

// TTSHandler turns text into MP3 audio for voice previews in the dashboard.
type TTSHandler struct {
	synth  speechSynthesizer
	logger *logging.Logger
}

// NewTTSHandler creates a TTS handler.
func NewTTSHandler(synth speechSynthesizer, logger *logging.Logger) *TTSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TTSHandler{synth: synth, logger: logger}
}

// Synthesize renders the posted text with the requested or language-default
// voice and streams back audio/mpeg.
// POST /api/tts
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		writeError(w, http.StatusServiceUnavailable, "text-to-speech is not configured")
		return
	}

	var req struct {
		Text     string `json:"text"`
		Language string `json:"language,omitempty"`
		VoiceID  string `json:"voice_id,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	voiceID := h.synth.VoiceForLanguage(req.Language, req.VoiceID)
	audio, err := h.synth.Synthesize(r.Context(), req.Text, voiceID)
	if err != nil {
		h.logger.Error("tts synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "synthesis failed")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
