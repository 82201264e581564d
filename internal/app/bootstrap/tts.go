package bootstrap

import (
	"fmt"

	appconfig "github.com/jawab-ai/jawab-platform/internal/config"
	"github.com/jawab-ai/jawab-platform/internal/tts"
)

func buildTTS(cfg *appconfig.Config) (*tts.Client, error) {
	client, err := tts.NewClient(tts.ClientConfig{
		APIKey:         cfg.ElevenLabsAPIKey,
		DefaultVoiceID: cfg.ElevenLabsVoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: failed to build tts client: %w", err)
	}
	return client, nil
}
