package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/voiceagent/internal/config"
	"github.com/ent0n29/voiceagent/internal/voice"
)

// VoiceInfo describes how speech capture and synthesis are provided.
type VoiceInfo struct {
	Provider string
	Language string
	Detail   string
	Mock     voice.MockOptions
}

func resolveVoice(cfg config.Config) (VoiceInfo, error) {
	info := VoiceInfo{Language: cfg.VoiceLanguage}
	switch strings.ToLower(strings.TrimSpace(cfg.VoiceProvider)) {
	case "", voice.ProviderRemote:
		info.Provider = voice.ProviderRemote
		info.Detail = "browser speech recognition and synthesis"
	case voice.ProviderMock:
		info.Provider = voice.ProviderMock
		info.Mock = voice.MockOptions{Utterance: cfg.MockUtterance, SpeechRate: cfg.MockSpeechRate}
		info.Detail = fmt.Sprintf("mock (hears %q, speaks at %d chars/s)", cfg.MockUtterance, cfg.MockSpeechRate)
	default:
		return VoiceInfo{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected remote|mock)", cfg.VoiceProvider)
	}
	return info, nil
}

// janitorInterval scans a few times per inactivity window.
func janitorInterval(cfg config.Config) time.Duration {
	interval := cfg.SessionInactivityTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 30*time.Second {
		interval = 30 * time.Second
	}
	return interval
}
