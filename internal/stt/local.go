package stt

import "github.com/nikhilbhutani/voiceguard/internal/media"

// LocalSTTConfig holds configuration for a self-hosted whisper server that
// speaks the OpenAI audio API.
type LocalSTTConfig struct {
	BaseURL   string // default: "http://localhost:8178"
	Model     string
	Converter *media.Converter // optional; normalizes non-WAV input
}

// LocalSTT wraps OpenAISTT pointing at a local whisper server. whisper.cpp
// only reads WAV, so every other upload is converted when a converter is set.
type LocalSTT struct {
	*OpenAISTT
}

// NewLocalSTT creates a LocalSTT backed by a local whisper HTTP server.
func NewLocalSTT(cfg LocalSTTConfig) *LocalSTT {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8178"
	}
	o := NewOpenAISTT(OpenAISTTConfig{
		BaseURL:   baseURL,
		Model:     cfg.Model,
		Converter: cfg.Converter,
		// No API key needed for local server
	})
	o.name = "local-whisper"
	o.wavOnly = true
	return &LocalSTT{OpenAISTT: o}
}
