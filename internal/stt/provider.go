package stt

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/voiceguard/internal/config"
	"github.com/nikhilbhutani/voiceguard/internal/media"
)

// Task selects between same-language transcription and translation to English.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// TranscriptionRequest holds the parameters for audio transcription.
type TranscriptionRequest struct {
	FilePath string `json:"file_path"`
	Task     Task   `json:"task,omitempty"` // defaults to transcribe
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// TranscriptionResponse holds the transcription result.
type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// STTProvider is the interface for speech-to-text backends.
type STTProvider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}

// NewProvider builds the backend selected by cfg.Backend. conv may be nil,
// in which case uploads are sent to the server unconverted.
func NewProvider(cfg config.STTConfig, conv *media.Converter) (STTProvider, error) {
	switch cfg.Backend {
	case config.BackendOpenAI, "":
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:    cfg.OpenAIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			Converter: conv,
		}), nil
	case config.BackendLocal:
		return NewLocalSTT(LocalSTTConfig{
			BaseURL:   cfg.LocalBaseURL,
			Model:     cfg.OpenAIModel,
			Converter: conv,
		}), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}
