package stt

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/voiceguard/internal/media"
)

// OpenAISTTConfig holds configuration for the OpenAI STT backend.
type OpenAISTTConfig struct {
	APIKey     string
	BaseURL    string // default: "https://api.openai.com/v1"
	Model      string // default: "whisper-1"
	HTTPClient *http.Client
	Converter  *media.Converter // optional; re-encodes uploads the server cannot sniff
}

// OpenAISTT transcribes audio using OpenAI's Whisper API (or a compatible endpoint).
type OpenAISTT struct {
	client *openai.Client
	model  string
	name   string
	conv   *media.Converter
	// wavOnly forces conversion of every non-WAV upload.
	wavOnly bool
}

// NewOpenAISTT creates an OpenAISTT with sensible defaults applied.
func NewOpenAISTT(cfg OpenAISTTConfig) *OpenAISTT {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 300 * time.Second}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = cfg.HTTPClient

	return &OpenAISTT{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		name:   "openai-whisper",
		conv:   cfg.Converter,
	}
}

func (o *OpenAISTT) Name() string { return o.name }

// Transcribe uploads the audio file. TaskTranslate always yields English text.
func (o *OpenAISTT) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	if o.needsConversion(req.FilePath) {
		wav := req.FilePath + ".16k.wav"
		defer os.Remove(wav)
		if err := o.conv.ToWAV(ctx, req.FilePath, wav); err != nil {
			return nil, fmt.Errorf("normalize audio: %w", err)
		}
		req.FilePath = wav
	}

	audioReq := openai.AudioRequest{
		Model:    o.model,
		FilePath: req.FilePath,
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	switch req.Task {
	case TaskTranslate:
		resp, err = o.client.CreateTranslation(ctx, audioReq)
	case TaskTranscribe, "":
		audioReq.Language = req.Language
		resp, err = o.client.CreateTranscription(ctx, audioReq)
	default:
		return nil, fmt.Errorf("unsupported task %q", req.Task)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", o.Name(), taskName(req.Task), err)
	}

	return &TranscriptionResponse{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

func taskName(t Task) string {
	if t == "" {
		return string(TaskTranscribe)
	}
	return string(t)
}

// needsConversion reports whether path must go through ffmpeg first. A .wav
// name over non-WAV bytes means the upload carried no usable extension.
func (o *OpenAISTT) needsConversion(path string) bool {
	if o.conv == nil {
		return false
	}
	if media.IsWAV(path) {
		return !media.HasWAVHeader(path)
	}
	return o.wavOnly
}
