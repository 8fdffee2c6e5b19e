// Package analysis runs uploaded audio through translation and the distress
// classifier.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceguard/internal/distress"
	"github.com/nikhilbhutani/voiceguard/internal/media"
	"github.com/nikhilbhutani/voiceguard/internal/models"
	"github.com/nikhilbhutani/voiceguard/internal/queue"
	"github.com/nikhilbhutani/voiceguard/internal/stt"
)

// Result is the response returned to callers of the analyze endpoint.
type Result struct {
	Unsafe      bool             `json:"unsafe"`
	EnglishText string           `json:"english_text"`
	Trigger     distress.Trigger `json:"trigger"`
}

// Report wraps a Result with bookkeeping about how it was produced.
type Report struct {
	Result
	ID            uuid.UUID
	MatchedPhrase string
	AudioSHA256   string
	SizeBytes     int64
	Backend       string
	Cached        bool
	Latency       time.Duration
}

// Upload is one audio payload.
type Upload struct {
	Filename   string
	Body       io.Reader
	RemoteAddr string
}

// ResultCache stores verdicts keyed by audio digest.
type ResultCache interface {
	Get(ctx context.Context, digest string) (*Result, bool, error)
	Set(ctx context.Context, digest string, r *Result) error
}

// Recorder persists analyses.
type Recorder interface {
	RecordAnalysis(ctx context.Context, a models.VoiceAnalysis) error
}

// Alerter is notified of every unsafe verdict.
type Alerter interface {
	EnqueueDistressAlert(ctx context.Context, p queue.DistressAlertPayload) error
}

type Service struct {
	provider   stt.STTProvider
	classifier *distress.Classifier
	tempDir    string

	cache    ResultCache
	recorder Recorder
	alerter  Alerter
}

type Option func(*Service)

func WithClassifier(c *distress.Classifier) Option { return func(s *Service) { s.classifier = c } }
func WithTempDir(dir string) Option { return func(s *Service) { s.tempDir = dir } }
func WithCache(c ResultCache) Option { return func(s *Service) { s.cache = c } }
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }
func WithAlerter(a Alerter) Option { return func(s *Service) { s.alerter = a } }

func NewService(provider stt.STTProvider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		classifier: distress.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify runs the distress classifier over already-transcribed text.
func (s *Service) Classify(text string) (*Result, string) {
	text = strings.TrimSpace(text)
	phrase, unsafe := s.classifier.Match(text)
	return &Result{
		Unsafe:      unsafe,
		EnglishText: text,
		Trigger:     distress.TriggerFor(unsafe),
	}, phrase
}

// Analyze stores the upload in a scoped temp file, translates it to English
// and classifies the text. The temp file never outlives the call.
func (s *Service) Analyze(ctx context.Context, up Upload) (*Report, error) {
	start := time.Now()
	report := &Report{ID: uuid.New(), Backend: s.provider.Name()}

	digest := sha256.New()
	counter := &countingReader{r: up.Body, h: digest}

	err := media.WithTempFile(s.tempDir, media.SuffixFor(up.Filename), counter, func(path string) error {
		report.SizeBytes = counter.n
		report.AudioSHA256 = hex.EncodeToString(digest.Sum(nil))

		if cached := s.lookup(ctx, report.AudioSHA256); cached != nil {
			report.Result = *cached
			report.MatchedPhrase, _ = s.classifier.Match(cached.EnglishText)
			report.Cached = true
			return nil
		}

		resp, err := s.provider.Transcribe(ctx, stt.TranscriptionRequest{
			FilePath: path,
			Task:     stt.TaskTranslate,
		})
		if err != nil {
			return fmt.Errorf("transcribe audio: %w", err)
		}

		result, phrase := s.Classify(resp.Text)
		report.Result = *result
		report.MatchedPhrase = phrase
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Latency = time.Since(start)

	slog.Info("voice analyzed",
		"analysis_id", report.ID,
		"backend", report.Backend,
		"unsafe", report.Unsafe,
		"trigger", report.Trigger,
		"matched_phrase", report.MatchedPhrase,
		"cached", report.Cached,
		"bytes", report.SizeBytes,
		"latency_ms", report.Latency.Milliseconds(),
	)

	s.afterAnalysis(ctx, up, report)
	return report, nil
}

func (s *Service) lookup(ctx context.Context, digest string) *Result {
	if s.cache == nil {
		return nil
	}
	r, ok, err := s.cache.Get(ctx, digest)
	if err != nil {
		slog.Warn("result cache lookup failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return r
}

// afterAnalysis runs the best-effort side effects. Failures are logged and
// never change the caller's result.
func (s *Service) afterAnalysis(ctx context.Context, up Upload, r *Report) {
	if s.cache != nil && !r.Cached {
		if err := s.cache.Set(ctx, r.AudioSHA256, &r.Result); err != nil {
			slog.Warn("result cache store failed", "error", err, "analysis_id", r.ID)
		}
	}

	if s.recorder != nil {
		err := s.recorder.RecordAnalysis(ctx, models.VoiceAnalysis{
			ID:            r.ID,
			Filename:      up.Filename,
			SizeBytes:     r.SizeBytes,
			AudioSHA256:   r.AudioSHA256,
			EnglishText:   r.EnglishText,
			Unsafe:        r.Unsafe,
			Trigger:       string(r.Trigger),
			MatchedPhrase: r.MatchedPhrase,
			Backend:       r.Backend,
			Cached:        r.Cached,
			LatencyMs:     r.Latency.Milliseconds(),
			RemoteAddr:    up.RemoteAddr,
		})
		if err != nil {
			slog.Warn("failed to record analysis", "error", err, "analysis_id", r.ID)
		}
	}

	if s.alerter != nil && r.Unsafe {
		err := s.alerter.EnqueueDistressAlert(ctx, queue.DistressAlertPayload{
			AnalysisID:    r.ID.String(),
			EnglishText:   r.EnglishText,
			MatchedPhrase: r.MatchedPhrase,
			Trigger:       string(r.Trigger),
			Filename:      up.Filename,
			RemoteAddr:    up.RemoteAddr,
			DetectedAt:    time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to enqueue distress alert", "error", err, "analysis_id", r.ID)
		}
	}
}

type countingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.Write(p[:n])
		c.n += int64(n)
	}
	return n, err
}
