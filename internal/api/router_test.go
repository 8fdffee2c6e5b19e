package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/nikhilbhutani/voiceguard/internal/analysis"
	"github.com/nikhilbhutani/voiceguard/internal/api/handlers"
	"github.com/nikhilbhutani/voiceguard/internal/audit"
	"github.com/nikhilbhutani/voiceguard/internal/config"
	"github.com/nikhilbhutani/voiceguard/internal/models"
	"github.com/nikhilbhutani/voiceguard/internal/stt"
)

type scriptedProvider struct {
	text string
	err  error

	mu    sync.Mutex
	paths []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Transcribe(_ context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	p.mu.Lock()
	p.paths = append(p.paths, req.FilePath)
	p.mu.Unlock()
	if _, err := os.Stat(req.FilePath); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return &stt.TranscriptionResponse{Text: p.text}, nil
}

type staticLister struct {
	rows []models.VoiceAnalysis
	err  error
}

func (s *staticLister) ListAnalyses(_ context.Context, q audit.AnalysisQuery) ([]models.VoiceAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.VoiceAnalysis
	for _, r := range s.rows {
		if q.UnsafeOnly && !r.Unsafe {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestServer(t *testing.T, p stt.STTProvider, lister *staticLister, maxBytes int64) http.Handler {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{MaxUploadBytes: maxBytes}}
	svc := analysis.NewService(p, analysis.WithTempDir(t.TempDir()))

	var l handlers.AnalysisLister
	if lister != nil {
		l = lister
	}
	rt := NewRouter(nil, nil, cfg, svc, l)
	t.Cleanup(rt.Close)
	return rt.Setup()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func postAudio(t *testing.T, h http.Handler, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, "clip.wav", data)
	req := httptest.NewRequest(http.MethodPost, "/analyze-voice", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeVoiceEndToEnd(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"please help me now", `{"unsafe":true,"english_text":"please help me now","trigger":"VOICE_HELP"}`},
		{" the weather is nice today ", `{"unsafe":false,"english_text":"the weather is nice today","trigger":"NONE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			p := &scriptedProvider{text: tt.transcript}
			h := newTestServer(t, p, nil, 1<<20)

			rec := postAudio(t, h, "file", []byte("RIFF fake wav"))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
			if rec.Header().Get("X-Analysis-ID") == "" {
				t.Error("missing X-Analysis-ID header")
			}
			for _, path := range p.paths {
				if _, err := os.Stat(path); !os.IsNotExist(err) {
					t.Errorf("temp file %s survived the request", path)
				}
			}
		})
	}
}

func TestAnalyzeVoiceAcceptsOtherFieldName(t *testing.T) {
	h := newTestServer(t, &scriptedProvider{text: "emergency"}, nil, 1<<20)
	rec := postAudio(t, h, "audio", []byte("bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeVoiceTranscriptionFailure(t *testing.T) {
	p := &scriptedProvider{err: errors.New("error, status code: 401, message: Incorrect API key provided: sk-live-abcd1234")}
	h := newTestServer(t, p, nil, 1<<20)

	rec := postAudio(t, h, "file", []byte("bytes"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"voice analysis failed"}` {
		t.Errorf("error body = %s", got)
	}
	if strings.Contains(rec.Body.String(), "sk-live") || strings.Contains(rec.Body.String(), "401") {
		t.Errorf("upstream error text reached the client: %s", rec.Body.String())
	}
	if len(p.paths) != 1 {
		t.Fatalf("provider calls = %d", len(p.paths))
	}
	if _, err := os.Stat(p.paths[0]); !os.IsNotExist(err) {
		t.Error("temp file survived a failed transcription")
	}
}

func TestAnalyzeVoiceBadRequests(t *testing.T) {
	h := newTestServer(t, &scriptedProvider{}, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/analyze-voice", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("json body status = %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/analyze-voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d", rec.Code)
	}
}

func TestAnalyzeVoiceTooLarge(t *testing.T) {
	p := &scriptedProvider{text: "help"}
	h := newTestServer(t, p, nil, 512)

	rec := postAudio(t, h, "file", bytes.Repeat([]byte("a"), 4096))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(p.paths) != 0 {
		t.Error("oversized upload reached the transcriber")
	}
}

func TestClassifyEndpoint(t *testing.T) {
	h := newTestServer(t, &scriptedProvider{}, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", strings.NewReader(`{"text":"HELP ME"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `{"unsafe":true,"english_text":"HELP ME","trigger":"VOICE_HELP"}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/classify", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing text status = %d", rec.Code)
	}
}

func TestAnalysesEndpoint(t *testing.T) {
	h := newTestServer(t, &scriptedProvider{}, nil, 1<<20)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without database status = %d", rec.Code)
	}

	lister := &staticLister{rows: []models.VoiceAnalysis{
		{Trigger: "VOICE_HELP", Unsafe: true, EnglishText: "help"},
		{Trigger: "NONE", EnglishText: "hi"},
	}}
	h = newTestServer(t, &scriptedProvider{}, lister, 1<<20)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?unsafe=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?since=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d", rec.Code)
	}
}

func TestAnalysesEndpointHidesStoreErrors(t *testing.T) {
	lister := &staticLister{err: errors.New(`ERROR: relation "voice_analyses" does not exist (SQLSTATE 42P01)`)}
	h := newTestServer(t, &scriptedProvider{}, lister, 1<<20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"failed to list analyses"}` {
		t.Errorf("error body = %s", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, &scriptedProvider{}, nil, 1<<20)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}
