package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/voiceguard/internal/analysis"
)

// Analyzer runs an upload through transcription and classification.
type Analyzer interface {
	Analyze(ctx context.Context, up analysis.Upload) (*analysis.Report, error)
	Classify(text string) (*analysis.Result, string)
}

type VoiceHandler struct {
	svc      Analyzer
	maxBytes int64
}

func NewVoiceHandler(svc Analyzer, maxBytes int64) *VoiceHandler {
	return &VoiceHandler{svc: svc, maxBytes: maxBytes}
}

var errNoAudio = errors.New("multipart body has no audio file part")

// Analyze accepts one audio file in a multipart form and returns the verdict.
// The part is streamed straight into the analysis temp file.
func (h *VoiceHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected multipart/form-data body"})
		return
	}

	part, err := nextAudioPart(mr)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer part.Close()

	report, err := h.svc.Analyze(r.Context(), analysis.Upload{
		Filename:   part.FileName(),
		Body:       part,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeUploadError(w, maxErr)
			return
		}
		slog.Error("voice analysis failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "voice analysis failed"})
		return
	}

	w.Header().Set("X-Analysis-ID", report.ID.String())
	writeJSON(w, http.StatusOK, report.Result)
}

// Classify runs the distress classifier over text supplied directly.
func (h *VoiceHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text required"})
		return
	}

	result, _ := h.svc.Classify(*req.Text)
	writeJSON(w, http.StatusOK, result)
}

// nextAudioPart returns the "file" field, or the first file part when the
// client used a different field name.
func nextAudioPart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoAudio
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" || part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "audio upload too large"})
	case errors.Is(err, errNoAudio):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed multipart body: " + err.Error()})
	}
}
