package models

import (
	"time"

	"github.com/google/uuid"
)

// VoiceAnalysis is one persisted run of the voice distress pipeline.
type VoiceAnalysis struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Filename      string    `json:"filename" db:"filename"`
	SizeBytes     int64     `json:"size_bytes" db:"size_bytes"`
	AudioSHA256   string    `json:"audio_sha256" db:"audio_sha256"`
	EnglishText   string    `json:"english_text" db:"english_text"`
	Unsafe        bool      `json:"unsafe" db:"unsafe"`
	Trigger       string    `json:"trigger" db:"trigger"`
	MatchedPhrase string    `json:"matched_phrase,omitempty" db:"matched_phrase"`
	Backend       string    `json:"backend" db:"backend"`
	Cached        bool      `json:"cached" db:"cached"`
	LatencyMs     int64     `json:"latency_ms" db:"latency_ms"`
	RemoteAddr    string    `json:"remote_addr,omitempty" db:"remote_addr"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AlertDelivery records one attempt to deliver a distress alert webhook.
type AlertDelivery struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	AnalysisID     uuid.UUID  `json:"analysis_id" db:"analysis_id"`
	URL            string     `json:"url" db:"url"`
	ResponseStatus int        `json:"response_status" db:"response_status"`
	Error          string     `json:"error,omitempty" db:"error"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
