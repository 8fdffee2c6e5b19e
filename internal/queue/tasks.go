package queue

import "time"

const (
	TypeDistressAlert = "distress:alert"
)

const QueueCritical = "critical"

type DistressAlertPayload struct {
	AnalysisID    string    `json:"analysis_id"`
	EnglishText   string    `json:"english_text"`
	MatchedPhrase string    `json:"matched_phrase"`
	Trigger       string    `json:"trigger"`
	Filename      string    `json:"filename,omitempty"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
	DetectedAt    time.Time `json:"detected_at"`
}
