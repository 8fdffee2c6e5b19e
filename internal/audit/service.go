package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/voiceguard/internal/models"
)

// Service is the Postgres-backed analysis log.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) RecordAnalysis(ctx context.Context, a models.VoiceAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO voice_analyses (id, filename, size_bytes, audio_sha256, english_text, unsafe, trigger,
		                             matched_phrase, backend, cached, latency_ms, remote_addr)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.Filename, a.SizeBytes, a.AudioSHA256, a.EnglishText, a.Unsafe, a.Trigger,
		a.MatchedPhrase, a.Backend, a.Cached, a.LatencyMs, a.RemoteAddr,
	)
	if err != nil {
		return fmt.Errorf("insert voice analysis: %w", err)
	}

	return nil
}

func (s *Service) RecordAlertDelivery(ctx context.Context, d models.AlertDelivery) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO alert_deliveries (analysis_id, url, response_status, error, delivered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.AnalysisID, d.URL, d.ResponseStatus, d.Error, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert delivery: %w", err)
	}
	return nil
}

type AnalysisQuery struct {
	UnsafeOnly bool
	Since      *time.Time
	Limit      int
	Offset     int
}

func (q *AnalysisQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// buildListQuery renders the list statement and its arguments.
func buildListQuery(q AnalysisQuery) (string, []interface{}) {
	q.normalize()

	query := `SELECT id, filename, size_bytes, audio_sha256, english_text, unsafe, trigger,
			         matched_phrase, backend, cached, latency_ms, remote_addr, created_at
			  FROM voice_analyses WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if q.UnsafeOnly {
		query += " AND unsafe = true"
	}
	if q.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.Since)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)
	return query, args
}

func (s *Service) ListAnalyses(ctx context.Context, q AnalysisQuery) ([]models.VoiceAnalysis, error) {
	query, args := buildListQuery(q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query voice analyses: %w", err)
	}
	defer rows.Close()

	var out []models.VoiceAnalysis
	for rows.Next() {
		var a models.VoiceAnalysis
		if err := rows.Scan(&a.ID, &a.Filename, &a.SizeBytes, &a.AudioSHA256, &a.EnglishText, &a.Unsafe, &a.Trigger,
			&a.MatchedPhrase, &a.Backend, &a.Cached, &a.LatencyMs, &a.RemoteAddr, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voice analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice analyses: %w", err)
	}
	return out, nil
}
