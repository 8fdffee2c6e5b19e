package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voiceguard/internal/api/handlers"
	"github.com/nikhilbhutani/voiceguard/internal/api/middleware"
	"github.com/nikhilbhutani/voiceguard/internal/config"
)

// Router wires HTTP routes. db and redis may be nil when not configured.
type Router struct {
	mux      *chi.Mux
	db       *pgxpool.Pool
	redis    *redis.Client
	cfg      *config.Config
	analyzer handlers.Analyzer
	lister   handlers.AnalysisLister
	limiters []*middleware.RateLimiter
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, analyzer handlers.Analyzer, lister handlers.AnalysisLister) *Router {
	return &Router{
		mux:      chi.NewRouter(),
		db:       db,
		redis:    rdb,
		cfg:      cfg,
		analyzer: analyzer,
		lister:   lister,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.TrustedRealIP(rt.cfg.Server.TrustedProxies))
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := rt.limiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.healthChecks())
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	voiceH := handlers.NewVoiceHandler(rt.analyzer, rt.cfg.Server.MaxUploadBytes)
	analyzeRL := rt.limiter(2, 10)
	r.With(analyzeRL.Limit).Post("/analyze-voice", voiceH.Analyze)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/classify", voiceH.Classify)

		adminH := handlers.NewAdminHandler(rt.lister)
		r.Get("/analyses", adminH.Analyses)
	})

	return r
}

// Close stops background goroutines owned by the router.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}

func (rt *Router) limiter(rps float64, burst int) *middleware.RateLimiter {
	l := middleware.NewRateLimiter(rps, burst)
	rt.limiters = append(rt.limiters, l)
	return l
}

func (rt *Router) healthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{}
	if rt.db != nil {
		checks["database"] = rt.db.Ping
	}
	if rt.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rt.redis.Ping(ctx).Err()
		}
	}
	return checks
}
