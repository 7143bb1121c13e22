package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/feanor77ist/Basketball-AI-BE/internal/auth"
	"github.com/feanor77ist/Basketball-AI-BE/internal/config"
	"github.com/feanor77ist/Basketball-AI-BE/internal/jobs"
	"github.com/feanor77ist/Basketball-AI-BE/internal/media"
	"github.com/feanor77ist/Basketball-AI-BE/internal/pipeline"
	"github.com/feanor77ist/Basketball-AI-BE/internal/repository"
)

type Server struct {
	config     *config.Config
	db         *sql.DB
	userRepo   *repository.UserRepository
	videoRepo  *repository.VideoRepository
	playerRepo *repository.PlayerRepository
	actionRepo *repository.ActionRepository
	hlRepo     *repository.HighlightRepository
	statsRepo  *repository.StatsRepository
	sm         *pipeline.StateMachine
	queue      *jobs.Queue
	prober     *media.FFprobe
	wsHub      *WSHub
	router     chi.Router
}

func NewServer(cfg *config.Config, database *sql.DB, queue *jobs.Queue, sm *pipeline.StateMachine, wsHub *WSHub) *Server {
	s := &Server{
		config:     cfg,
		db:         database,
		userRepo:   repository.NewUserRepository(database),
		videoRepo:  repository.NewVideoRepository(database),
		playerRepo: repository.NewPlayerRepository(database),
		actionRepo: repository.NewActionRepository(database),
		hlRepo:     repository.NewHighlightRepository(database),
		statsRepo:  repository.NewStatsRepository(database),
		sm:         sm,
		queue:      queue,
		prober:     media.NewFFprobe(cfg.FFprobePath),
		wsHub:      wsHub,
	}
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	authmw := auth.NewMiddleware(s.db)

	r.Get("/health", s.handleHealth)
	r.Mount("/api/auth", auth.NewHandler(s.db).Router())
	r.Get("/api/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Get("/api/me", s.handleMe)

		r.Route("/api/videos", func(r chi.Router) {
			r.Post("/", s.handleUploadVideo)
			r.Get("/", s.handleListVideos)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetVideo)
				r.Delete("/", s.handleDeleteVideo)
				r.Get("/status", s.handleVideoStatus)
				r.Post("/process", s.handleProcessVideo)
				r.Post("/retry", s.handleRetryVideo)
				r.Post("/infer", s.handleInferVideo)
				r.Post("/highlights", s.handleGenerateHighlights)

				r.Get("/players", s.handleListPlayers)
				r.Get("/actions", s.handleListActions)
				r.Get("/highlights", s.handleListHighlights)
				r.Get("/stats", s.handleListStats)
			})
		})

		r.Route("/api/players/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPlayer)
			r.Get("/actions", s.handlePlayerActions)
		})

		r.Route("/api/highlights/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetHighlight)
			r.Get("/download", s.handleDownloadHighlight)
			r.Post("/view", s.handleViewHighlight)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
