package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/flow"
	"github.com/nhartman/ecosort/internal/handler"
	"github.com/nhartman/ecosort/internal/middleware"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
	ws "github.com/nhartman/ecosort/internal/websocket"
)

// Config carries the server-level settings pulled from the environment.
type Config struct {
	UploadDir string
	StaffCode string
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	manager      *flow.Manager
	authH        *handler.AuthHandler
	flowH        *handler.FlowHandler
	adminH       *handler.AdminHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	staffStore   *store.StaffStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, registry *classify.Registry, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	staffStore := store.NewStaffStore(db)
	sessionStore := store.NewSessionStore(db)
	rewardStore := store.NewRewardStore(db)
	stationStore := store.NewStationStore(db)

	authSvc := auth.NewService(userStore, staffStore, cfg.StaffCode)

	notify := func(event string, reward *model.Reward) {
		hub.Broadcast(ws.NewRewardMessage(event, reward))
	}

	controller := flow.NewController(
		authSvc,
		registry,
		rewardStore,
		stationStore,
		notify,
		logger.With("component", "flow"),
	)
	manager := flow.NewManager()

	return &Server{
		db:           db,
		hub:          hub,
		manager:      manager,
		authH:        handler.NewAuthHandler(controller, manager, sessionStore, logger.With("component", "auth")),
		flowH:        handler.NewFlowHandler(controller, manager, stationStore, cfg.UploadDir, logger.With("component", "flow_handler")),
		adminH:       handler.NewAdminHandler(controller, manager, logger.With("component", "admin")),
		sessionStore: sessionStore,
		userStore:    userStore,
		staffStore:   staffStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.staffStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Workflow routes
	mux.HandleFunc("GET /api/flow", s.flowH.State)
	mux.HandleFunc("POST /api/flow/category", s.flowH.SelectCategory)
	mux.HandleFunc("POST /api/flow/upload", s.flowH.Upload)
	mux.HandleFunc("POST /api/flow/confirm", s.flowH.ConfirmDelivery)
	mux.HandleFunc("GET /api/stations", s.flowH.ListStations)
	mux.HandleFunc("GET /api/rewards", s.flowH.ListRewards)

	// Staff review routes
	mux.Handle("GET /api/admin/rewards/pending", middleware.RequireStaff(http.HandlerFunc(s.adminH.ListPending)))
	mux.Handle("POST /api/admin/rewards/{id}/approve", middleware.RequireStaff(http.HandlerFunc(s.adminH.Approve)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "ws_handler")))
}
