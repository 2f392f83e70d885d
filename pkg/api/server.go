// Package api exposes the HTTP surface: chat, files, conversations,
// auth and admin user management.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/accounts"
	"github.com/kasugai-cloud/aichat/pkg/chat"
	"github.com/kasugai-cloud/aichat/pkg/files"
	"github.com/kasugai-cloud/aichat/pkg/httputil"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
	"github.com/kasugai-cloud/aichat/pkg/observability"
)

// Server represents the API server
type Server struct {
	router   *mux.Router
	chat     *chat.Service
	files    *files.Service
	accounts *accounts.Service
	auth     *middleware.AuthMiddleware
	limiter  *middleware.RateLimiter
	metrics  *observability.Metrics
	log      *logrus.Logger
}

// NewServer creates the API server and wires its routes. The rate
// limiter and metrics may be nil.
func NewServer(chatSvc *chat.Service, fileSvc *files.Service, accountSvc *accounts.Service, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter, metrics *observability.Metrics, log *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		chat:     chatSvc,
		files:    fileSvc,
		accounts: accountSvc,
		auth:     auth,
		limiter:  limiter,
		metrics:  metrics,
		log:      log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Public routes
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")
	s.router.HandleFunc("/models", s.listModels).Methods("GET")
	s.router.HandleFunc("/auth/signup", s.signUp).Methods("POST")
	s.router.HandleFunc("/auth/confirm", s.confirm).Methods("POST")
	s.router.HandleFunc("/auth/signin", s.signIn).Methods("POST")

	// Authenticated routes
	authed := s.router.NewRoute().Subrouter()
	authed.Use(mux.MiddlewareFunc(s.auth.Handler))

	chatHandler := http.Handler(http.HandlerFunc(s.handleChat))
	if s.limiter != nil {
		chatHandler = s.limiter.Handler(chatHandler)
	}
	authed.Handle("/chat", chatHandler).Methods("POST")

	authed.HandleFunc("/files/upload", s.uploadFile).Methods("POST")
	authed.HandleFunc("/files", s.listFiles).Methods("GET")
	authed.HandleFunc("/files/{id}", s.getFile).Methods("GET")
	authed.HandleFunc("/files/{id}", s.updateFileVisibility).Methods("PUT")
	authed.HandleFunc("/files/{id}", s.deleteFile).Methods("DELETE")
	authed.HandleFunc("/files/{id}/query", s.queryFile).Methods("POST")

	authed.HandleFunc("/conversations", s.listConversations).Methods("GET")
	authed.HandleFunc("/conversations/{id}", s.getConversation).Methods("GET")
	authed.HandleFunc("/conversations/{id}", s.deleteConversation).Methods("DELETE")

	authed.HandleFunc("/auth/profile", s.getProfile).Methods("GET")
	authed.HandleFunc("/auth/profile", s.updateProfile).Methods("PUT")

	authed.HandleFunc("/admin/users", s.listUsers).Methods("GET")
	authed.HandleFunc("/admin/users", s.createUser).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
