package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/rsanzone/go-social/internal/config"
	"github.com/rsanzone/go-social/internal/database"
	"github.com/rsanzone/go-social/internal/server"
	"github.com/rsanzone/go-social/internal/stats"
)

type GoSocialApp struct {
	log            *log.Logger
	db             database.SocialRepository
	mux            *http.Server
	cs             *server.ChatServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
}

func NewGoSocialApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer,
	db database.SocialRepository, sts stats.StatsProvider, cfg *config.Config) *GoSocialApp {
	s := &GoSocialApp{
		log:            logger,
		db:             db,
		cs:             cs,
		stats:          sts,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/conversations", s.authMiddleware(s.getConversations))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/posts", s.authMiddleware(s.createPost))
	mux.Handle("GET /api/posts/feed", s.authMiddleware(s.getFeed))
	mux.Handle("GET /api/posts/{id}", s.authMiddleware(s.getPost))
	mux.Handle("DELETE /api/posts/{id}", s.authMiddleware(s.deletePost))
	mux.Handle("PUT /api/posts/{id}/like", s.authMiddleware(s.likePost))
	mux.Handle("GET /api/users/{id}/posts", s.authMiddleware(s.getUserPosts))
	mux.Handle("POST /api/users/{id}/follow", s.authMiddleware(s.followUser))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.getNotifications))
	mux.Handle("PUT /api/notifications/{id}/seen", s.authMiddleware(s.markNotificationSeen))
	mux.Handle("DELETE /api/notifications/{id}", s.authMiddleware(s.deleteNotification))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *GoSocialApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *GoSocialApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
