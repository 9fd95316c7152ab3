// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects the store, the push
// channel, services, handlers and routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  store (sqlite or mongo)           → every service
//	  metrics.Collector                 → middleware, hub, publisher, notifications
//	  realtime.Hub + Relay → Publisher  → every service that broadcasts
//	  services                          → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/heapoverflow/internal/auth"
	"github.com/sakif/heapoverflow/internal/config"
	"github.com/sakif/heapoverflow/internal/handler"
	"github.com/sakif/heapoverflow/internal/metrics"
	"github.com/sakif/heapoverflow/internal/middleware"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
	mongoRepo "github.com/sakif/heapoverflow/internal/repository/mongo"
	sqliteRepo "github.com/sakif/heapoverflow/internal/repository/sqlite"
	"github.com/sakif/heapoverflow/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection, the websocket hub and the relay
// connection. Start releases all three after the HTTP listener has drained,
// in reverse order of creation.
type Server struct {
	router    *chi.Mux
	config    *config.Config
	logger    *slog.Logger
	store     repository.Store
	metrics   *metrics.Collector
	hub       *realtime.Hub
	publisher *realtime.Publisher
}

// New creates a Server from cfg.
//
// WIRING ORDER:
//  1. Open the store (sqlite.New or mongo.New, per storage.driver)
//  2. Connect the relay, if relay.driver is not "none"
//  3. Build the hub and the publisher the services emit through
//  4. Build services and handlers, then mount routes
//
// Any failure closes what was already opened.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	relay, err := openRelay(ctx, cfg.Relay, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connecting relay: %w", err)
	}

	m := metrics.NewCollector()
	hub := realtime.NewHub(realtime.HubConfig{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.Realtime.PingInterval,
	}, logger, m)

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		store:     store,
		metrics:   m,
		hub:       hub,
		publisher: realtime.NewPublisher(hub, relay, logger, m),
	}

	if err := s.setupRoutes(); err != nil {
		s.publisher.Close()
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the entity store. File-backed sqlite databases get their
// parent directory created first.
func openStore(ctx context.Context, cfg config.StorageConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.StorageMongo:
		return mongoRepo.New(ctx, cfg.MongoURL)
	default:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.SQLitePath)
	}
}

// openRelay returns a nil Relay for single-instance deployments.
func openRelay(ctx context.Context, cfg config.RelayConfig, logger *slog.Logger) (realtime.Relay, error) {
	switch cfg.Driver {
	case config.RelayNATS:
		return realtime.NewNATSRelay(cfg, logger)
	case config.RelayRedis:
		return realtime.NewRedisRelay(ctx, cfg, logger)
	default:
		return nil, nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// Paths keep the verbs the web client already calls (/answer/addAnswer,
// /friendship/getFriends, ...) instead of REST nouns.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, RealIP: request metadata the logger reads
// 2. Recoverer: a panic becomes a 500 instead of a dead process
// 3. Logger, Metrics: one log line and one histogram sample per request
// 4. CORS: the client runs on a different origin and sends cookies
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Services ===
	// Every broadcasting service gets the same Publisher. Notifications are
	// shared so answers, comments and friend requests fan out the same way.
	events := s.publisher
	notifications := service.NewNotificationService(s.store, s.store, events, s.logger, s.metrics)
	answers := service.NewAnswerService(s.store, notifications, events, s.logger)
	comments := service.NewCommentService(s.store, notifications, events, s.logger)
	questions := service.NewQuestionService(s.store, events, s.logger)
	friendships := service.NewFriendshipService(s.store, notifications, events, s.logger)
	chats := service.NewChatService(s.store, s.store, events, s.logger)
	messages := service.NewMessageService(s.store, s.store, events, s.logger)
	users := service.NewUserService(s.store, s.logger)

	// === Handlers ===
	answerHandler := handler.NewAnswerHandler(answers, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	questionHandler := handler.NewQuestionHandler(questions, s.logger)
	friendshipHandler := handler.NewFriendshipHandler(friendships, s.logger)
	chatHandler := handler.NewChatHandler(chats, messages, s.logger)
	notificationHandler := handler.NewNotificationHandler(notifications, s.logger)
	userHandler := handler.NewUserHandler(users, s.logger)

	s.router.Route("/answer", func(r chi.Router) {
		r.Post("/addAnswer", answerHandler.HandleAddAnswer)
		r.Get("/getAnswerByAuthor", answerHandler.HandleGetAnswersByAuthor)
	})

	s.router.Route("/comment", func(r chi.Router) {
		r.Post("/addComment", commentHandler.HandleAddComment)
		r.Get("/getCommentByAuthor", commentHandler.HandleGetCommentsByAuthor)
	})

	s.router.Route("/question", func(r chi.Router) {
		r.Post("/addQuestion", questionHandler.HandleAddQuestion)
		r.Get("/getQuestion", questionHandler.HandleGetQuestion)
		r.Get("/getQuestions", questionHandler.HandleGetQuestions)
		r.Post("/upvote", questionHandler.HandleUpvote)
		r.Post("/downvote", questionHandler.HandleDownvote)
	})

	s.router.Route("/friendship", func(r chi.Router) {
		r.Post("/sendFriendRequest", friendshipHandler.HandleSendRequest)
		r.Post("/acceptFriendRequest", friendshipHandler.HandleAcceptRequest)
		r.Post("/deleteFriend", friendshipHandler.HandleDeleteFriend)
		r.Get("/getFriends", friendshipHandler.HandleGetFriends)
		r.Get("/getRequests", friendshipHandler.HandleGetRequests)
	})

	s.router.Route("/chat", func(r chi.Router) {
		r.Post("/createChat", chatHandler.HandleCreateChat)
		r.Get("/getUserChats", chatHandler.HandleGetUserChats)
		r.Get("/getChat", chatHandler.HandleGetChat)
	})

	s.router.Route("/message", func(r chi.Router) {
		r.Post("/sendMessage", chatHandler.HandleSendMessage)
		r.Get("/getMessages", chatHandler.HandleGetMessages)
	})

	s.router.Route("/notification", func(r chi.Router) {
		r.Get("/getNotifications", notificationHandler.HandleGetNotifications)
		r.Post("/markAsRead", notificationHandler.HandleMarkAsRead)
		r.Get("/getUnreadCount", notificationHandler.HandleGetUnreadCount)
	})

	s.router.Route("/user", func(r chi.Router) {
		r.Post("/addUser", userHandler.HandleAddUser)
		r.Get("/getUser", userHandler.HandleGetUser)
		r.Get("/getAllUsers", userHandler.HandleGetAllUsers)
		r.Put("/updateUser/{username}", userHandler.HandleUpdateUser)
	})

	s.router.Handle("/metrics", s.metrics.Handler())

	// === Auth Routes ===
	// Only registered if a JWT secret is configured. Without one the server
	// still runs; the push channel simply treats every connection as
	// anonymous.
	//
	// NIL INTERFACE TRAP:
	// A nil *auth.TokenService stored in a realtime.TokenValidator is a
	// non-nil interface, so the validator is only assigned when tokens
	// were actually created.
	var validator realtime.TokenValidator
	if s.config.Auth.JWTSecret != "" {
		tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		validator = tokens

		github := auth.NewGitHubProvider(
			s.config.Auth.GitHubClientID,
			s.config.Auth.GitHubClientSecret,
			s.callbackURL(),
		)
		sessions := service.NewAuthService(s.store, tokens, s.logger)
		authHandler := handler.NewAuthHandler(github, sessions, s.config.Auth.ClientURL, s.logger)

		s.router.Route("/auth", func(r chi.Router) {
			r.Get("/github", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		})
	} else {
		s.logger.Warn("JWT secret not set, authentication routes are disabled")
	}

	// === Push Channel ===
	s.router.Handle("/ws", realtime.NewHandler(s.hub, validator, s.config.HTTP.AllowedOrigins, s.logger))

	return nil
}

func (s *Server) callbackURL() string {
	if s.config.Auth.GitHubCallbackURL != "" {
		return s.config.Auth.GitHubCallbackURL
	}
	return fmt.Sprintf("http://localhost:%s/auth/github/callback", s.config.HTTP.Port)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the hub and the HTTP listener, then shuts both down on SIGINT
// or SIGTERM.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests (http.shutdown_timeout)
// 3. Stop the hub, which closes every websocket
// 4. Close the relay, then the store
//
// Steps 3 and 4 run in deferred order even if step 2 fails.
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()
	defer func() {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("closing relay", slog.Any("error", err))
		}
	}()

	go s.hub.Run()
	defer s.hub.Stop()

	if err := s.publisher.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         s.config.HTTP.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.config.Env),
			slog.String("storage", s.config.Storage.Driver),
			slog.String("relay", s.config.Relay.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		return s.shutdown(srv)

	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.shutdown(srv)
	}

	return nil
}

func (s *Server) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
