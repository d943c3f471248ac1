// Package server exposes the conversation engine over HTTP so the dashboard
// front-end can drive it. The server is a thin adapter: every route maps to
// exactly one session operation, and all conversation semantics stay in the
// conversation package.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"luna/internal/conversation"
	"luna/internal/domain"
	"luna/internal/logging"
	"luna/internal/playbook"
	"luna/internal/quickactions"
	"luna/internal/resolver"
)

// Restorer loads a persisted transcript for a session id. store.Recorder
// implements it; nil disables reopening.
type Restorer interface {
	Restore(ctx context.Context, sessionID string) ([]conversation.Message, error)
}

// Options carries the shared dependencies every session is built with.
type Options struct {
	Role      string
	Resolver  resolver.Resolver
	Domain    domain.API
	Playbooks *playbook.Library
	Observers []conversation.Observer
	Restorer  Restorer
}

// Manager creates sessions on first use and hands back existing ones after.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*conversation.Session
}

// NewManager builds a session manager.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, sessions: make(map[string]*conversation.Session)}
}

// GetOrCreate returns the session for id, creating it if needed. An empty id
// creates a session with a fresh id; a known id that is not live yet gets its
// persisted transcript restored, so a dashboard reconnect resumes where it
// left off.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*conversation.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s, nil
		}
	}
	s, err := conversation.NewSession(conversation.Options{
		ID:        id,
		Role:      m.opts.Role,
		Resolver:  m.opts.Resolver,
		Domain:    m.opts.Domain,
		Playbooks: m.opts.Playbooks,
		Observers: m.opts.Observers,
	})
	if err != nil {
		return nil, err
	}
	if id != "" && m.opts.Restorer != nil {
		msgs, err := m.opts.Restorer.Restore(ctx, id)
		if err != nil {
			logging.Get(logging.CategoryServer).Warnw("history restore failed",
				"session", id, "error", err)
		} else {
			s.Restore(msgs)
		}
	}
	m.sessions[s.ID()] = s
	return s, nil
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*conversation.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Server is the HTTP front door.
type Server struct {
	echo *echo.Echo
	mgr  *Manager
	role string
}

// New builds the server and wires its routes.
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, mgr: NewManager(opts), role: opts.Role}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	api := s.echo.Group("/api")
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:sid/messages", s.getMessages)
	api.POST("/sessions/:sid/messages", s.sendMessage)
	api.POST("/sessions/:sid/messages/:mid/retry", s.retryMessage)
	api.POST("/sessions/:sid/actions/:aid/confirm", s.confirmAction)
	api.POST("/sessions/:sid/actions/:aid/cancel", s.cancelAction)
	api.POST("/sessions/:sid/playbook/cancel", s.cancelPlaybook)
	api.GET("/sessions/:sid/quick-actions", s.getQuickActions)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	logging.Get(logging.CategoryServer).Infow("listening", "addr", addr)
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// QuickActions returns the chips for the server's configured role.
func (s *Server) QuickActions() []quickactions.QuickAction {
	return quickactions.ForRole(quickactions.Role(s.role))
}
