// Package webpanel serves the admin dashboard API: command and server reports
// pushed by the bot, Discord OAuth login, a live log stream and a casino API.
package webpanel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"arsenal-bot/internal/config"
	"arsenal-bot/internal/model"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "arsenal-webpanel"

// Endpoints the bot reports to.
const (
	PathCommandLog    = "/api/commands/log"
	PathServersUpdate = "/api/servers/update"
)

// TicketStats reads per-guild ticket counters.
type TicketStats interface {
	Stats(ctx context.Context, guildID string) (*model.TicketStats, error)
}

// HealthChecker reports whether a backing store answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the services the panel exposes. Nil services leave their routes
// unregistered.
type Deps struct {
	Hub     *LogHub
	Casino  Casino
	Wallets Wallets
	Tickets TicketStats
	// Database is pinged by the health endpoint when set.
	Database HealthChecker
}

// Server is the dashboard HTTP server.
type Server struct {
	addr           string
	auth           *Auth
	hub            *LogHub
	commands       *CommandLog
	servers        *ServerRegistry
	casino         Casino
	wallets        Wallets
	tickets        TicketStats
	database       HealthChecker
	originPatterns []string
	router         chi.Router
	now            func() time.Time
}

// New creates the server and wires its routes.
func New(cfg config.WebpanelConfig, isAdmin func(userID string) bool, deps Deps) *Server {
	hub := deps.Hub
	if hub == nil {
		hub = NewLogHub(DefaultLogBacklog)
	}
	s := &Server{
		addr:     cfg.Addr,
		auth:     NewAuth(cfg, isAdmin),
		hub:      hub,
		commands: NewCommandLog(DefaultCommandHistory),
		servers:  &ServerRegistry{},
		casino:   deps.Casino,
		wallets:  deps.Wallets,
		tickets:  deps.Tickets,
		database: deps.Database,
		now:      time.Now,
	}
	if host := hostOf(cfg.PublicURL); host != "" {
		s.originPatterns = []string{host}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/test", s.handleTest)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.auth.handleLogin)
		r.Get("/callback", s.auth.handleCallback)
		r.Get("/logout", s.auth.handleLogout)
	})

	// Bot-to-panel reports
	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAPIKey)
		r.Post(PathCommandLog, s.handleCommandReport)
		r.Post(PathServersUpdate, s.handleServersUpdate)
	})

	// Dashboard
	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireSession)
		r.Get("/api/me", s.auth.handleMe)
		r.Get("/api/commands", s.handleListCommands)
		r.Get("/api/servers", s.handleListServers)
		r.Get("/api/logs/stream", s.handleLogStream)

		if s.tickets != nil {
			r.Get("/api/tickets/{guildID}/stats", s.handleTicketStats)
		}
		if s.casino != nil || s.wallets != nil {
			r.Route("/api/casino", func(r chi.Router) {
				r.Use(middleware.Timeout(15 * time.Second))
				if s.wallets != nil {
					r.Get("/wallet", s.handleWallet)
				}
				if s.casino == nil {
					return
				}
				r.Post("/blackjack/start", s.handleBlackjackStart)
				r.Post("/blackjack/hit", s.handleBlackjackAction(s.casino.HitBlackjack))
				r.Post("/blackjack/stand", s.handleBlackjackAction(s.casino.StandBlackjack))
				r.Post("/poker/start", s.handlePokerStart)
				r.Post("/poker/draw", s.handlePokerDraw)
				r.Post("/roulette", s.handleRoulette)
			})
		}
	})

	return r
}

// Handler returns the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the log hub backing the stream endpoint.
func (s *Server) Hub() *LogHub {
	return s.hub
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Webpanel listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webpanel server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webpanel shutdown failed: %w", err)
	}
	log.Info().Msg("Webpanel stopped")
	return nil
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.database.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("Database health check failed")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status":  status,
		"service": ServiceName,
		"time":    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTicketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tickets.Stats(r.Context(), chi.URLParam(r, "guildID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOK(w, map[string]any{
		"open":        stats.Open,
		"closed":      stats.Closed,
		"total":       stats.Total,
		"by_category": stats.ByCategory,
	})
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// requestLogger logs every request through zerolog. Successful reads go to
// debug so dashboard polling does not flood the log stream.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		evt := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			evt = log.Error()
		case status >= http.StatusBadRequest:
			evt = log.Warn()
		case r.Method == http.MethodGet:
			evt = log.Debug()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
