// internal/httpserver/server.go
//
// HTTP server wiring for the Codebreaker backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/rooms".
//   - Multiplayer channel: GET /game (websocket) feeding the session coordinator.
//   - Solo endpoints (optional auth): POST /solo/new, POST /solo/guess.
//   - Daily code endpoints (optional auth): mounted under /daily.
//   - Match history endpoints: /stats/recent, /stats/players/{name}, /stats/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The handler timeout applies to REST routes only; /game is long-lived.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/config"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/daily"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/session"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/store"
)

// Server bundles router, game stores, and the session coordinator.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	results *store.Results
	daily   *dailyServer
	coord   *session.Coordinator
	hs      *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, coord *session.Coordinator) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		results: store.NewResults(db),
		coord:   coord,
	}
	s.daily = newDailyServer(s, daily.NewStore(db))
	s.hs = &http.Server{Handler: s.r, ReadHeaderTimeout: 10 * time.Second}

	// --- middleware ---
	s.r.Use(chimw.RequestID)  // add X-Request-ID
	s.r.Use(chimw.RealIP)     // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)  // recover from panics
	s.r.Use(jsonContentType)  // default JSON responses
	s.r.Use(s.corsFromConfig) // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"codebreaker-go","endpoints":["/health","GET /game (websocket)","POST /solo/new","POST /solo/guess","/daily/*","/stats/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/rooms", s.handleDebugRooms)

	// Multiplayer: optional auth tags players with their account id
	s.r.With(s.withOptionalAuth()).Get("/game", s.handleGame)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(s.withOptionalAuth())

		r.Post("/solo/new", s.handleSoloNew)
		r.Post("/solo/guess", s.handleSoloGuess)
		s.daily.mount(r)
		s.mountStats(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr. It returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	s.hs.Addr = addr
	if err := s.hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for REST handlers.
// Hijacked websocket connections are not tracked by net/http; they end when
// their sockets close.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hs.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for the configured client origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ debug --------------------------------------

func (s *Server) handleDebugRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	snap, err := s.coord.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot")
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}
