// Package server exposes the conversation over WebSocket, one session per
// connection.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/chat"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/config"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/metrics"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/session"
)

// Deps holds the shared services behind the server. The searcher (and the
// catalog underneath it) is the only state shared across sessions; every
// connection gets its own agents and gate.
type Deps struct {
	Model     chat.ChatModel
	Completer chat.Completer
	Searcher  session.Searcher
	Config    config.Config
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Server serves the WebSocket chat plus health and stats endpoints.
type Server struct {
	deps     Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server with its routes registered.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin enforcement is the proxy's job
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)

	return s
}

// Handler returns the server's HTTP handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.logger)(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// inbound is one user message from the surface.
type inbound struct {
	Content string `json:"content"`
}

// handleWS upgrades the connection and runs one session for its lifetime.
// Outbound frames are session events plus "error" frames for retryable
// per-turn failures.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := session.New(
		s.deps.Model,
		s.newGate(),
		chat.NewSummarizer(s.deps.Completer),
		s.deps.Searcher,
		session.Options{
			TopN:             s.deps.Config.TopN,
			MaxCaptionLength: s.deps.Config.MaxCaptionLength,
			Metrics:          s.deps.Metrics,
			Logger:           s.logger,
		},
	)
	logger := s.logger.With("session", sess.ID())
	logger.Info("session started", "remote", r.RemoteAddr)

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", "error", err)
			}
			logger.Info("session ended", "phase", sess.Phase())
			return
		}

		events, err := sess.HandleMessage(r.Context(), msg.Content)
		for _, ev := range events {
			if writeErr := conn.WriteJSON(ev); writeErr != nil {
				logger.Warn("websocket write failed", "error", writeErr)
				return
			}
		}
		if err != nil {
			logger.Error("turn failed", "phase", sess.Phase(), "error", err)
			errEv := session.Event{Role: "error", Content: "Something went wrong, please try again."}
			if writeErr := conn.WriteJSON(errEv); writeErr != nil {
				return
			}
		}
	}
}

// newGate builds the per-session completion gate from configuration.
func (s *Server) newGate() chat.Gate {
	if s.deps.Config.GateMode == "judgment" {
		return chat.NewJudgmentGate(s.deps.Completer)
	}
	return chat.NewKeywordGate(s.deps.Config.StopPhrases...)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.logger.Debug("health write failed", "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snapshot := metrics.Snapshot{}
	if s.deps.Metrics != nil {
		snapshot = s.deps.Metrics.Snapshot()
	}
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Debug("stats write failed", "error", err)
	}
}
