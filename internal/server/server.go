package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/state"
)

const (
	StatePath  = "/api/state"
	StreamPath = "/api/state/ws"

	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Refresher is the part of the poll loop the handlers may poke.
type Refresher interface {
	Trigger()
}

type Config struct {
	Addr string
	// RefreshOnRead asks the poll loop for a tick whenever state is read.
	RefreshOnRead bool
}

type Server struct {
	cfg       Config
	store     *state.Store
	refresher Refresher
	router    *mux.Router
	upgrader  websocket.Upgrader
	now       func() time.Time
}

func New(cfg Config, store *state.Store, refresher Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		refresher: refresher,
		router:    mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(corsMiddleware)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(StatePath, s.handleState).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc(StreamPath, s.handleStream).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logger.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RefreshOnRead && s.refresher != nil {
		s.refresher.Trigger()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.store.Snapshot().ToExport(s.now())); err != nil {
		logger.Warn("failed to write state", logger.ErrorField(err))
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	// the reader only exists to notice the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	send := func() error {
		_ = conn.SetWriteDeadline(s.now().Add(writeTimeout))
		return conn.WriteJSON(s.store.Snapshot().ToExport(s.now()))
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-updates:
			if err := send(); err != nil {
				logger.Debug("websocket write failed", logger.ErrorField(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, s.now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
