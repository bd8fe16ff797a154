// Package bridge exposes a local worker process to one remote widget at a
// time over a websocket. Worker messages go out as text frames, one message
// per frame; frames from the widget are written to the worker unchanged.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/calcwidget/calcwidget/internal/protocol"
	"github.com/calcwidget/calcwidget/internal/worker"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 10 * time.Second

var errWorkerExited = errors.New("bridge: worker exited")

type Server struct {
	worker         worker.Transport
	lines          chan string
	done           chan struct{}
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
	log            *slog.Logger

	mu      sync.Mutex
	client  string  // id of the attached widget, "" when free
	held    *string // message taken from the worker but never delivered
	exitErr error
}

func NewServer(w worker.Transport, allowedOrigins []string, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		worker:         w,
		lines:          make(chan string),
		done:           make(chan struct{}),
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
		log:            logger,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	go s.pump()
	return s
}

// Done is closed once the worker has exited.
func (s *Server) Done() <-chan struct{} { return s.done }

// ExitErr is the worker's exit error, valid after Done is closed.
func (s *Server) ExitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}

// pump moves worker messages onto s.lines. The worker sends nothing more until
// its last message is acknowledged, so blocking here while no widget is
// attached is harmless. Messages too long to read are acknowledged here and
// never reach the widget.
func (s *Server) pump() {
	for {
		line, err := s.worker.Next()
		if errors.Is(err, protocol.ErrMessageTooLong) {
			s.log.Warn("dropping unreadable worker message", "error", err)
			if _, err := s.worker.Write(protocol.Ack); err != nil {
				s.log.Warn("acknowledging dropped message", "error", err)
			}
			continue
		}
		if err != nil {
			s.mu.Lock()
			s.exitErr = err
			s.mu.Unlock()
			s.log.Info("worker exited", "error", err)
			close(s.lines)
			close(s.done)
			return
		}
		s.lines <- line
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", securityHeaders(http.HandlerFunc(s.handleWS)))
	mux.Handle("/healthz", securityHeaders(http.HandlerFunc(s.handleHealth)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(w, "worker exited", http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	select {
	case <-s.done:
		http.Error(w, "worker exited", http.StatusGone)
		return
	default:
	}

	id := uuid.NewString()
	if !s.attach(id) {
		http.Error(w, "another widget is attached", http.StatusConflict)
		return
	}
	defer s.detach(id)

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade error", "error", err)
		return
	}

	s.log.Info("widget attached", "client", id, "remote", r.RemoteAddr)
	err = s.serve(conn)
	s.log.Info("widget detached", "client", id, "reason", err)
}

func (s *Server) attach(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != "" {
		return false
	}
	s.client = id
	return true
}

func (s *Server) detach(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == id {
		s.client = ""
	}
}

func (s *Server) serve(conn *websocket.Conn) error {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			if kind != websocket.TextMessage {
				continue
			}
			if _, err := s.worker.Write(data); err != nil {
				return fmt.Errorf("write to worker: %w", err)
			}
		}
	})

	g.Go(func() error {
		if line, ok := s.takeHeld(); ok {
			if err := s.send(conn, line); err != nil {
				return err
			}
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-s.lines:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "worker exited"),
						time.Now().Add(time.Second))
					return errWorkerExited
				}
				if err := s.send(conn, line); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

// send delivers one worker message. A message that cannot be delivered is
// kept for the next widget, since the worker is now waiting for its ack.
func (s *Server) send(conn *websocket.Conn, line string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		s.mu.Lock()
		s.held = &line
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Server) takeHeld() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		return "", false
	}
	line := *s.held
	s.held = nil
	return line, true
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Calcwidget-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func ListenAndServe(ctx context.Context, host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("bridge listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
