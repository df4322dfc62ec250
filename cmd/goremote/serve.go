package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caffeineduck/goremote/engine"
	"github.com/caffeineduck/goremote/logging"
	"github.com/caffeineduck/goremote/transport"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an agent hosting the server and browser surfaces",
	Long: `Run an agent that evaluates payloads on its server and browser surfaces.

With --stdio the agent speaks the line protocol on stdin and stdout, which is
what --agent expects. Otherwise it serves HTTP.

Endpoints:
  POST   /submit                 Run a payload on the shared surfaces
  POST   /sessions               Create isolated surfaces, returns {"session_id":"..."}
  POST   /sessions/{id}/submit   Run a payload on a session's surfaces
  DELETE /sessions/{id}          Close session
  GET    /health                 Health check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("stdio", false, "Serve the line protocol on stdin/stdout")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Duration("session-ttl", 15*time.Minute, "Close sessions idle for this long")
	rootCmd.AddCommand(serveCmd)
}

type sessionManager struct {
	sessions map[string]*serverSession
	mu       sync.RWMutex
	ttl      time.Duration
	opts     []engine.Option
	stop     chan struct{}
	stopOnce sync.Once
}

type serverSession struct {
	host     *engine.Host
	lastUsed time.Time
}

func newSessionManager(ttl time.Duration, opts ...engine.Option) *sessionManager {
	sm := &sessionManager{
		sessions: make(map[string]*serverSession),
		ttl:      ttl,
		opts:     opts,
		stop:     make(chan struct{}),
	}
	go sm.cleanup()
	return sm
}

func (sm *sessionManager) create() (string, error) {
	host, err := engine.NewHost(sm.opts...)
	if err != nil {
		return "", err
	}

	id := generateSessionID()
	sm.mu.Lock()
	sm.sessions[id] = &serverSession{
		host:     host,
		lastUsed: time.Now(),
	}
	sm.mu.Unlock()
	return id, nil
}

func (sm *sessionManager) get(id string) (*engine.Host, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ss, ok := sm.sessions[id]
	if !ok {
		return nil, false
	}
	ss.lastUsed = time.Now()
	return ss.host, true
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	ss, ok := sm.sessions[id]
	if ok {
		ss.host.Close()
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	return ok
}

func (sm *sessionManager) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sm.expire(time.Now())
		case <-sm.stop:
			return
		}
	}
}

func (sm *sessionManager) expire(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, ss := range sm.sessions {
		if now.Sub(ss.lastUsed) > sm.ttl {
			ss.host.Close()
			delete(sm.sessions, id)
		}
	}
}

func (sm *sessionManager) closeAll() {
	sm.stopOnce.Do(func() { close(sm.stop) })
	sm.mu.Lock()
	for id, ss := range sm.sessions {
		ss.host.Close()
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func newServeMux(shared *engine.Host, sessions *sessionManager, logger logging.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle(transport.DefaultSubmitPath, transport.SubmitHandler(shared, transport.WithLogger(logger)))

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sessionID, err := sessions.create()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to create session: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(createSessionResponse{SessionID: sessionID})
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/sessions/")
		parts := strings.SplitN(path, "/", 2)
		sessionID := parts[0]

		if sessionID == "" {
			http.Error(w, "session_id required", http.StatusBadRequest)
			return
		}

		if r.Method == http.MethodDelete && len(parts) == 1 {
			if sessions.close(sessionID) {
				w.WriteHeader(http.StatusNoContent)
			} else {
				http.Error(w, "session not found", http.StatusNotFound)
			}
			return
		}

		if len(parts) == 2 && parts[1] == "submit" {
			host, ok := sessions.get(sessionID)
			if !ok {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			transport.SubmitHandler(host, transport.WithLogger(logger))(w, r)
			return
		}

		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func runServe(cmd *cobra.Command, args []string) error {
	stdio, _ := cmd.Flags().GetBool("stdio")
	port, _ := cmd.Flags().GetInt("port")
	ttl, _ := cmd.Flags().GetDuration("session-ttl")
	logger := newLogger(cmd)

	opts := hostOptions(cmd, logger)
	shared, err := engine.NewHost(opts...)
	if err != nil {
		return err
	}
	defer shared.Close()

	if stdio {
		// stdout carries the protocol; diagnostics go to stderr only
		return transport.Serve(context.Background(), shared, os.Stdin, os.Stdout, transport.WithLogger(logger))
	}

	sessions := newSessionManager(ttl, opts...)
	defer sessions.closeAll()

	addr := fmt.Sprintf(":%d", port)
	fmt.Fprintf(os.Stderr, "goremote agent listening on %s\n", addr)
	return http.ListenAndServe(addr, newServeMux(shared, sessions, logger))
}
