package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/graphrat/internal/store"
)

// Server serves the heatmap of a recorded run and its snapshots as JSON.
type Server struct {
	store      store.RunStore
	runID      int64
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a viewer for run runID in rs.
func NewServer(rs store.RunStore, runID int64) *Server {
	return &Server{
		store: rs,
		runID: runID,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Let the OS pick a free port.
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
}

// handleIndex serves the heatmap of ?step=N, or of the last recorded step.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	run, err := s.store.GetRun(r.Context(), s.runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	snaps, err := s.store.Snapshots(r.Context(), s.runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if len(snaps) == 0 {
		http.Error(w, fmt.Sprintf("run %d has no recorded snapshots", s.runID), http.StatusNotFound)
		return
	}

	idx := len(snaps) - 1
	if v := r.URL.Query().Get("step"); v != "" {
		step, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid 'step' query parameter", http.StatusBadRequest)
			return
		}
		idx = -1
		for i, snap := range snaps {
			if snap.Step == step {
				idx = i
				break
			}
		}
		if idx < 0 {
			http.Error(w, fmt.Sprintf("step %d was not recorded", step), http.StatusNotFound)
			return
		}
	}

	steps := make([]int, len(snaps))
	for i, snap := range snaps {
		steps[i] = snap.Step
	}
	view := store.SimSnapshots(run, snaps[idx:idx+1])[0]
	title := fmt.Sprintf("Run %d: %s", run.ID, run.GraphPath)
	html, err := RenderHTML(title, view, steps)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// handleRun returns the run record.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), s.runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// handleSnapshots returns every recorded snapshot of the run.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.Snapshots(r.Context(), s.runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if snaps == nil {
		snaps = []store.Snapshot{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}
