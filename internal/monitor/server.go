// Package monitor serves the live counts of a running pipeline and the
// history of stored runs over HTTP.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/db"
	"github.com/banshee-data/flow.report/internal/httputil"
	"github.com/banshee-data/flow.report/internal/monitoring"
	"github.com/banshee-data/flow.report/internal/pipeline"
	"github.com/banshee-data/flow.report/internal/report"
	"github.com/banshee-data/flow.report/internal/security"
)

var logf = monitoring.Component("monitor")

// Config configures the server. DB is optional; without it the run history
// and admin routes are not mounted.
type Config struct {
	Address string
	Board   *pipeline.Board
	DB      *db.DB
}

// Server is the monitor HTTP server.
type Server struct {
	address string
	board   *pipeline.Board
	db      *db.DB
	server  *http.Server
}

// RunDetail is the /api/runs/{id} response.
type RunDetail struct {
	Run    db.Run               `json:"run"`
	Counts []crossing.LineCount `json:"counts"`
	Events []db.EventRecord     `json:"events"`
}

// NewServer builds the routes. It fails only if the admin routes cannot be
// mounted.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Board == nil {
		return nil, errors.New("monitor: board is required")
	}
	s := &Server{
		address: cfg.Address,
		board:   cfg.Board,
		db:      cfg.DB,
	}
	mux, err := s.setupRoutes()
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens and serves until ctx is cancelled, then shuts down. A bind
// failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("monitor listen %s: %w", s.address, err)
	}
	logf("serving on http://%s", ln.Addr())

	errc := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logf("shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			logf("force close error: %v", err)
		}
	}
	logf("stopped")
	return nil
}

func (s *Server) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/{$}", s.handleChart)

	if s.db != nil {
		mux.HandleFunc("/api/runs", s.handleRuns)
		mux.HandleFunc("/api/runs/{id}", s.handleRun)
		mux.HandleFunc("/api/runs/{id}/csv", s.handleRunCSV)
		if err := s.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSONOK(w, s.board.Snapshot())
}

// handleChart renders the live counts as an echarts bar page.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	snap := s.board.Snapshot()
	title := "Live counts"
	if snap.Source != "" {
		title = fmt.Sprintf("Live counts: %s (%s)", snap.Source, snap.State)
	}

	var buf bytes.Buffer
	if err := report.RenderCountsPage(&buf, title, snap.Counts, snap.Elapsed); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Refresh", "2")
	w.Write(buf.Bytes())
}

// handleRuns lists stored runs, newest first.
// Query params:
//
//	limit (optional, default 20, max 500)
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 || v > 500 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = v
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	detail := RunDetail{Run: run}
	if detail.Counts, err = s.db.RunCounts(id); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if detail.Events, err = s.db.RunEvents(id); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if detail.Events == nil {
		detail.Events = []db.EventRecord{}
	}
	httputil.WriteJSONOK(w, detail)
}

// handleRunCSV downloads a stored run's counts in the same format as the
// end-of-run CSV.
func (s *Server) handleRunCSV(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	counts, err := s.db.RunCounts(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCounts(&buf, counts, run.Elapsed); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", security.ExportFilename(run.Source, run.RunID, "csv")))
	w.Write(buf.Bytes())
}
