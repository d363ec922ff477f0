// Package web provides an HTTP status server for the access-logger daemon.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/access-logger/internal/accesslog"
	"github.com/sweeney/access-logger/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	logPath    string
}

// New creates a Server that reads state from the given tracker. logPath is
// the live access log; when empty, /periods.json is not served.
func New(addr string, tracker *status.Tracker, logPath string) *Server {
	s := &Server{tracker: tracker, logPath: logPath}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if logPath != "" {
		mux.HandleFunc("/periods.json", s.handlePeriods)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// PeriodsJSON is the response body of /periods.json.
type PeriodsJSON struct {
	Periods   []PeriodJSON `json:"periods"`
	Anomalies []string     `json:"anomalies"`
}

// PeriodJSON summarises one completed access.
type PeriodJSON struct {
	Start           string   `json:"start,omitempty"`
	End             string   `json:"end,omitempty"`
	Seconds         int      `json:"seconds"`
	StoredSeconds   int      `json:"stored_seconds"`
	Readings        int      `json:"readings"`
	MaxTemperature  *float64 `json:"max_temperature,omitempty"`
	AverageHumidity *float64 `json:"average_humidity,omitempty"`
}

// handlePeriods rebuilds completed accesses from the live log. The access
// currently in progress shows up as an UNTERMINATED anomaly.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	res, err := accesslog.ReconstructFile(s.logPath, accesslog.ParseOptions{})
	if err != nil {
		log.Printf("web: reconstruct %s: %v", s.logPath, err)
		http.Error(w, "access log unavailable", http.StatusServiceUnavailable)
		return
	}

	out := PeriodsJSON{
		Periods:   make([]PeriodJSON, 0, len(res.Periods)),
		Anomalies: make([]string, 0, len(res.Anomalies)),
	}
	for _, p := range res.Periods {
		out.Periods = append(out.Periods, periodJSON(p))
	}
	for _, a := range res.Anomalies {
		out.Anomalies = append(out.Anomalies, a.String())
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// wallClockLayout renders log times without a zone. The log records the
// device's local wall clock and carries no offset.
const wallClockLayout = "2006-01-02T15:04:05"

func periodJSON(p accesslog.Period) PeriodJSON {
	pj := PeriodJSON{
		Seconds:       p.Seconds(),
		StoredSeconds: p.StoredSeconds,
		Readings:      len(p.Readings),
	}
	if p.HasTimes() {
		pj.Start = p.Start.Format(wallClockLayout)
		pj.End = p.End.Format(wallClockLayout)
	}
	if v, ok := p.MaxTemperature(); ok {
		pj.MaxTemperature = &v
	}
	if v, ok := p.AverageHumidity(); ok {
		pj.AverageHumidity = &v
	}
	return pj
}
