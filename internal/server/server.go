package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/config"
	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/pipeline"
	"github.com/gazekit/platform/internal/report"
	"github.com/gazekit/platform/internal/trace"
)

// Server handles the REST and WebSocket surface of the platform.
type Server struct {
	cfg      *config.Config
	pipe     *pipeline.Manager
	registry *display.Registry

	hub *wsHub
}

// New creates a server and starts broadcasting live analysis events.
func New(cfg *config.Config, pipe *pipeline.Manager, registry *display.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		pipe:     pipe,
		registry: registry,
		hub:      newWSHub(),
	}
	go s.broadcastAnalyses()
	return s
}

// Handler returns the HTTP handler with routing and middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	r.HandleFunc("/api/devices", s.handleDevices).Methods("GET")
	r.HandleFunc("/api/devices/{model}", s.handleDevice).Methods("GET")
	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods("POST")

	r.HandleFunc("/api/sessions", s.handleSessions).Methods("GET")
	r.HandleFunc("/api/sessions/{id}", s.handleSession).Methods("GET")
	r.HandleFunc("/api/sessions/{id}/heatmap", s.handleSessionHeatmap).Methods("GET")
	r.HandleFunc("/api/sessions/{id}/report", s.handleSessionReport).Methods("GET")

	r.HandleFunc("/api/recording/start", adminAuth(s.cfg.AdminKeyHash, s.handleRecordingStart)).Methods("POST")
	r.HandleFunc("/api/recording/stop", adminAuth(s.cfg.AdminKeyHash, s.handleRecordingStop)).Methods("POST")

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(r))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusOf(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"sessions":  s.pipe.Sessions().Len(),
		"recording": s.pipe.Recording(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": s.registry.Models()})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.Lookup(mux.Vars(r)["model"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleAnalyze runs a one-shot analysis of a CSV trace in the request body.
// Query params: device (display model), scale, distance_cm.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "handle_analyze")
	defer span.End()

	samples, err := gaze.ParseCSV(io.LimitReader(r.Body, MaxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttr("samples", len(samples))

	info, distanceCm, err := s.displayParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := analysis.AnalyzeWithDisplay(samples, info, distanceCm)
	if err != nil {
		writeError(w, err)
		return
	}

	span.SetAttr("score", result.Score)
	trace.Logger(ctx).Info("trace analyzed", "samples", len(samples), "score", result.Score)
	writeJSON(w, http.StatusOK, result)
}

// displayParams resolves the display model, scale override, and viewing
// distance from the request query, falling back to configured defaults.
func (s *Server) displayParams(r *http.Request) (display.Info, float64, error) {
	q := r.URL.Query()

	model := q.Get("device")
	if model == "" {
		model = s.cfg.DeviceModel
	}
	info, err := s.registry.Lookup(model)
	if err != nil {
		return display.Info{}, 0, err
	}

	if raw := q.Get("scale"); raw != "" {
		scale, err := strconv.ParseFloat(raw, 64)
		if err != nil || scale <= 0 {
			return display.Info{}, 0, errors.Newf(errors.InvalidArgument, "invalid scale %q", raw)
		}
		info.Scale = scale
	}

	distanceCm := s.cfg.ViewingDistanceCm
	if raw := q.Get("distance_cm"); raw != "" {
		distanceCm, err = strconv.ParseFloat(raw, 64)
		if err != nil || distanceCm <= 0 {
			return display.Info{}, 0, errors.Newf(errors.InvalidDistance, "invalid viewing distance %q", raw)
		}
	}
	return info, distanceCm, nil
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.pipe.Sessions().List()})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	meta, err := s.pipe.Sessions().Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"session": meta}
	if latest, ok := s.pipe.Latest(meta.ID); ok {
		resp["latest"] = latest
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionHeatmap(w http.ResponseWriter, r *http.Request) {
	frame, err := s.pipe.Heatmap(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(frame)
}

func (s *Server) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	meta, err := s.pipe.Sessions().Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	full, err := s.pipe.Sessions().Trace(id)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := analysis.AnalyzeWithDisplay(full, meta.Display, meta.ViewingDistanceCm)
	if err != nil {
		writeError(w, err)
		return
	}

	// Heatmap failures degrade to a report without the image.
	frame, err := s.pipe.Heatmap(id)
	if err != nil {
		frame = nil
	}

	pdf, err := report.Build(meta, result, frame)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(pdf)
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	s.pipe.SetRecording(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recording_started"})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	s.pipe.SetRecording(false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recording_stopped"})
}
