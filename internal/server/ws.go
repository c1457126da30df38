package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/scorer"
	"github.com/gazekit/platform/internal/session"
	"github.com/gazekit/platform/internal/trace"
)

// Inbound message types.
type Message struct {
	Type string `json:"type"`
}

type StartMessage struct {
	Type              string  `json:"type"`
	Device            string  `json:"device"`
	ViewingDistanceCm float64 `json:"viewing_distance_cm"`
	TraceID           string  `json:"trace_id,omitempty"`
}

type SampleMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	Elapsed   float64 `json:"t"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type StopMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Outbound message types.
type SessionStartedMessage struct {
	Type    string          `json:"type"`
	Session session.Session `json:"session"`
}

type AnalysisMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Result    any    `json:"result"`
	Heatmap   []byte `json:"heatmap,omitempty"` // PNG, base64 in JSON
}

type SessionEndedMessage struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Result    any            `json:"result"`
	Remote    *scorer.Result `json:"remote,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// wsHub tracks live WebSocket connections and their rate limiters.
type wsHub struct {
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

func newWSHub() *wsHub {
	return &wsHub{
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
}

func (h *wsHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.rateLimits[conn] = &rateLimiter{}
	h.mu.Unlock()
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	delete(h.rateLimits, conn)
	h.mu.Unlock()
}

func (h *wsHub) limiter(conn *websocket.Conn) *rateLimiter {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimits[conn]
}

func (h *wsHub) broadcast(msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
}

// broadcastAnalyses forwards live analysis events to every connection.
func (s *Server) broadcastAnalyses() {
	for evt := range s.pipe.Events() {
		s.hub.broadcast(AnalysisMessage{
			Type:      "analysis",
			SessionID: evt.SessionID,
			Result:    evt.Result,
			Heatmap:   evt.Heatmap,
		})
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.hub.add(conn)
	defer s.hub.remove(conn)

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !s.hub.limiter(conn).allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "start":
			var start StartMessage
			if err := json.Unmarshal(msg, &start); err != nil {
				continue
			}
			ctx := baseCtx
			if start.TraceID != "" {
				tc := trace.NewChild(trace.Context{TraceID: start.TraceID})
				ctx = trace.WithContext(ctx, tc)
			} else {
				ctx, _ = trace.EnsureContext(ctx)
			}
			s.handleStart(ctx, conn, start)
		case "sample":
			var sample SampleMessage
			if err := json.Unmarshal(msg, &sample); err != nil {
				continue
			}
			s.handleSample(baseCtx, conn, sample)
		case "stop":
			var stop StopMessage
			if err := json.Unmarshal(msg, &stop); err != nil {
				continue
			}
			s.handleStop(baseCtx, conn, stop)
		}
	}
}

func (s *Server) handleStart(ctx context.Context, conn *websocket.Conn, msg StartMessage) {
	ctx, span := trace.StartSpan(ctx, "ws_start_session")
	defer span.End()

	model := msg.Device
	if model == "" {
		model = s.cfg.DeviceModel
	}
	info, err := s.registry.Lookup(model)
	if err != nil {
		s.writeWSError(ctx, conn, err)
		return
	}

	distanceCm := msg.ViewingDistanceCm
	if distanceCm == 0 {
		distanceCm = s.cfg.ViewingDistanceCm
	}

	meta, err := s.pipe.StartSession(info, distanceCm)
	if err != nil {
		s.writeWSError(ctx, conn, err)
		return
	}

	span.SetAttr("session_id", meta.ID)
	_ = wsjson.Write(ctx, conn, SessionStartedMessage{Type: "session_started", Session: meta})
}

func (s *Server) handleSample(ctx context.Context, conn *websocket.Conn, msg SampleMessage) {
	sample := gaze.Sample{Elapsed: msg.Elapsed, X: msg.X, Y: msg.Y}
	if err := s.pipe.Ingest(msg.SessionID, sample); err != nil {
		s.writeWSError(ctx, conn, err)
	}
}

func (s *Server) handleStop(ctx context.Context, conn *websocket.Conn, msg StopMessage) {
	ctx, span := trace.StartSpan(ctx, "ws_stop_session")
	defer span.End()
	span.SetAttr("session_id", msg.SessionID)

	// Remote scoring is best effort and must happen before the session's
	// samples are released.
	var remote *scorer.Result
	if verdict, err := s.pipe.ScoreRemote(ctx, msg.SessionID); err == nil {
		remote = verdict
	}

	result, err := s.pipe.EndSession(ctx, msg.SessionID)
	if err != nil {
		s.writeWSError(ctx, conn, err)
		return
	}

	_ = wsjson.Write(ctx, conn, SessionEndedMessage{
		Type:      "session_ended",
		SessionID: msg.SessionID,
		Result:    result,
		Remote:    remote,
	})
}

func (s *Server) writeWSError(ctx context.Context, conn *websocket.Conn, err error) {
	trace.Logger(ctx).Error("websocket request failed", "error", err)
	_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
}
