// Package pipeline coordinates session ingest, live analysis, heatmap
// rendering, and remote scoring.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/config"
	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/heatmap"
	"github.com/gazekit/platform/internal/scorer"
	"github.com/gazekit/platform/internal/session"
	"github.com/gazekit/platform/internal/syncx"
	"github.com/gazekit/platform/internal/trace"
)

// Event is one live analysis emitted for a session. Heatmap carries PNG bytes
// only when the rendered frame changed perceptually since the last event.
type Event struct {
	SessionID string           `json:"session_id"`
	Result    *analysis.Result `json:"result"`
	Heatmap   []byte           `json:"heatmap,omitempty"`
}

// RemoteScorer submits traces to an external attention scorer.
type RemoteScorer interface {
	Score(ctx context.Context, t gaze.Trace) (*scorer.Result, error)
}

// Manager coordinates all per-session processing.
type Manager struct {
	cfg      *config.Config
	sessions *session.Store
	renderer *heatmap.Renderer
	remote   RemoteScorer // nil when remote scoring is disabled

	mu       sync.Mutex
	dedupers map[string]*heatmap.Deduper

	recording *syncx.RWGuard[bool]
	latest    *syncx.RWGuard[map[string]*analysis.Result]
	events    chan Event
	stopCh    chan struct{}
}

// New creates a manager. remote may be nil to disable remote scoring.
func New(cfg *config.Config, remote RemoteScorer) *Manager {
	return &Manager{
		cfg:       cfg,
		sessions:  session.NewStore(cfg.MaxSessionSamples),
		renderer:  heatmap.NewRenderer(cfg.HeatmapWidth, cfg.HeatmapHeight),
		remote:    remote,
		dedupers:  make(map[string]*heatmap.Deduper),
		recording: syncx.NewGuard(true),
		latest:    syncx.NewGuard(make(map[string]*analysis.Result)),
		events:    make(chan Event, EventBufferSize),
		stopCh:    make(chan struct{}),
	}
}

// Sessions exposes the underlying session store.
func (m *Manager) Sessions() *session.Store {
	return m.sessions
}

// Events returns the live analysis event channel. It is closed when the
// analysis loop stops, so consumers can range over it.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// StartSession begins a new recording session for a display.
func (m *Manager) StartSession(info display.Info, viewingDistanceCm float64) (session.Session, error) {
	meta, err := m.sessions.Create(info, viewingDistanceCm)
	if err != nil {
		return session.Session{}, err
	}

	m.mu.Lock()
	m.dedupers[meta.ID] = heatmap.NewDeduper(m.cfg.HeatmapHashDistance)
	m.mu.Unlock()

	trace.Logger(context.Background()).Info("session started",
		"session_id", meta.ID,
		"device", meta.Display.Model,
		"viewing_distance_cm", meta.ViewingDistanceCm)
	return meta, nil
}

// Ingest appends a sample to a session. Samples are dropped while recording
// is paused.
func (m *Manager) Ingest(sessionID string, sample gaze.Sample) error {
	if !m.recording.Get() {
		return nil
	}
	return m.sessions.Append(sessionID, sample)
}

// EndSession analyzes the full trace of a session, removes it, and returns
// the final result.
func (m *Manager) EndSession(ctx context.Context, sessionID string) (*analysis.Result, error) {
	ctx, span := trace.StartSpan(ctx, "end_session")
	defer span.End()
	span.SetAttr("session_id", sessionID)

	meta, err := m.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	full, err := m.sessions.Trace(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := analysis.AnalyzeWithDisplay(full, meta.Display, meta.ViewingDistanceCm)
	if err != nil {
		return nil, err
	}

	_ = m.sessions.Remove(sessionID)
	m.mu.Lock()
	delete(m.dedupers, sessionID)
	m.mu.Unlock()
	m.latest.Write(func(results *map[string]*analysis.Result) {
		delete(*results, sessionID)
	})

	span.SetAttr("score", result.Score)
	return result, nil
}

// Latest returns the most recent live analysis for a session. The map is
// indexed under the guard's read lock; the analysis loop mutates it in place.
func (m *Manager) Latest(sessionID string) (*analysis.Result, bool) {
	var result *analysis.Result
	var ok bool
	m.latest.Read(func(results map[string]*analysis.Result) any {
		result, ok = results[sessionID]
		return nil
	})
	return result, ok
}

// Heatmap renders the full trace of a session as PNG bytes.
func (m *Manager) Heatmap(sessionID string) ([]byte, error) {
	meta, err := m.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	full, err := m.sessions.Trace(sessionID)
	if err != nil {
		return nil, err
	}

	w, h := meta.Display.SizePoints()
	img, err := m.renderer.Render(full, w, h)
	if err != nil {
		return nil, err
	}
	return heatmap.EncodePNG(img)
}

// ScoreRemote submits a session's full trace to the remote scorer.
func (m *Manager) ScoreRemote(ctx context.Context, sessionID string) (*scorer.Result, error) {
	if m.remote == nil {
		return nil, errors.New(errors.ScorerUnavailable, "remote scoring is not configured")
	}
	full, err := m.sessions.Trace(sessionID)
	if err != nil {
		return nil, err
	}
	return m.remote.Score(ctx, full)
}

// SetRecording enables or disables sample ingest.
func (m *Manager) SetRecording(enabled bool) {
	m.recording.Set(enabled)
	trace.Logger(context.Background()).Info("recording state changed", "enabled", enabled)
}

// Recording reports whether ingest is enabled.
func (m *Manager) Recording() bool {
	return m.recording.Get()
}

// Start begins the periodic analysis loop.
func (m *Manager) Start(ctx context.Context) error {
	go m.analysisLoop(ctx)
	return nil
}

// Stop halts the analysis loop.
func (m *Manager) Stop() {
	close(m.stopCh)
}

func (m *Manager) analysisLoop(ctx context.Context) {
	// The loop is the only sender, so it owns closing the channel.
	defer close(m.events)

	rate := m.cfg.AnalysisRate
	if rate <= 0 {
		rate = DefaultAnalysisRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.pruneIdle(ctx)
			m.analyzeAll(ctx)
		}
	}
}

// pruneIdle drops sessions that have not seen a sample within the TTL, along
// with their dedupers and cached results. A WS client that vanishes without a
// stop message leaks its session otherwise.
func (m *Manager) pruneIdle(ctx context.Context) {
	ttl := m.cfg.SessionTTLSec
	if ttl <= 0 {
		ttl = DefaultSessionTTLSeconds
	}

	removed := m.sessions.PruneIdle(time.Duration(ttl * float64(time.Second)))
	if len(removed) == 0 {
		return
	}

	m.mu.Lock()
	for _, id := range removed {
		delete(m.dedupers, id)
	}
	m.mu.Unlock()
	m.latest.Write(func(results *map[string]*analysis.Result) {
		for _, id := range removed {
			delete(*results, id)
		}
	})

	trace.Logger(ctx).Info("pruned idle sessions", "count", len(removed))
}

func (m *Manager) analyzeAll(ctx context.Context) {
	window := m.cfg.AnalysisWindowSec
	if window <= 0 {
		window = DefaultWindowSeconds
	}

	for _, meta := range m.sessions.List() {
		m.analyzeSession(ctx, meta, window)
	}
}

func (m *Manager) analyzeSession(ctx context.Context, meta session.Session, window float64) {
	log := trace.Logger(ctx)

	recent, err := m.sessions.Recent(meta.ID, window)
	if err != nil || len(recent) < analysis.MinSamples {
		return
	}

	result, err := analysis.AnalyzeWithDisplay(recent, meta.Display, meta.ViewingDistanceCm)
	if err != nil {
		log.Error("live analysis failed", "session_id", meta.ID, "error", err)
		return
	}

	m.latest.Write(func(results *map[string]*analysis.Result) {
		(*results)[meta.ID] = result
	})

	event := Event{SessionID: meta.ID, Result: result}
	if frame := m.renderFrame(meta, recent); frame != nil {
		event.Heatmap = frame
	}

	// Non-blocking: a slow consumer misses events instead of stalling the loop.
	select {
	case m.events <- event:
	default:
	}
}

// renderFrame renders the recent window and returns PNG bytes only when the
// frame changed perceptually since the session's previous frame.
func (m *Manager) renderFrame(meta session.Session, recent gaze.Trace) []byte {
	m.mu.Lock()
	deduper, ok := m.dedupers[meta.ID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	w, h := meta.Display.SizePoints()
	img, err := m.renderer.Render(recent, w, h)
	if err != nil {
		return nil
	}
	if !deduper.Changed(img) {
		return nil
	}

	frame, err := heatmap.EncodePNG(img)
	if err != nil {
		return nil
	}
	return frame
}
