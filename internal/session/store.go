// Package session stores live gaze recording sessions and their samples.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/errors"
	"github.com/gazekit/platform/internal/gaze"
)

// DefaultMaxSamples bounds per-session sample retention.
const DefaultMaxSamples = 20000

// Session describes one live gaze recording.
type Session struct {
	ID                string       `json:"id"`
	Display           display.Info `json:"display"`
	ViewingDistanceCm float64      `json:"viewing_distance_cm"`
	StartedAt         time.Time    `json:"started_at"`
	SampleCount       int          `json:"sample_count"`
}

type state struct {
	meta       Session
	samples    gaze.Trace
	lastActive time.Time
}

// Store is an in-memory session store safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*state
	maxSamples int
}

// NewStore creates a store; maxSamples <= 0 uses the default bound.
func NewStore(maxSamples int) *Store {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Store{
		sessions:   make(map[string]*state),
		maxSamples: maxSamples,
	}
}

// Create starts a new session and returns its metadata.
func (s *Store) Create(info display.Info, viewingDistanceCm float64) (Session, error) {
	if err := info.Validate(); err != nil {
		return Session{}, err
	}
	if viewingDistanceCm <= 0 {
		return Session{}, errors.Newf(errors.InvalidDistance, "viewing distance must be positive, got %g cm", viewingDistanceCm)
	}

	meta := Session{
		ID:                uuid.New().String(),
		Display:           info,
		ViewingDistanceCm: viewingDistanceCm,
		StartedAt:         time.Now(),
	}

	s.mu.Lock()
	s.sessions[meta.ID] = &state{meta: meta, lastActive: meta.StartedAt}
	s.mu.Unlock()
	return meta, nil
}

// Append adds a sample to a session, pruning the oldest samples beyond the
// retention bound. Samples must arrive in non-decreasing elapsed order; the
// windowed reads in Recent depend on it.
func (s *Store) Append(id string, sample gaze.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		return errors.Newf(errors.NotFound, "no session %q", id)
	}
	if n := len(st.samples); n > 0 && sample.Elapsed < st.samples[n-1].Elapsed {
		return errors.Newf(errors.InvalidTrace,
			"sample elapsed time went backwards: %g after %g", sample.Elapsed, st.samples[n-1].Elapsed)
	}

	st.samples = append(st.samples, sample)
	st.lastActive = time.Now()
	if len(st.samples) > s.maxSamples {
		st.samples = st.samples[len(st.samples)-s.maxSamples:]
	}
	st.meta.SampleCount = len(st.samples)
	return nil
}

// Get returns session metadata.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return Session{}, errors.Newf(errors.NotFound, "no session %q", id)
	}
	return st.meta, nil
}

// Trace returns a copy of all retained samples for a session.
func (s *Store) Trace(id string) (gaze.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return nil, errors.Newf(errors.NotFound, "no session %q", id)
	}
	out := make(gaze.Trace, len(st.samples))
	copy(out, st.samples)
	return out, nil
}

// Recent returns samples from the last windowSeconds of a session, judged by
// sample elapsed time relative to the newest sample.
func (s *Store) Recent(id string, windowSeconds float64) (gaze.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return nil, errors.Newf(errors.NotFound, "no session %q", id)
	}
	if len(st.samples) == 0 {
		return nil, nil
	}

	latest := st.samples[len(st.samples)-1].Elapsed
	cutoff := latest - windowSeconds
	// Samples arrive in elapsed order; find the window start.
	start := sort.Search(len(st.samples), func(i int) bool {
		return st.samples[i].Elapsed >= cutoff
	})
	out := make(gaze.Trace, len(st.samples)-start)
	copy(out, st.samples[start:])
	return out, nil
}

// List returns metadata for all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.sessions))
	for _, st := range s.sessions {
		out = append(out, st.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Remove deletes a session and its samples.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return errors.Newf(errors.NotFound, "no session %q", id)
	}
	delete(s.sessions, id)
	return nil
}

// PruneIdle removes sessions whose last append (or creation) is older than
// maxAge and returns their IDs.
func (s *Store) PruneIdle(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for id, st := range s.sessions {
		if st.lastActive.Before(cutoff) {
			removed = append(removed, id)
			delete(s.sessions, id)
		}
	}
	return removed
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
