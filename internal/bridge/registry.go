package bridge

import (
	"sync"
	"time"
)

// SessionSummary is the externally visible view of one live session.
type SessionSummary struct {
	ID             string    `json:"id"`
	CustomerName   string    `json:"customer_name"`
	Language       string    `json:"language"`
	State          string    `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	TranscriptSize int       `json:"transcript_size"`
}

// Registry tracks live bridge sessions for the operator surface and
// metrics. Sessions register themselves for the duration of Run.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session until the returned release function is called.
func (r *Registry) Add(s *Session) (release func()) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.sessions, s.ID())
		r.mu.Unlock()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Summaries returns a snapshot of all live sessions.
func (r *Registry) Summaries() []SessionSummary {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		info := s.Info()
		out = append(out, SessionSummary{
			ID:             s.ID(),
			CustomerName:   info.CustomerName,
			Language:       info.Language,
			State:          s.State().String(),
			StartedAt:      s.StartedAt(),
			TranscriptSize: len(s.Transcript()),
		})
	}
	return out
}
